package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rodrigomv/aportes-btc/internal/domain"
)

var colunasObrigatorias = []string{"data", "valor", "bitcoin"}

type ParserCSV struct{}

func NewParserCSV() *ParserCSV {
	return &ParserCSV{}
}

type ResultadoParse struct {
	Candidatos []domain.AporteParcial
	Erros      []ErroLinha
}

type ErroLinha struct {
	Linha int
	Err   error
}

func (e ErroLinha) Error() string {
	return fmt.Sprintf("linha %d: %v", e.Linha, e.Err)
}

// ParseFile lê o CSV inteiro. Coluna obrigatória ausente no cabeçalho
// invalida o arquivo todo; erro em uma linha é registrado e as demais
// continuam sendo processadas.
func (p *ParserCSV) ParseFile(reader io.Reader) (*ResultadoParse, error) {
	csvReader := csv.NewReader(reader)
	csvReader.LazyQuotes = true
	csvReader.TrimLeadingSpace = true

	cabecalho, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("erro ao ler cabeçalho: %w", err)
	}

	colunas := make(map[string]int, len(cabecalho))
	for i, nome := range cabecalho {
		colunas[strings.ToLower(strings.TrimSpace(nome))] = i
	}

	for _, nome := range colunasObrigatorias {
		if _, ok := colunas[nome]; !ok {
			return nil, fmt.Errorf("coluna obrigatória ausente: %s", nome)
		}
	}

	resultado := &ResultadoParse{}
	linha := 1

	for {
		registro, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		linha++
		if err != nil {
			resultado.Erros = append(resultado.Erros, ErroLinha{Linha: linha, Err: err})
			continue
		}

		candidato, err := p.parseRegistro(registro, colunas)
		if err != nil {
			resultado.Erros = append(resultado.Erros, ErroLinha{Linha: linha, Err: err})
			continue
		}

		resultado.Candidatos = append(resultado.Candidatos, *candidato)
	}

	return resultado, nil
}

func (p *ParserCSV) parseRegistro(registro []string, colunas map[string]int) (*domain.AporteParcial, error) {
	campo := func(nome string) string {
		idx, ok := colunas[nome]
		if !ok || idx >= len(registro) {
			return ""
		}
		return strings.TrimSpace(registro[idx])
	}

	data, err := time.Parse("2006-01-02", campo("data"))
	if err != nil {
		return nil, fmt.Errorf("data inválida: %w", err)
	}

	valor, err := NormalizarDecimal(campo("valor"))
	if err != nil {
		return nil, fmt.Errorf("valor inválido: %w", err)
	}

	bitcoin, err := NormalizarDecimal(campo("bitcoin"))
	if err != nil {
		return nil, fmt.Errorf("bitcoin inválido: %w", err)
	}

	candidato := &domain.AporteParcial{
		DataAporte:     &data,
		ValorInvestido: &valor,
		Bitcoin:        &bitcoin,
	}

	// Opcionais ausentes ficam nil: o resolvedor preenche depois.
	if s := campo("cotacao"); s != "" {
		cotacao, err := NormalizarDecimal(s)
		if err != nil {
			return nil, fmt.Errorf("cotação inválida: %w", err)
		}
		candidato.Cotacao = &cotacao
	}

	if s := campo("origem"); s != "" {
		origem := domain.OrigemAporte(strings.ToLower(s))
		if !origem.Valida() {
			return nil, fmt.Errorf("origem inválida: %s", s)
		}
		candidato.OrigemAporte = &origem
	}

	return candidato, nil
}
