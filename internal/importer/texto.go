package importer

import (
	"errors"
	"regexp"

	"github.com/rodrigomv/aportes-btc/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrNenhumDado = errors.New("nenhum dado extraído do texto")

// Padrões dos recibos P2P, em ordem de prioridade: o primeiro que casar
// com cada campo vence.
var (
	padroesCotacao = []*regexp.Regexp{
		regexp.MustCompile(`(?i)cota[çc][ãa]o\s+BTC/BRL:?\s*(R?\$?\s*[\d.,]+)`),
	}
	padroesValor = []*regexp.Regexp{
		regexp.MustCompile(`(?i)valor:?\s*(R?\$?\s*[\d.,]+)`),
	}
	padroesBitcoin = []*regexp.Regexp{
		regexp.MustCompile(`(?i)montante:?\s*([\d.,]+)\s*(?:BTC)?`),
	}
	padroesSats = []*regexp.Regexp{
		regexp.MustCompile(`(?i)voc[êe]\s+recebe:?\s*([\d.,]+)\s*sats`),
		regexp.MustCompile(`(?i)ir[áa]\s+receber:?\s*([\d.,]+)\s*sats`),
	}
)

type ParserTexto struct{}

func NewParserTexto() *ParserTexto {
	return &ParserTexto{}
}

// ParseTexto extrai um candidato parcial de um recibo de transação colado.
// Extração parcial é sucesso; nenhum campo extraído é falha do parse inteiro.
func (p *ParserTexto) ParseTexto(texto string) (*domain.AporteParcial, error) {
	candidato := &domain.AporteParcial{}

	if d := extrair(texto, padroesCotacao); d != nil {
		candidato.Cotacao = d
	}
	if d := extrair(texto, padroesValor); d != nil {
		candidato.ValorInvestido = d
	}
	if d := extrair(texto, padroesBitcoin); d != nil {
		candidato.Bitcoin = d
	} else if sats := extrair(texto, padroesSats); sats != nil {
		btc := sats.Div(domain.SatsPorBtc)
		candidato.Bitcoin = &btc
	}

	if candidato.Vazio() {
		return nil, ErrNenhumDado
	}

	return candidato, nil
}

func extrair(texto string, padroes []*regexp.Regexp) *decimal.Decimal {
	for _, re := range padroes {
		m := re.FindStringSubmatch(texto)
		if m == nil {
			continue
		}
		d, err := NormalizarDecimalTexto(m[1])
		if err != nil {
			continue
		}
		return &d
	}
	return nil
}
