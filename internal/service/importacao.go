package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rodrigomv/aportes-btc/internal/domain"
	"github.com/rodrigomv/aportes-btc/internal/importer"
	"github.com/rodrigomv/aportes-btc/internal/rates"
	"github.com/rodrigomv/aportes-btc/pkg/logger"
	"github.com/rodrigomv/aportes-btc/pkg/metrics"
	"go.uber.org/zap"
)

type ImportacaoService struct {
	pool        *pgxpool.Pool
	gate        *importer.Gate
	parserCSV   *importer.ParserCSV
	parserTexto *importer.ParserTexto
	resolver    *rates.Resolver
	aportes     *AporteService
	batchSize   int
}

func NewImportacaoService(
	pool *pgxpool.Pool,
	gate *importer.Gate,
	parserCSV *importer.ParserCSV,
	parserTexto *importer.ParserTexto,
	resolver *rates.Resolver,
	aportes *AporteService,
	batchSize int,
) *ImportacaoService {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &ImportacaoService{
		pool:        pool,
		gate:        gate,
		parserCSV:   parserCSV,
		parserTexto: parserTexto,
		resolver:    resolver,
		aportes:     aportes,
		batchSize:   batchSize,
	}
}

type ResultadoImportacao struct {
	Inseridos int64    `json:"inseridos"`
	Falhas    []string `json:"falhas,omitempty"`
}

// ProcessarCSV valida o arquivo, faz o parse, resolve cada candidato e grava
// o lote em COPY. Origem de registro fica fixa em planilha; erro de linha é
// independente e não derruba as demais.
func (s *ImportacaoService) ProcessarCSV(ctx context.Context, userID, nome string, tamanho int64, conteudo io.Reader) (*ResultadoImportacao, error) {
	// Gate e cabeçalho são falhas de validação; erro na gravação do lote é
	// falha de transporte e sobe sem essa marca.
	if err := s.gate.Validar(nome, tamanho); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidacao, err)
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ImportacaoDuration.WithLabelValues("csv"))

	parse, err := s.parserCSV.ParseFile(conteudo)
	if err != nil {
		return nil, fmt.Errorf("%w: arquivo %s: %v", domain.ErrValidacao, nome, err)
	}

	resultado := &ResultadoImportacao{}
	for _, e := range parse.Erros {
		resultado.Falhas = append(resultado.Falhas, e.Error())
	}

	aportes := make([]domain.Aporte, 0, len(parse.Candidatos))
	for i, candidato := range parse.Candidatos {
		aporte, err := s.montar(ctx, userID, candidato)
		if err != nil {
			resultado.Falhas = append(resultado.Falhas, fmt.Sprintf("registro %d: %v", i+1, err))
			metrics.RecordAporteProcessado("importar", "error")
			continue
		}
		aportes = append(aportes, *aporte)
	}

	inseridos, err := s.gravarLote(ctx, aportes)
	if err != nil {
		return nil, fmt.Errorf("erro ao gravar lote: %w", err)
	}
	resultado.Inseridos = inseridos

	logger.Info("importação concluída",
		zap.String("user_id", userID),
		zap.String("arquivo", nome),
		zap.Int64("inseridos", inseridos),
		zap.Int("falhas", len(resultado.Falhas)))

	s.aportes.invalidar(ctx, userID)

	return resultado, nil
}

// ProcessarTexto extrai um candidato de um recibo colado. O candidato volta
// para o cliente preencher o formulário; nada é persistido aqui.
func (s *ImportacaoService) ProcessarTexto(texto string) (*domain.AporteParcial, []string, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ImportacaoDuration.WithLabelValues("texto"))

	candidato, err := s.parserTexto.ParseTexto(texto)
	if err != nil {
		return nil, nil, err
	}

	return candidato, candidato.CamposExtraidos(), nil
}

func (s *ImportacaoService) montar(ctx context.Context, userID string, c domain.AporteParcial) (*domain.Aporte, error) {
	if c.DataAporte == nil || c.ValorInvestido == nil || c.Bitcoin == nil {
		return nil, fmt.Errorf("campos obrigatórios ausentes: data, valor e bitcoin")
	}

	origem := domain.OrigemPlanilha
	if c.OrigemAporte != nil {
		origem = *c.OrigemAporte
	}

	res, err := s.resolver.Resolver(ctx, *c.ValorInvestido, *c.Bitcoin, c.Cotacao,
		domain.MoedaBRL, *c.DataAporte)
	if err != nil {
		return nil, err
	}

	aporte := &domain.Aporte{
		ID:             uuid.NewString(),
		UserID:         userID,
		DataAporte:     *c.DataAporte,
		ValorInvestido: *c.ValorInvestido,
		Bitcoin:        *c.Bitcoin,
		Cotacao:        res.Cotacao,
		CotacaoMoeda:   domain.MoedaBRL,
		Moeda:          domain.MoedaBRL,
		OrigemAporte:   origem,
		OrigemRegistro: domain.RegistroPlanilha,
		ValorUsd:       res.ValorUsd,
		CotacaoUsdBrl:  res.CotacaoUsdBrl,
		CreatedAt:      time.Now(),
	}

	if err := aporte.Validar(c.Cotacao != nil); err != nil {
		return nil, err
	}

	return aporte, nil
}

func (s *ImportacaoService) gravarLote(ctx context.Context, aportes []domain.Aporte) (int64, error) {
	if len(aportes) == 0 {
		return 0, nil
	}

	columns := []string{
		"id", "user_id", "data_aporte", "valor_investido", "bitcoin",
		"cotacao", "cotacao_moeda", "moeda", "origem_aporte",
		"origem_registro", "valor_usd", "cotacao_usd_brl", "created_at",
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	// COPY em lotes dentro da mesma transação: o arquivo inteiro entra ou
	// nada entra.
	var total int64
	for inicio := 0; inicio < len(aportes); inicio += s.batchSize {
		fim := inicio + s.batchSize
		if fim > len(aportes) {
			fim = len(aportes)
		}

		copyCount, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{"aportes"},
			columns,
			&aporteSource{aportes: aportes[inicio:fim]},
		)
		if err != nil {
			return 0, fmt.Errorf("erro no COPY: %w", err)
		}
		total += copyCount
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("erro no commit: %w", err)
	}

	return total, nil
}

type aporteSource struct {
	aportes []domain.Aporte
	index   int
}

func (as *aporteSource) Next() bool {
	as.index++
	return as.index <= len(as.aportes)
}

func (as *aporteSource) Values() ([]interface{}, error) {
	if as.index > len(as.aportes) {
		return nil, nil
	}

	a := as.aportes[as.index-1]
	return []interface{}{
		a.ID,
		a.UserID,
		a.DataAporte,
		a.ValorInvestido,
		a.Bitcoin,
		a.Cotacao,
		a.CotacaoMoeda,
		a.Moeda,
		a.OrigemAporte,
		a.OrigemRegistro,
		a.ValorUsd,
		a.CotacaoUsdBrl,
		a.CreatedAt,
	}, nil
}

func (as *aporteSource) Err() error {
	return nil
}
