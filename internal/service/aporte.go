package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rodrigomv/aportes-btc/internal/domain"
	"github.com/rodrigomv/aportes-btc/internal/rates"
	"github.com/rodrigomv/aportes-btc/internal/storage/cache"
	"github.com/rodrigomv/aportes-btc/pkg/logger"
	"github.com/rodrigomv/aportes-btc/pkg/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrAporteNaoEncontrado = errors.New("aporte não encontrado")

type AporteService struct {
	pool         *pgxpool.Pool
	cacheService *cache.RedisCache
	resolver     *rates.Resolver
}

func NewAporteService(pool *pgxpool.Pool, cacheService *cache.RedisCache, resolver *rates.Resolver) *AporteService {
	return &AporteService{
		pool:         pool,
		cacheService: cacheService,
		resolver:     resolver,
	}
}

type NovoAporte struct {
	DataAporte     time.Time
	ValorInvestido decimal.Decimal
	Bitcoin        decimal.Decimal
	Cotacao        *decimal.Decimal
	Moeda          domain.Moeda
	OrigemAporte   domain.OrigemAporte
}

// Criar registra um aporte manual. A cotação ausente é derivada pelo
// resolvedor; a falha do lookup USD/BRL é suave e não bloqueia a escrita.
func (s *AporteService) Criar(ctx context.Context, userID string, novo NovoAporte) (*domain.Aporte, error) {
	return s.criar(ctx, userID, novo, domain.RegistroManual)
}

func (s *AporteService) criar(ctx context.Context, userID string, novo NovoAporte, registro domain.OrigemRegistro) (*domain.Aporte, error) {
	res, err := s.resolver.Resolver(ctx, novo.ValorInvestido, novo.Bitcoin, novo.Cotacao, novo.Moeda, novo.DataAporte)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidacao, err)
	}

	aporte := &domain.Aporte{
		ID:             uuid.NewString(),
		UserID:         userID,
		DataAporte:     novo.DataAporte,
		ValorInvestido: novo.ValorInvestido,
		Bitcoin:        novo.Bitcoin,
		Cotacao:        res.Cotacao,
		CotacaoMoeda:   novo.Moeda,
		Moeda:          novo.Moeda,
		OrigemAporte:   novo.OrigemAporte,
		OrigemRegistro: registro,
		ValorUsd:       res.ValorUsd,
		CotacaoUsdBrl:  res.CotacaoUsdBrl,
	}

	if err := aporte.Validar(novo.Cotacao != nil); err != nil {
		return nil, err
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("criar_aporte"))

	query := `
        INSERT INTO aportes (
            id, user_id, data_aporte, valor_investido, bitcoin, cotacao,
            cotacao_moeda, moeda, origem_aporte, origem_registro,
            valor_usd, cotacao_usd_brl
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING created_at
    `

	err = s.pool.QueryRow(ctx, query,
		aporte.ID, aporte.UserID, aporte.DataAporte, aporte.ValorInvestido,
		aporte.Bitcoin, aporte.Cotacao, aporte.CotacaoMoeda, aporte.Moeda,
		aporte.OrigemAporte, aporte.OrigemRegistro, aporte.ValorUsd,
		aporte.CotacaoUsdBrl,
	).Scan(&aporte.CreatedAt)

	if err != nil {
		metrics.RecordAporteProcessado("criar", "error")
		return nil, fmt.Errorf("erro ao inserir aporte: %w", err)
	}

	metrics.RecordAporteProcessado("criar", "success")
	s.invalidar(ctx, userID)

	return aporte, nil
}

type AtualizaAporte struct {
	DataAporte     *time.Time
	ValorInvestido *decimal.Decimal
	Bitcoin        *decimal.Decimal
	Cotacao        *decimal.Decimal
	Moeda          *domain.Moeda
	OrigemAporte   *domain.OrigemAporte
}

func (a AtualizaAporte) alteraTripla() bool {
	return a.DataAporte != nil || a.ValorInvestido != nil || a.Bitcoin != nil ||
		a.Cotacao != nil || a.Moeda != nil
}

// Atualizar aplica semântica de merge: campo não informado mantém o valor
// anterior. Qualquer mudança na tripla (valor, bitcoin, cotação), na moeda ou
// na data recalcula cotação e campos USD pelo mesmo resolvedor da criação.
func (s *AporteService) Atualizar(ctx context.Context, userID, id string, altera AtualizaAporte) (*domain.Aporte, error) {
	atual, err := s.buscar(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if altera.DataAporte != nil {
		atual.DataAporte = *altera.DataAporte
	}
	if altera.ValorInvestido != nil {
		atual.ValorInvestido = *altera.ValorInvestido
	}
	if altera.Bitcoin != nil {
		atual.Bitcoin = *altera.Bitcoin
	}
	if altera.Moeda != nil {
		atual.Moeda = *altera.Moeda
		atual.CotacaoMoeda = *altera.Moeda
	}
	if altera.OrigemAporte != nil {
		atual.OrigemAporte = *altera.OrigemAporte
	}

	if altera.alteraTripla() {
		res, err := s.resolver.Resolver(ctx, atual.ValorInvestido, atual.Bitcoin,
			altera.Cotacao, atual.Moeda, atual.DataAporte)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidacao, err)
		}
		atual.Cotacao = res.Cotacao
		atual.ValorUsd = res.ValorUsd
		atual.CotacaoUsdBrl = res.CotacaoUsdBrl
	}

	if err := atual.Validar(altera.Cotacao != nil); err != nil {
		return nil, err
	}

	query := `
        UPDATE aportes SET
            data_aporte = $1, valor_investido = $2, bitcoin = $3, cotacao = $4,
            cotacao_moeda = $5, moeda = $6, origem_aporte = $7,
            valor_usd = $8, cotacao_usd_brl = $9
        WHERE id = $10 AND user_id = $11
    `

	tag, err := s.pool.Exec(ctx, query,
		atual.DataAporte, atual.ValorInvestido, atual.Bitcoin, atual.Cotacao,
		atual.CotacaoMoeda, atual.Moeda, atual.OrigemAporte,
		atual.ValorUsd, atual.CotacaoUsdBrl,
		id, userID,
	)
	if err != nil {
		metrics.RecordAporteProcessado("atualizar", "error")
		return nil, fmt.Errorf("erro ao atualizar aporte: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAporteNaoEncontrado
	}

	metrics.RecordAporteProcessado("atualizar", "success")
	s.invalidar(ctx, userID)

	return atual, nil
}

func (s *AporteService) Excluir(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM aportes WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		metrics.RecordAporteProcessado("excluir", "error")
		return fmt.Errorf("erro ao excluir aporte: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAporteNaoEncontrado
	}

	metrics.RecordAporteProcessado("excluir", "success")
	s.invalidar(ctx, userID)

	return nil
}

// ExcluirPlanilha remove todos os aportes importados de planilha do usuário
// em uma única transação: nenhuma leitura observa o lote parcialmente apagado.
func (s *AporteService) ExcluirPlanilha(ctx context.Context, userID string) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"DELETE FROM aportes WHERE user_id = $1 AND origem_registro = $2",
		userID, domain.RegistroPlanilha)
	if err != nil {
		return 0, fmt.Errorf("erro ao excluir aportes de planilha: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("erro no commit: %w", err)
	}

	logger.Info("aportes de planilha excluídos",
		zap.String("user_id", userID),
		zap.Int64("removidos", tag.RowsAffected()))

	s.invalidar(ctx, userID)

	return tag.RowsAffected(), nil
}

// Listar devolve os aportes do usuário do mais recente para o mais antigo.
// O cache é chaveado por usuário: troca de conta nunca enxerga lista alheia.
func (s *AporteService) Listar(ctx context.Context, userID string) ([]domain.Aporte, error) {
	cacheKey := fmt.Sprintf("aportes:%s", userID)

	if s.cacheService != nil {
		var cached []domain.Aporte
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			metrics.RecordCacheHit()
			return cached, nil
		}
		metrics.RecordCacheMiss()
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("listar_aportes"))

	query := `
        SELECT
            id, user_id, data_aporte, valor_investido, bitcoin, cotacao,
            cotacao_moeda, moeda, origem_aporte, origem_registro,
            valor_usd, cotacao_usd_brl, created_at
        FROM aportes
        WHERE user_id = $1
        ORDER BY data_aporte DESC, created_at DESC
    `

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("listar_aportes", "error").Inc()
		return nil, fmt.Errorf("erro ao listar aportes: %w", err)
	}
	defer rows.Close()

	aportes := make([]domain.Aporte, 0)
	for rows.Next() {
		var a domain.Aporte
		err := rows.Scan(
			&a.ID, &a.UserID, &a.DataAporte, &a.ValorInvestido, &a.Bitcoin,
			&a.Cotacao, &a.CotacaoMoeda, &a.Moeda, &a.OrigemAporte,
			&a.OrigemRegistro, &a.ValorUsd, &a.CotacaoUsdBrl, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear aporte: %w", err)
		}
		aportes = append(aportes, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar resultados: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("listar_aportes", "success").Inc()

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, cacheKey, aportes); err != nil {
			logger.Warn("erro ao salvar lista no cache", zap.Error(err))
		}
	}

	return aportes, nil
}

func (s *AporteService) buscar(ctx context.Context, userID, id string) (*domain.Aporte, error) {
	query := `
        SELECT
            id, user_id, data_aporte, valor_investido, bitcoin, cotacao,
            cotacao_moeda, moeda, origem_aporte, origem_registro,
            valor_usd, cotacao_usd_brl, created_at
        FROM aportes
        WHERE id = $1 AND user_id = $2
    `

	var a domain.Aporte
	err := s.pool.QueryRow(ctx, query, id, userID).Scan(
		&a.ID, &a.UserID, &a.DataAporte, &a.ValorInvestido, &a.Bitcoin,
		&a.Cotacao, &a.CotacaoMoeda, &a.Moeda, &a.OrigemAporte,
		&a.OrigemRegistro, &a.ValorUsd, &a.CotacaoUsdBrl, &a.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrAporteNaoEncontrado
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar aporte: %w", err)
	}

	return &a, nil
}

// invalidar descarta o cache do usuário após toda mutação, antes da resposta:
// a invalidação é total, não incremental.
func (s *AporteService) invalidar(ctx context.Context, userID string) {
	if s.cacheService == nil {
		return
	}

	if err := s.cacheService.Delete(ctx, fmt.Sprintf("aportes:%s", userID)); err != nil {
		logger.Warn("erro ao invalidar cache de aportes", zap.Error(err))
	}
	if err := s.cacheService.DeletePattern(ctx, fmt.Sprintf("stats:%s:*", userID)); err != nil {
		logger.Warn("erro ao invalidar cache de estatísticas", zap.Error(err))
	}
}
