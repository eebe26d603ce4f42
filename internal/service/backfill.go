package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rodrigomv/aportes-btc/internal/domain"
	"github.com/rodrigomv/aportes-btc/internal/rates"
	"github.com/rodrigomv/aportes-btc/internal/storage/cache"
	"github.com/rodrigomv/aportes-btc/pkg/logger"
	"github.com/rodrigomv/aportes-btc/pkg/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BackfillService é a varredura retroativa dos campos USD: aportes BRL com
// valor_usd e cotacao_usd_brl nulos são re-resolvidos um a um. Falha de linha
// é registrada e a varredura segue; nenhum outro campo é tocado.
type BackfillService struct {
	pool         *pgxpool.Pool
	resolver     *rates.Resolver
	cacheService *cache.RedisCache
}

func NewBackfillService(pool *pgxpool.Pool, resolver *rates.Resolver, cacheService *cache.RedisCache) *BackfillService {
	return &BackfillService{
		pool:         pool,
		resolver:     resolver,
		cacheService: cacheService,
	}
}

type ResultadoBackfill struct {
	Pendentes    int      `json:"pendentes"`
	Atualizados  int      `json:"atualizados"`
	Falhas       int      `json:"falhas"`
	DetalheFalha []string `json:"detalhe_falhas,omitempty"`
}

type linhaBackfill struct {
	id     string
	userID string
	data   time.Time
	valor  decimal.Decimal
}

func (s *BackfillService) Executar(ctx context.Context) (*ResultadoBackfill, error) {
	query := `
        SELECT id, user_id, data_aporte, valor_investido
        FROM aportes
        WHERE moeda = $1 AND valor_usd IS NULL AND cotacao_usd_brl IS NULL
        ORDER BY data_aporte
    `

	rows, err := s.pool.Query(ctx, query, domain.MoedaBRL)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar aportes pendentes: %w", err)
	}

	var pendentes []linhaBackfill
	for rows.Next() {
		var l linhaBackfill
		if err := rows.Scan(&l.id, &l.userID, &l.data, &l.valor); err != nil {
			rows.Close()
			return nil, fmt.Errorf("erro ao escanear linha: %w", err)
		}
		pendentes = append(pendentes, l)
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar resultados: %w", err)
	}

	resultado, usuarios := varrer(ctx, pendentes, s.atualizarLinha)

	for userID := range usuarios {
		s.invalidar(ctx, userID)
	}

	logger.Info("backfill concluído",
		zap.Int("pendentes", resultado.Pendentes),
		zap.Int("atualizados", resultado.Atualizados),
		zap.Int("falhas", resultado.Falhas))

	return resultado, nil
}

// varrer percorre as linhas pendentes uma a uma. Falha de linha é contada e a
// varredura segue; só usuários com alguma linha atualizada têm cache a invalidar.
func varrer(ctx context.Context, pendentes []linhaBackfill, atualizar func(context.Context, linhaBackfill) error) (*ResultadoBackfill, map[string]bool) {
	resultado := &ResultadoBackfill{Pendentes: len(pendentes)}
	usuarios := make(map[string]bool)

	for _, linha := range pendentes {
		if err := atualizar(ctx, linha); err != nil {
			resultado.Falhas++
			resultado.DetalheFalha = append(resultado.DetalheFalha,
				fmt.Sprintf("aporte %s: %v", linha.id, err))
			metrics.BackfillRows.WithLabelValues("error").Inc()

			logger.Warn("falha no backfill de aporte",
				zap.String("id", linha.id),
				zap.String("dia", linha.data.Format("20060102")),
				zap.Error(err))
			continue
		}

		resultado.Atualizados++
		usuarios[linha.userID] = true
		metrics.BackfillRows.WithLabelValues("success").Inc()
	}

	return resultado, usuarios
}

func (s *BackfillService) atualizarLinha(ctx context.Context, linha linhaBackfill) error {
	cotacao, err := s.resolver.CotacaoUsdBrlDia(ctx, linha.data)
	if err != nil {
		return err
	}

	valorUsd := linha.valor.Div(cotacao)

	_, err = s.pool.Exec(ctx,
		"UPDATE aportes SET valor_usd = $1, cotacao_usd_brl = $2 WHERE id = $3",
		valorUsd, cotacao, linha.id)
	if err != nil {
		return fmt.Errorf("erro ao atualizar campos USD: %w", err)
	}

	return nil
}

func (s *BackfillService) invalidar(ctx context.Context, userID string) {
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
