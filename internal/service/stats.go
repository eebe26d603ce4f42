package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rodrigomv/aportes-btc/internal/domain"
	"github.com/rodrigomv/aportes-btc/internal/rates"
	"github.com/rodrigomv/aportes-btc/internal/storage/cache"
	"github.com/rodrigomv/aportes-btc/pkg/logger"
	"github.com/rodrigomv/aportes-btc/pkg/metrics"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var cem = decimal.NewFromInt(100)

// CalcularEstatisticas é a agregação pura sobre a coleção de aportes e a
// cotação corrente: mesma entrada, mesma saída, nenhum estado próprio.
//
// Conversão entre moedas na soma do total investido:
//   - visão USD: aporte BRL converte pela cotacao_usd_brl do próprio aporte;
//     sem ela o aporte é inconvertível e fica fora do total convertido;
//   - visão BRL: aporte USD converte pela razão brl/usd da cotação corrente;
//     sem cotação corrente o aporte fica fora do total.
func CalcularEstatisticas(aportes []domain.Aporte, cotacao domain.CotacaoAtual, moeda domain.Moeda, unidade domain.UnidadeBtc) domain.Estatisticas {
	stats := domain.Estatisticas{
		Moeda:        moeda,
		Unidade:      unidade,
		TotalAportes: len(aportes),
		CotacaoUsada: cotacao.Em(moeda),
		AtualizadoEm: time.Now(),
	}

	totalBtc := decimal.Zero
	totalInvestido := decimal.Zero
	porOrigem := make(map[domain.OrigemAporte]decimal.Decimal)

	for _, a := range aportes {
		totalBtc = totalBtc.Add(a.Bitcoin)
		porOrigem[a.OrigemAporte] = porOrigem[a.OrigemAporte].Add(a.Bitcoin)

		valor, ok := converterValor(a, cotacao, moeda)
		if !ok {
			stats.AportesExcluidos++
			continue
		}
		totalInvestido = totalInvestido.Add(valor)
	}

	stats.TotalInvestido = totalInvestido

	stats.TotalBtc = totalBtc
	if unidade == domain.UnidadeSATS {
		stats.TotalBtc = totalBtc.Mul(domain.SatsPorBtc)
	}

	// Divisões guardadas: carteira vazia produz zeros, nunca erro.
	if stats.TotalBtc.IsPositive() {
		stats.PrecoMedio = totalInvestido.Div(stats.TotalBtc)
	}

	stats.ValorAtual = totalBtc.Mul(cotacao.Em(moeda))

	if totalInvestido.IsPositive() {
		stats.RendimentoPct = stats.ValorAtual.Sub(totalInvestido).Div(totalInvestido).Mul(cem)
	}

	if totalBtc.IsPositive() {
		for origem, btc := range porOrigem {
			stats.Distribuicao = append(stats.Distribuicao, domain.DistribuicaoOrigem{
				Origem:     origem,
				Bitcoin:    btc,
				Percentual: btc.Div(totalBtc).Mul(cem),
			})
		}
		sort.Slice(stats.Distribuicao, func(i, j int) bool {
			return stats.Distribuicao[i].Bitcoin.GreaterThan(stats.Distribuicao[j].Bitcoin)
		})
	}

	return stats
}

func converterValor(a domain.Aporte, cotacao domain.CotacaoAtual, moeda domain.Moeda) (decimal.Decimal, bool) {
	if a.Moeda == moeda {
		return a.ValorInvestido, true
	}

	switch moeda {
	case domain.MoedaUSD:
		if a.CotacaoUsdBrl == nil || !a.CotacaoUsdBrl.IsPositive() {
			return decimal.Zero, false
		}
		return a.ValorInvestido.Div(*a.CotacaoUsdBrl), true

	case domain.MoedaBRL:
		if !cotacao.Usd.IsPositive() || !cotacao.Brl.IsPositive() {
			return decimal.Zero, false
		}
		return a.ValorInvestido.Mul(cotacao.Brl.Div(cotacao.Usd)), true
	}

	return decimal.Zero, false
}

type StatsService struct {
	aportes      *AporteService
	monitor      *rates.Monitor
	cacheService *cache.RedisCache
}

func NewStatsService(aportes *AporteService, monitor *rates.Monitor, cacheService *cache.RedisCache) *StatsService {
	return &StatsService{
		aportes:      aportes,
		monitor:      monitor,
		cacheService: cacheService,
	}
}

// Estatisticas recalcula a visão derivada sob demanda, com cache-aside por
// usuário/moeda/unidade. Toda mutação de aporte invalida essas chaves.
func (s *StatsService) Estatisticas(ctx context.Context, userID string, moeda domain.Moeda, unidade domain.UnidadeBtc) (*domain.Estatisticas, error) {
	cacheKey := fmt.Sprintf("stats:%s:%s:%s", userID, moeda, unidade)

	if s.cacheService != nil {
		var cached domain.Estatisticas
		if err := s.cacheService.Get(ctx, cacheKey, &cached); err == nil {
			metrics.RecordCacheHit()
			return &cached, nil
		}
		metrics.RecordCacheMiss()
	}

	aportes, err := s.aportes.Listar(ctx, userID)
	if err != nil {
		return nil, err
	}

	cotacao, ok := s.monitor.Cotacao()
	if !ok {
		logger.Warn("cotação atual indisponível para estatísticas",
			zap.String("user_id", userID))
	}

	stats := CalcularEstatisticas(aportes, cotacao, moeda, unidade)

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, cacheKey, stats); err != nil {
			logger.Warn("erro ao salvar estatísticas no cache", zap.Error(err))
		}
	}

	return &stats, nil
}
