package rates

import (
	"context"
	"sync"
	"time"

	"github.com/rodrigomv/aportes-btc/internal/domain"
	"github.com/rodrigomv/aportes-btc/pkg/logger"
	"github.com/rodrigomv/aportes-btc/pkg/metrics"
	"go.uber.org/zap"
)

// CotacaoFonte é o provedor do preço corrente e das variações.
type CotacaoFonte interface {
	CotacaoAtual(ctx context.Context) (*domain.CotacaoAtual, error)
	Variacao(ctx context.Context) (*domain.VariacaoPreco, error)
}

// Monitor guarda a última cotação e variação resolvidas. A atualização
// periódica e a manual podem correr em paralelo: a última resolvida vence,
// sem token de sequenciamento, já que o dado é aproximado e de vida curta.
type Monitor struct {
	fonte CotacaoFonte

	mu       sync.RWMutex
	cotacao  *domain.CotacaoAtual
	variacao *domain.VariacaoPreco
}

func NewMonitor(fonte CotacaoFonte) *Monitor {
	return &Monitor{fonte: fonte}
}

// Refresh busca a cotação e a variação. Falha em uma não impede a outra.
func (m *Monitor) Refresh(ctx context.Context) error {
	cotacao, err := m.fonte.CotacaoAtual(ctx)
	if err != nil {
		logger.Error("erro ao atualizar cotação atual", zap.Error(err))
		return err
	}

	m.mu.Lock()
	m.cotacao = cotacao
	m.mu.Unlock()

	metrics.CotacaoAtualTimestamp.Set(float64(cotacao.Timestamp.Unix()))

	variacao, err := m.fonte.Variacao(ctx)
	if err != nil {
		logger.Warn("erro ao atualizar variação de preço", zap.Error(err))
		return nil
	}

	m.mu.Lock()
	m.variacao = variacao
	m.mu.Unlock()

	return nil
}

func (m *Monitor) Cotacao() (domain.CotacaoAtual, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cotacao == nil {
		return domain.CotacaoAtual{}, false
	}
	return *m.cotacao, true
}

func (m *Monitor) Variacao() (domain.VariacaoPreco, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.variacao == nil {
		return domain.VariacaoPreco{}, false
	}
	return *m.variacao, true
}

// Idade informa há quanto tempo a cotação corrente foi resolvida.
func (m *Monitor) Idade() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cotacao == nil {
		return 0
	}
	return time.Since(m.cotacao.Timestamp)
}
