package rates

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rodrigomv/aportes-btc/internal/domain"
	"github.com/rodrigomv/aportes-btc/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// HistoricoUsdBrl devolve a cotação USD/BRL de um dia no formato YYYYMMDD.
type HistoricoUsdBrl interface {
	CotacaoDia(ctx context.Context, dia string) (decimal.Decimal, error)
}

// Resolver finaliza a tripla (cotacao, valor_usd, cotacao_usd_brl) de um
// aporte. Consultas históricas bem-sucedidas ficam em cache por dia dentro
// do processo, evitando chamadas repetidas na mesma sessão.
type Resolver struct {
	historico HistoricoUsdBrl

	mu     sync.Mutex
	porDia map[string]decimal.Decimal
}

func NewResolver(historico HistoricoUsdBrl) *Resolver {
	return &Resolver{
		historico: historico,
		porDia:    make(map[string]decimal.Decimal),
	}
}

type Resolucao struct {
	Cotacao       decimal.Decimal
	ValorUsd      *decimal.Decimal
	CotacaoUsdBrl *decimal.Decimal
}

// Resolver aplica as regras da §cotação: cotação explícita positiva vence;
// senão deriva valor/bitcoin. Para BRL tenta a cotação USD/BRL histórica do
// dia; falha de lookup é suave e deixa os campos USD nulos.
func (r *Resolver) Resolver(ctx context.Context, valor, bitcoin decimal.Decimal, cotacao *decimal.Decimal, moeda domain.Moeda, data time.Time) (Resolucao, error) {
	var res Resolucao

	switch {
	case cotacao != nil && cotacao.IsPositive():
		res.Cotacao = *cotacao
	case bitcoin.IsPositive():
		res.Cotacao = valor.Div(bitcoin)
	default:
		return res, fmt.Errorf("não é possível derivar cotação: bitcoin deve ser positivo")
	}

	switch moeda {
	case domain.MoedaUSD:
		valorUsd := valor
		um := decimal.NewFromInt(1)
		res.ValorUsd = &valorUsd
		res.CotacaoUsdBrl = &um

	case domain.MoedaBRL:
		usdBrl, err := r.cotacaoUsdBrlDia(ctx, data)
		if err != nil {
			logger.Warn("cotação USD/BRL indisponível, campos USD ficam nulos",
				zap.String("dia", data.Format("20060102")),
				zap.Error(err))
			return res, nil
		}
		valorUsd := valor.Div(usdBrl)
		res.ValorUsd = &valorUsd
		res.CotacaoUsdBrl = &usdBrl

	default:
		return res, fmt.Errorf("moeda desconhecida: %s", moeda)
	}

	return res, nil
}

// CotacaoUsdBrlDia expõe o lookup diário com cache para a varredura de
// backfill, que atualiza apenas os campos USD.
func (r *Resolver) CotacaoUsdBrlDia(ctx context.Context, data time.Time) (decimal.Decimal, error) {
	return r.cotacaoUsdBrlDia(ctx, data)
}

func (r *Resolver) cotacaoUsdBrlDia(ctx context.Context, data time.Time) (decimal.Decimal, error) {
	dia := data.Format("20060102")

	r.mu.Lock()
	if cotacao, ok := r.porDia[dia]; ok {
		r.mu.Unlock()
		return cotacao, nil
	}
	r.mu.Unlock()

	cotacao, err := r.historico.CotacaoDia(ctx, dia)
	if err != nil {
		return decimal.Zero, err
	}
	if !cotacao.IsPositive() {
		return decimal.Zero, fmt.Errorf("cotação não positiva para %s: %s", dia, cotacao)
	}

	r.mu.Lock()
	r.porDia[dia] = cotacao
	r.mu.Unlock()

	return cotacao, nil
}
