package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CotacaoAtual é o preço corrente do BTC nas duas moedas suportadas.
// Efêmera: atualizada a cada ciclo ou sob demanda, nunca persistida.
type CotacaoAtual struct {
	Usd       decimal.Decimal `json:"usd"`
	Brl       decimal.Decimal `json:"brl"`
	Timestamp time.Time       `json:"timestamp"`
}

func (c CotacaoAtual) Em(moeda Moeda) decimal.Decimal {
	if moeda == MoedaUSD {
		return c.Usd
	}
	return c.Brl
}

// VariacaoPreco são as variações percentuais em quatro janelas fixas.
// Dados puramente derivados, recalculados a cada consulta.
type VariacaoPreco struct {
	Dia       float64   `json:"dia"`
	Semana    float64   `json:"semana"`
	Mes       float64   `json:"mes"`
	Ano       float64   `json:"ano"`
	Timestamp time.Time `json:"timestamp"`
}

type DistribuicaoOrigem struct {
	Origem     OrigemAporte    `json:"origem"`
	Bitcoin    decimal.Decimal `json:"bitcoin"`
	Percentual decimal.Decimal `json:"percentual"`
}

type Estatisticas struct {
	Moeda            Moeda                `json:"moeda"`
	Unidade          UnidadeBtc           `json:"unidade"`
	TotalInvestido   decimal.Decimal      `json:"total_investido"`
	TotalBtc         decimal.Decimal      `json:"total_btc"`
	PrecoMedio       decimal.Decimal      `json:"preco_medio"`
	ValorAtual       decimal.Decimal      `json:"valor_atual"`
	RendimentoPct    decimal.Decimal      `json:"rendimento_pct"`
	TotalAportes     int                  `json:"total_aportes"`
	AportesExcluidos int                  `json:"aportes_excluidos,omitempty"`
	Distribuicao     []DistribuicaoOrigem `json:"distribuicao"`
	CotacaoUsada     decimal.Decimal      `json:"cotacao_usada"`
	AtualizadoEm     time.Time            `json:"atualizado_em"`
}
