package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodrigomv/aportes-btc/internal/domain"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func aporteBRL(t *testing.T, valor, bitcoin string, origem domain.OrigemAporte, usdBrl string) domain.Aporte {
	t.Helper()
	a := domain.Aporte{
		DataAporte:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		ValorInvestido: dec(t, valor),
		Bitcoin:        dec(t, bitcoin),
		Cotacao:        dec(t, valor).Div(dec(t, bitcoin)),
		CotacaoMoeda:   domain.MoedaBRL,
		Moeda:          domain.MoedaBRL,
		OrigemAporte:   origem,
		OrigemRegistro: domain.RegistroManual,
	}
	if usdBrl != "" {
		cot := dec(t, usdBrl)
		valorUsd := a.ValorInvestido.Div(cot)
		a.CotacaoUsdBrl = &cot
		a.ValorUsd = &valorUsd
	}
	return a
}

func cotacaoTeste(t *testing.T) domain.CotacaoAtual {
	t.Helper()
	return domain.CotacaoAtual{
		Usd:       dec(t, "60000"),
		Brl:       dec(t, "300000"),
		Timestamp: time.Now(),
	}
}

func TestCalcularEstatisticasCarteiraVazia(t *testing.T) {
	stats := CalcularEstatisticas(nil, cotacaoTeste(t), domain.MoedaBRL, domain.UnidadeBTC)

	// carteira vazia produz zeros, nunca NaN ou erro de divisão
	assert.True(t, stats.TotalInvestido.IsZero())
	assert.True(t, stats.TotalBtc.IsZero())
	assert.True(t, stats.PrecoMedio.IsZero())
	assert.True(t, stats.ValorAtual.IsZero())
	assert.True(t, stats.RendimentoPct.IsZero())
	assert.Empty(t, stats.Distribuicao)
	assert.Zero(t, stats.TotalAportes)
}

func TestCalcularEstatisticasTotais(t *testing.T) {
	aportes := []domain.Aporte{
		aporteBRL(t, "1000", "0.01", domain.OrigemCorretora, "5"),
		aporteBRL(t, "2000", "0.01", domain.OrigemP2P, "5"),
	}

	stats := CalcularEstatisticas(aportes, cotacaoTeste(t), domain.MoedaBRL, domain.UnidadeBTC)

	assert.True(t, stats.TotalInvestido.Equal(dec(t, "3000")))
	assert.True(t, stats.TotalBtc.Equal(dec(t, "0.02")))
	assert.True(t, stats.PrecoMedio.Equal(dec(t, "150000")))
	assert.True(t, stats.ValorAtual.Equal(dec(t, "6000")), "0.02 * 300000 = %s", stats.ValorAtual)
	assert.True(t, stats.RendimentoPct.Equal(dec(t, "100")), "rendimento: %s", stats.RendimentoPct)
	assert.Equal(t, 2, stats.TotalAportes)
}

func TestCalcularEstatisticasIdempotente(t *testing.T) {
	aportes := []domain.Aporte{
		aporteBRL(t, "1000", "0.01", domain.OrigemCorretora, "5"),
		aporteBRL(t, "500", "0.004", domain.OrigemP2P, ""),
	}
	cotacao := cotacaoTeste(t)

	a := CalcularEstatisticas(aportes, cotacao, domain.MoedaUSD, domain.UnidadeBTC)
	b := CalcularEstatisticas(aportes, cotacao, domain.MoedaUSD, domain.UnidadeBTC)

	assert.True(t, a.TotalInvestido.Equal(b.TotalInvestido))
	assert.True(t, a.TotalBtc.Equal(b.TotalBtc))
	assert.True(t, a.PrecoMedio.Equal(b.PrecoMedio))
	assert.True(t, a.RendimentoPct.Equal(b.RendimentoPct))
	assert.Equal(t, a.AportesExcluidos, b.AportesExcluidos)
	assert.Equal(t, len(a.Distribuicao), len(b.Distribuicao))
}

func TestCalcularEstatisticasUnidadeSats(t *testing.T) {
	aportes := []domain.Aporte{
		aporteBRL(t, "1000", "0.015", domain.OrigemCorretora, "5"),
	}

	stats := CalcularEstatisticas(aportes, cotacaoTeste(t), domain.MoedaBRL, domain.UnidadeSATS)

	assert.True(t, stats.TotalBtc.Equal(dec(t, "1500000")), "0.015 BTC = %s sats", stats.TotalBtc)
	// valor atual continua precificado em BTC, não em sats
	assert.True(t, stats.ValorAtual.Equal(dec(t, "4500")))
}

func TestCalcularEstatisticasVisaoUSD(t *testing.T) {
	aportes := []domain.Aporte{
		aporteBRL(t, "1000", "0.01", domain.OrigemCorretora, "5"), // 200 USD
		aporteBRL(t, "9999", "0.02", domain.OrigemP2P, ""),        // inconvertível
	}

	stats := CalcularEstatisticas(aportes, cotacaoTeste(t), domain.MoedaUSD, domain.UnidadeBTC)

	// aporte BRL sem cotacao_usd_brl fica fora do total convertido,
	// mas continua contando no total de BTC
	assert.True(t, stats.TotalInvestido.Equal(dec(t, "200")))
	assert.Equal(t, 1, stats.AportesExcluidos)
	assert.True(t, stats.TotalBtc.Equal(dec(t, "0.03")))
}

func TestCalcularEstatisticasVisaoBRLComAporteUSD(t *testing.T) {
	usd := domain.Aporte{
		DataAporte:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		ValorInvestido: dec(t, "100"),
		Bitcoin:        dec(t, "0.002"),
		Cotacao:        dec(t, "50000"),
		CotacaoMoeda:   domain.MoedaUSD,
		Moeda:          domain.MoedaUSD,
		OrigemAporte:   domain.OrigemCorretora,
	}

	stats := CalcularEstatisticas([]domain.Aporte{usd}, cotacaoTeste(t), domain.MoedaBRL, domain.UnidadeBTC)

	// visão BRL converte o aporte USD pela razão brl/usd da cotação corrente
	assert.True(t, stats.TotalInvestido.Equal(dec(t, "500")), "100 * (300000/60000) = %s", stats.TotalInvestido)
}

func TestCalcularEstatisticasDistribuicao(t *testing.T) {
	aportes := []domain.Aporte{
		aporteBRL(t, "1000", "0.03", domain.OrigemCorretora, "5"),
		aporteBRL(t, "1000", "0.01", domain.OrigemP2P, "5"),
	}

	stats := CalcularEstatisticas(aportes, cotacaoTeste(t), domain.MoedaBRL, domain.UnidadeBTC)

	require.Len(t, stats.Distribuicao, 2)

	soma := decimal.Zero
	porOrigem := make(map[domain.OrigemAporte]decimal.Decimal)
	for _, d := range stats.Distribuicao {
		soma = soma.Add(d.Percentual)
		porOrigem[d.Origem] = d.Percentual
	}

	assert.True(t, soma.Equal(dec(t, "100")), "percentuais somam %s", soma)
	assert.True(t, porOrigem[domain.OrigemCorretora].Equal(dec(t, "75")))
	assert.True(t, porOrigem[domain.OrigemP2P].Equal(dec(t, "25")))

	// maior participação primeiro
	assert.Equal(t, domain.OrigemCorretora, stats.Distribuicao[0].Origem)
}

func TestCalcularEstatisticasOrigemSemAporteOmitida(t *testing.T) {
	aportes := []domain.Aporte{
		aporteBRL(t, "1000", "0.01", domain.OrigemCorretora, "5"),
	}

	stats := CalcularEstatisticas(aportes, cotacaoTeste(t), domain.MoedaBRL, domain.UnidadeBTC)

	require.Len(t, stats.Distribuicao, 1)
	assert.Equal(t, domain.OrigemCorretora, stats.Distribuicao[0].Origem)
	assert.True(t, stats.Distribuicao[0].Percentual.Equal(dec(t, "100")))
}
