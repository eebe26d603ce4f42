package rates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodrigomv/aportes-btc/internal/domain"
	"github.com/rodrigomv/aportes-btc/pkg/logger"
)

func init() {
	_ = logger.Init("error", true)
}

type historicoFake struct {
	cotacao  decimal.Decimal
	err      error
	chamadas int
}

func (h *historicoFake) CotacaoDia(_ context.Context, _ string) (decimal.Decimal, error) {
	h.chamadas++
	if h.err != nil {
		return decimal.Zero, h.err
	}
	return h.cotacao, nil
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func dia(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func TestResolverCotacaoDerivada(t *testing.T) {
	resolver := NewResolver(&historicoFake{cotacao: dec(t, "5.00")})

	res, err := resolver.Resolver(context.Background(),
		dec(t, "1000.00"), dec(t, "0.015"), nil, domain.MoedaBRL, dia(t, "2024-01-15"))
	require.NoError(t, err)

	assert.True(t, res.Cotacao.Round(2).Equal(dec(t, "66666.67")),
		"cotação derivada: %s", res.Cotacao)
}

func TestResolverCotacaoExplicitaVence(t *testing.T) {
	resolver := NewResolver(&historicoFake{cotacao: dec(t, "5.00")})

	explicita := dec(t, "66000")
	res, err := resolver.Resolver(context.Background(),
		dec(t, "1000.00"), dec(t, "0.015"), &explicita, domain.MoedaBRL, dia(t, "2024-01-15"))
	require.NoError(t, err)

	assert.True(t, res.Cotacao.Equal(explicita))
}

func TestResolverBitcoinZeroFalha(t *testing.T) {
	resolver := NewResolver(&historicoFake{cotacao: dec(t, "5.00")})

	_, err := resolver.Resolver(context.Background(),
		dec(t, "1000.00"), decimal.Zero, nil, domain.MoedaBRL, dia(t, "2024-01-15"))
	require.Error(t, err)
}

func TestResolverMoedaUSDIdentidade(t *testing.T) {
	hist := &historicoFake{cotacao: dec(t, "5.00")}
	resolver := NewResolver(hist)

	res, err := resolver.Resolver(context.Background(),
		dec(t, "200.00"), dec(t, "0.002"), nil, domain.MoedaUSD, dia(t, "2024-01-15"))
	require.NoError(t, err)

	require.NotNil(t, res.ValorUsd)
	require.NotNil(t, res.CotacaoUsdBrl)
	assert.True(t, res.ValorUsd.Equal(dec(t, "200.00")))
	assert.True(t, res.CotacaoUsdBrl.Equal(decimal.NewFromInt(1)))
	assert.Zero(t, hist.chamadas, "USD nunca consulta o histórico")
}

func TestResolverMoedaBRLPreencheUsd(t *testing.T) {
	resolver := NewResolver(&historicoFake{cotacao: dec(t, "5.00")})

	res, err := resolver.Resolver(context.Background(),
		dec(t, "1000.00"), dec(t, "0.015"), nil, domain.MoedaBRL, dia(t, "2024-01-15"))
	require.NoError(t, err)

	require.NotNil(t, res.CotacaoUsdBrl)
	require.NotNil(t, res.ValorUsd)
	assert.True(t, res.CotacaoUsdBrl.Equal(dec(t, "5.00")))
	assert.True(t, res.ValorUsd.Equal(dec(t, "200")), "1000 / 5 = %s", res.ValorUsd)
}

func TestResolverLookupFalhaESuave(t *testing.T) {
	resolver := NewResolver(&historicoFake{err: errors.New("timeout")})

	res, err := resolver.Resolver(context.Background(),
		dec(t, "1000.00"), dec(t, "0.015"), nil, domain.MoedaBRL, dia(t, "2024-01-15"))

	// falha do lookup não é fatal: a cotação fica resolvida e os campos
	// USD ficam nulos
	require.NoError(t, err)
	assert.False(t, res.Cotacao.IsZero())
	assert.Nil(t, res.ValorUsd)
	assert.Nil(t, res.CotacaoUsdBrl)
}

func TestResolverCachePorDia(t *testing.T) {
	hist := &historicoFake{cotacao: dec(t, "5.00")}
	resolver := NewResolver(hist)

	ctx := context.Background()
	data := dia(t, "2024-01-15")

	for i := 0; i < 3; i++ {
		_, err := resolver.Resolver(ctx, dec(t, "1000.00"), dec(t, "0.015"), nil,
			domain.MoedaBRL, data)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, hist.chamadas, "mesmo dia consulta a rede uma única vez")

	_, err := resolver.Resolver(ctx, dec(t, "1000.00"), dec(t, "0.015"), nil,
		domain.MoedaBRL, dia(t, "2024-01-16"))
	require.NoError(t, err)
	assert.Equal(t, 2, hist.chamadas, "dia novo consulta de novo")
}

func TestResolverFalhaNaoEntraNoCache(t *testing.T) {
	hist := &historicoFake{err: errors.New("indisponível")}
	resolver := NewResolver(hist)

	ctx := context.Background()
	data := dia(t, "2024-01-15")

	for i := 0; i < 2; i++ {
		_, err := resolver.Resolver(ctx, dec(t, "1000.00"), dec(t, "0.015"), nil,
			domain.MoedaBRL, data)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, hist.chamadas, "só lookup com sucesso entra no cache")
}
