package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserTextoReciboCompleto(t *testing.T) {
	texto := "Cotação BTC/BRL: R$506.358\nValor: R$ 100,00\nVocê Recebe: 18.959 sats"

	parser := NewParserTexto()
	candidato, err := parser.ParseTexto(texto)
	require.NoError(t, err)

	require.NotNil(t, candidato.Cotacao)
	assert.True(t, candidato.Cotacao.Equal(dec(t, "506358")),
		"cotação extraída: %s", candidato.Cotacao)

	require.NotNil(t, candidato.ValorInvestido)
	assert.True(t, candidato.ValorInvestido.Equal(dec(t, "100.00")))

	require.NotNil(t, candidato.Bitcoin)
	assert.True(t, candidato.Bitcoin.Equal(dec(t, "0.00018959")),
		"sats convertidos para BTC: %s", candidato.Bitcoin)

	assert.ElementsMatch(t, []string{"valor", "bitcoin", "cotacao"}, candidato.CamposExtraidos())
}

func TestParserTextoIraReceber(t *testing.T) {
	texto := "Valor: R$ 250,00\nVocê irá receber: 50.000 sats"

	parser := NewParserTexto()
	candidato, err := parser.ParseTexto(texto)
	require.NoError(t, err)

	require.NotNil(t, candidato.Bitcoin)
	assert.True(t, candidato.Bitcoin.Equal(dec(t, "0.0005")))
}

func TestParserTextoMontanteEmBTC(t *testing.T) {
	texto := "Montante: 0.015 BTC\nValor: R$ 1000,00"

	parser := NewParserTexto()
	candidato, err := parser.ParseTexto(texto)
	require.NoError(t, err)

	require.NotNil(t, candidato.Bitcoin)
	assert.True(t, candidato.Bitcoin.Equal(dec(t, "0.015")))
}

func TestParserTextoExtracaoParcial(t *testing.T) {
	// só um campo extraído ainda é sucesso; o chamador vê quais faltam
	parser := NewParserTexto()
	candidato, err := parser.ParseTexto("Valor: R$ 75,50\nqualquer outra coisa")
	require.NoError(t, err)

	assert.Equal(t, []string{"valor"}, candidato.CamposExtraidos())
	assert.Nil(t, candidato.Bitcoin)
	assert.Nil(t, candidato.Cotacao)
}

func TestParserTextoNenhumDado(t *testing.T) {
	parser := NewParserTexto()
	_, err := parser.ParseTexto("texto sem nenhum rótulo conhecido")
	require.ErrorIs(t, err, ErrNenhumDado)
}
