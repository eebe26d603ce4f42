package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizarDecimal(t *testing.T) {
	tests := []struct {
		entrada  string
		esperado string
	}{
		{"1000.00", "1000"},
		{"1000,00", "1000"},
		{"0.015", "0.015"},
		{"0,015", "0.015"},
		{" 42 ", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.entrada, func(t *testing.T) {
			d, err := NormalizarDecimal(tt.entrada)
			require.NoError(t, err)
			assert.Equal(t, tt.esperado, d.String())
		})
	}
}

func TestNormalizarDecimalInvalido(t *testing.T) {
	for _, entrada := range []string{"", "abc", "1.2.3,4,5"} {
		_, err := NormalizarDecimal(entrada)
		assert.Error(t, err, "entrada %q", entrada)
	}
}

func TestNormalizarDecimalTexto(t *testing.T) {
	tests := []struct {
		nome     string
		entrada  string
		esperado string
	}{
		{"milhar com ponto", "R$506.358", "506358"},
		{"decimal com vírgula", "R$ 100,00", "100"},
		{"sats com ponto de milhar", "18.959", "18959"},
		{"decimal com ponto e parte inteira zero", "0.015", "0.015"},
		{"btc com oito casas", "0.00018959", "0.00018959"},
		{"milhar e decimal juntos", "1.234,56", "1234.56"},
		{"formato americano", "1,234.56", "1234.56"},
		{"grupos múltiplos de milhar", "1.234.567", "1234567"},
		{"quatro dígitos após o ponto é decimal", "12.3456", "12.3456"},
		{"inteiro puro", "250", "250"},
	}

	for _, tt := range tests {
		t.Run(tt.nome, func(t *testing.T) {
			d, err := NormalizarDecimalTexto(tt.entrada)
			require.NoError(t, err)
			assert.Equal(t, tt.esperado, d.String())
		})
	}
}

func TestNormalizarDecimalTextoInvalido(t *testing.T) {
	for _, entrada := range []string{"", "R$", "sats"} {
		_, err := NormalizarDecimalTexto(entrada)
		assert.Error(t, err, "entrada %q", entrada)
	}
}
