package importer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodrigomv/aportes-btc/internal/domain"
)

func TestParserCSVCompleto(t *testing.T) {
	csv := "data,valor,bitcoin,cotacao,origem\n" +
		"2024-01-15,1000.00,0.015,66666.67,corretora\n" +
		"2024-02-15,500,00,0.0075,,p2p\n"

	// segunda linha propositalmente quebrada: "500,00" vira duas colunas
	parser := NewParserCSV()
	resultado, err := parser.ParseFile(strings.NewReader(csv))
	require.NoError(t, err)

	require.Len(t, resultado.Candidatos, 1)
	require.Len(t, resultado.Erros, 1)

	c := resultado.Candidatos[0]
	require.NotNil(t, c.DataAporte)
	assert.Equal(t, "2024-01-15", c.DataAporte.Format("2006-01-02"))
	assert.True(t, c.ValorInvestido.Equal(dec(t, "1000.00")))
	assert.True(t, c.Bitcoin.Equal(dec(t, "0.015")))
	require.NotNil(t, c.Cotacao)
	assert.True(t, c.Cotacao.Equal(dec(t, "66666.67")))
	require.NotNil(t, c.OrigemAporte)
	assert.Equal(t, domain.OrigemCorretora, *c.OrigemAporte)
}

func TestParserCSVColunasOpcionaisAusentes(t *testing.T) {
	csv := "data,valor,bitcoin\n2024-01-15,1000.00,0.015\n"

	parser := NewParserCSV()
	resultado, err := parser.ParseFile(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, resultado.Candidatos, 1)

	// ausente fica nil, não zero: o resolvedor distingue os dois casos
	c := resultado.Candidatos[0]
	assert.Nil(t, c.Cotacao)
	assert.Nil(t, c.OrigemAporte)
}

func TestParserCSVCotacaoVazia(t *testing.T) {
	csv := "data,valor,bitcoin,cotacao,origem\n2024-01-15,1000.00,0.015,,corretora\n"

	parser := NewParserCSV()
	resultado, err := parser.ParseFile(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, resultado.Candidatos, 1)

	c := resultado.Candidatos[0]
	assert.Nil(t, c.Cotacao)
	require.NotNil(t, c.OrigemAporte)
	assert.Equal(t, domain.OrigemCorretora, *c.OrigemAporte)
}

func TestParserCSVColunaObrigatoriaAusente(t *testing.T) {
	// sem a coluna bitcoin o arquivo inteiro é rejeitado
	csv := "data,valor,cotacao\n2024-01-15,1000.00,66666.67\n"

	parser := NewParserCSV()
	_, err := parser.ParseFile(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bitcoin")
}

func TestParserCSVErrosDeLinhaIndependentes(t *testing.T) {
	csv := "data,valor,bitcoin\n" +
		"2024-01-15,1000.00,0.015\n" +
		"data-ruim,1000.00,0.015\n" +
		"2024-03-15,abc,0.015\n" +
		"2024-04-15,2000.00,0.030\n"

	parser := NewParserCSV()
	resultado, err := parser.ParseFile(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Len(t, resultado.Candidatos, 2)
	require.Len(t, resultado.Erros, 2)
	assert.Equal(t, 3, resultado.Erros[0].Linha)
	assert.Equal(t, 4, resultado.Erros[1].Linha)
}

func TestParserCSVSeparadorDecimalVirgula(t *testing.T) {
	csv := "data,valor,bitcoin\n2024-01-15,\"1000,50\",\"0,015\"\n"

	parser := NewParserCSV()
	resultado, err := parser.ParseFile(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, resultado.Candidatos, 1)

	c := resultado.Candidatos[0]
	assert.True(t, c.ValorInvestido.Equal(dec(t, "1000.50")))
	assert.True(t, c.Bitcoin.Equal(dec(t, "0.015")))
}

func BenchmarkParserCSV(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("data,valor,bitcoin,cotacao,origem\n")
	for i := 0; i < 10000; i++ {
		sb.WriteString(fmt.Sprintf("2024-01-%02d,%d.00,0.0%d,,corretora\n",
			i%28+1, 100+i%900, 10+i%89))
	}
	csv := sb.String()

	parser := NewParserCSV()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := parser.ParseFile(strings.NewReader(csv)); err != nil {
			b.Fatal(err)
		}
	}
}
