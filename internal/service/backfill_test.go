package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rodrigomv/aportes-btc/pkg/logger"
)

func init() {
	_ = logger.Init("error", true)
}

func TestVarrerFalhaDeLinhaNaoInterrompe(t *testing.T) {
	dia := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	pendentes := []linhaBackfill{
		{id: "a1", userID: "u1", data: dia},
		{id: "a2", userID: "u1", data: dia},
		{id: "a3", userID: "u2", data: dia},
		{id: "a4", userID: "u3", data: dia},
	}

	var visitadas []string
	atualizar := func(_ context.Context, l linhaBackfill) error {
		visitadas = append(visitadas, l.id)
		if l.id == "a1" || l.id == "a4" {
			return errors.New("cotação indisponível")
		}
		return nil
	}

	resultado, usuarios := varrer(context.Background(), pendentes, atualizar)

	// a falha de a1 não impede a2..a4 de serem processadas
	assert.Equal(t, []string{"a1", "a2", "a3", "a4"}, visitadas)

	assert.Equal(t, 4, resultado.Pendentes)
	assert.Equal(t, 2, resultado.Atualizados)
	assert.Equal(t, 2, resultado.Falhas)

	require.Len(t, resultado.DetalheFalha, 2)
	assert.Contains(t, resultado.DetalheFalha[0], "a1")
	assert.Contains(t, resultado.DetalheFalha[1], "a4")

	// u3 só teve linhas com falha: nada a invalidar
	assert.Equal(t, map[string]bool{"u1": true, "u2": true}, usuarios)
}

func TestVarrerSemPendentes(t *testing.T) {
	resultado, usuarios := varrer(context.Background(), nil,
		func(context.Context, linhaBackfill) error {
			t.Fatal("não deve ser chamado sem pendentes")
			return nil
		})

	assert.Equal(t, 0, resultado.Pendentes)
	assert.Equal(t, 0, resultado.Atualizados)
	assert.Equal(t, 0, resultado.Falhas)
	assert.Empty(t, usuarios)
}
