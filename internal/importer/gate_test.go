package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGateValidar(t *testing.T) {
	gate := NewGate(5, []string{".csv", ".txt"})

	assert.NoError(t, gate.Validar("aportes.csv", 1024))
	assert.NoError(t, gate.Validar("RECIBO.TXT", 10))

	assert.Error(t, gate.Validar("aportes.xlsx", 1024), "extensão fora da lista")
	assert.Error(t, gate.Validar("aportes.csv", 0), "arquivo vazio")
	assert.Error(t, gate.Validar("aportes.csv", 6*1024*1024), "acima do limite")
}
