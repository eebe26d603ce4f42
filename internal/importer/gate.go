package importer

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Gate valida o arquivo antes de qualquer parse: tamanho máximo em MB e
// lista de extensões permitidas.
type Gate struct {
	maxBytes  int64
	extensoes map[string]bool
}

func NewGate(maxSizeMB int, extensoes []string) *Gate {
	permitidas := make(map[string]bool, len(extensoes))
	for _, ext := range extensoes {
		permitidas[strings.ToLower(strings.TrimSpace(ext))] = true
	}

	return &Gate{
		maxBytes:  int64(maxSizeMB) * 1024 * 1024,
		extensoes: permitidas,
	}
}

func (g *Gate) Validar(nome string, tamanho int64) error {
	ext := strings.ToLower(filepath.Ext(nome))
	if !g.extensoes[ext] {
		return fmt.Errorf("extensão não permitida: %s", ext)
	}

	if tamanho <= 0 {
		return fmt.Errorf("arquivo vazio: %s", nome)
	}

	if tamanho > g.maxBytes {
		return fmt.Errorf("arquivo excede o limite de %d MB", g.maxBytes/(1024*1024))
	}

	return nil
}
