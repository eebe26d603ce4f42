package importer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizarDecimal aceita "," ou "." como separador decimal e devolve um
// decimal normalizado. É a regra dos arquivos CSV, onde não há separador de
// milhar: um único separador é sempre decimal.
func NormalizarDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("valor vazio")
	}

	s = strings.Replace(s, ",", ".", -1)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("número inválido %q: %w", s, err)
	}
	return d, nil
}

// NormalizarDecimalTexto resolve a ambiguidade de separadores dos recibos
// colados, que misturam convenções ("R$506.358" usa "." como milhar,
// "R$ 100,00" usa "," como decimal). Regra adotada:
//   - os dois separadores presentes: o mais à direita é o decimal;
//   - só ",": separador decimal;
//   - só ".": grupos de exatamente 3 dígitos após uma parte inteira não nula
//     são milhar ("506.358" -> 506358); qualquer outro caso é decimal
//     ("0.015" -> 0.015, "0.00018959" -> 0.00018959).
func NormalizarDecimalTexto(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("valor vazio")
	}

	temVirgula := strings.Contains(s, ",")
	temPonto := strings.Contains(s, ".")

	switch {
	case temVirgula && temPonto:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.Replace(s, ".", "", -1)
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.Replace(s, ",", "", -1)
		}

	case temVirgula:
		s = strings.Replace(s, ",", ".", 1)

	case temPonto:
		if pontoComoMilhar(s) {
			s = strings.Replace(s, ".", "", -1)
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("número inválido %q: %w", s, err)
	}
	return d, nil
}

func pontoComoMilhar(s string) bool {
	partes := strings.Split(s, ".")
	if len(partes) < 2 {
		return false
	}
	if partes[0] == "" || partes[0] == "0" || len(partes[0]) > 3 {
		return false
	}
	for _, grupo := range partes[1:] {
		if len(grupo) != 3 {
			return false
		}
	}
	return true
}
