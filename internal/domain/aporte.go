package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrValidacao = errors.New("aporte inválido")

// SatsPorBtc converte satoshis em BTC (1 BTC = 100.000.000 sats).
var SatsPorBtc = decimal.NewFromInt(100_000_000)

// toleranciaCotacao é o desvio relativo aceito entre uma cotação informada
// pelo usuário e valor_investido / bitcoin antes de rejeitar a tripla.
var toleranciaCotacao = decimal.NewFromFloat(0.01)

type Moeda string

const (
	MoedaBRL Moeda = "BRL"
	MoedaUSD Moeda = "USD"
)

func (m Moeda) Valida() bool {
	return m == MoedaBRL || m == MoedaUSD
}

type OrigemAporte string

const (
	OrigemCorretora OrigemAporte = "corretora"
	OrigemP2P       OrigemAporte = "p2p"
	OrigemPlanilha  OrigemAporte = "planilha"
	OrigemAjuste    OrigemAporte = "ajuste"
)

func (o OrigemAporte) Valida() bool {
	switch o {
	case OrigemCorretora, OrigemP2P, OrigemPlanilha, OrigemAjuste:
		return true
	}
	return false
}

type OrigemRegistro string

const (
	RegistroManual   OrigemRegistro = "manual"
	RegistroPlanilha OrigemRegistro = "planilha"
)

type UnidadeBtc string

const (
	UnidadeBTC  UnidadeBtc = "BTC"
	UnidadeSATS UnidadeBtc = "SATS"
)

type Aporte struct {
	ID             string           `db:"id" json:"id"`
	UserID         string           `db:"user_id" json:"user_id"`
	DataAporte     time.Time        `db:"data_aporte" json:"data_aporte"`
	ValorInvestido decimal.Decimal  `db:"valor_investido" json:"valor_investido"`
	Bitcoin        decimal.Decimal  `db:"bitcoin" json:"bitcoin"`
	Cotacao        decimal.Decimal  `db:"cotacao" json:"cotacao"`
	CotacaoMoeda   Moeda            `db:"cotacao_moeda" json:"cotacao_moeda"`
	Moeda          Moeda            `db:"moeda" json:"moeda"`
	OrigemAporte   OrigemAporte     `db:"origem_aporte" json:"origem_aporte"`
	OrigemRegistro OrigemRegistro   `db:"origem_registro" json:"origem_registro"`
	ValorUsd       *decimal.Decimal `db:"valor_usd" json:"valor_usd,omitempty"`
	CotacaoUsdBrl  *decimal.Decimal `db:"cotacao_usd_brl" json:"cotacao_usd_brl,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}

// Validar verifica os invariantes do registro antes de qualquer escrita.
// cotacaoInformada indica que a cotação veio do usuário, e não derivada de
// valor_investido / bitcoin; nesse caso a tripla precisa ser consistente.
func (a *Aporte) Validar(cotacaoInformada bool) error {
	if a.DataAporte.IsZero() {
		return fmt.Errorf("%w: data do aporte é obrigatória", ErrValidacao)
	}
	if !a.ValorInvestido.IsPositive() {
		return fmt.Errorf("%w: valor investido deve ser positivo", ErrValidacao)
	}
	if !a.Bitcoin.IsPositive() {
		return fmt.Errorf("%w: quantidade de bitcoin deve ser positiva", ErrValidacao)
	}
	if !a.Cotacao.IsPositive() {
		return fmt.Errorf("%w: cotação deve ser positiva", ErrValidacao)
	}
	if !a.Moeda.Valida() {
		return fmt.Errorf("%w: moeda desconhecida: %s", ErrValidacao, a.Moeda)
	}
	if !a.CotacaoMoeda.Valida() {
		return fmt.Errorf("%w: moeda da cotação desconhecida: %s", ErrValidacao, a.CotacaoMoeda)
	}
	if !a.OrigemAporte.Valida() {
		return fmt.Errorf("%w: origem desconhecida: %s", ErrValidacao, a.OrigemAporte)
	}

	if cotacaoInformada {
		derivada := a.ValorInvestido.Div(a.Bitcoin)
		desvio := a.Cotacao.Sub(derivada).Abs().Div(derivada)
		if desvio.GreaterThan(toleranciaCotacao) {
			return fmt.Errorf("%w: cotação %s inconsistente com valor/bitcoin (%s)",
				ErrValidacao, a.Cotacao, derivada.Round(2))
		}
	}

	return nil
}

// AporteParcial é o registro candidato produzido pelos importadores. Campo
// ausente fica nil, nunca zero, para o resolvedor distinguir os dois casos.
type AporteParcial struct {
	DataAporte     *time.Time
	ValorInvestido *decimal.Decimal
	Bitcoin        *decimal.Decimal
	Cotacao        *decimal.Decimal
	OrigemAporte   *OrigemAporte
}

// CamposExtraidos lista os campos presentes, na ordem do layout de importação.
func (p *AporteParcial) CamposExtraidos() []string {
	var campos []string
	if p.DataAporte != nil {
		campos = append(campos, "data")
	}
	if p.ValorInvestido != nil {
		campos = append(campos, "valor")
	}
	if p.Bitcoin != nil {
		campos = append(campos, "bitcoin")
	}
	if p.Cotacao != nil {
		campos = append(campos, "cotacao")
	}
	if p.OrigemAporte != nil {
		campos = append(campos, "origem")
	}
	return campos
}

func (p *AporteParcial) Vazio() bool {
	return len(p.CamposExtraidos()) == 0
}

type AporteFilter struct {
	UserID         string
	OrigemRegistro *OrigemRegistro
	StartDate      *time.Time
	EndDate        *time.Time
}
