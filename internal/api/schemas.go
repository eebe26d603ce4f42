package api

import (
	"time"

	"github.com/rodrigomv/aportes-btc/internal/domain"
	"github.com/shopspring/decimal"
)

type AporteRequest struct {
	DataAporte     string           `json:"data_aporte" validate:"required"`
	ValorInvestido decimal.Decimal  `json:"valor_investido" validate:"required"`
	Bitcoin        decimal.Decimal  `json:"bitcoin" validate:"required"`
	Cotacao        *decimal.Decimal `json:"cotacao,omitempty"`
	Moeda          string           `json:"moeda" validate:"required"`
	OrigemAporte   string           `json:"origem_aporte" validate:"required"`
}

type AtualizaAporteRequest struct {
	DataAporte     *string          `json:"data_aporte,omitempty"`
	ValorInvestido *decimal.Decimal `json:"valor_investido,omitempty"`
	Bitcoin        *decimal.Decimal `json:"bitcoin,omitempty"`
	Cotacao        *decimal.Decimal `json:"cotacao,omitempty"`
	Moeda          *string          `json:"moeda,omitempty"`
	OrigemAporte   *string          `json:"origem_aporte,omitempty"`
}

type ImportarTextoRequest struct {
	Texto string `json:"texto" validate:"required"`
}

type CandidatoResponse struct {
	DataAporte      *string          `json:"data_aporte,omitempty"`
	ValorInvestido  *decimal.Decimal `json:"valor_investido,omitempty"`
	Bitcoin         *decimal.Decimal `json:"bitcoin,omitempty"`
	Cotacao         *decimal.Decimal `json:"cotacao,omitempty"`
	CamposExtraidos []string         `json:"campos_extraidos"`
}

func NovoCandidatoResponse(c *domain.AporteParcial) CandidatoResponse {
	resp := CandidatoResponse{
		ValorInvestido:  c.ValorInvestido,
		Bitcoin:         c.Bitcoin,
		Cotacao:         c.Cotacao,
		CamposExtraidos: c.CamposExtraidos(),
	}
	if c.DataAporte != nil {
		data := c.DataAporte.Format("2006-01-02")
		resp.DataAporte = &data
	}
	return resp
}

type HealthResponse struct {
	Status    string                   `json:"status"`
	Version   string                   `json:"version"`
	Timestamp time.Time                `json:"timestamp"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

type ServiceHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

type SystemStatsResponse struct {
	Database DatabaseStats `json:"database"`
	Cache    CacheStats    `json:"cache"`
	API      APIStats      `json:"api"`
}

type DatabaseStats struct {
	ActiveConnections int32  `json:"active_connections"`
	IdleConnections   int32  `json:"idle_connections"`
	TotalConnections  int32  `json:"total_connections"`
	WaitCount         int64  `json:"wait_count"`
	WaitDuration      string `json:"wait_duration"`
}

type CacheStats struct {
	MemoryUsed string `json:"memory_used"`
}

type APIStats struct {
	ActiveGoroutines int `json:"active_goroutines"`
}

type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      int       `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
