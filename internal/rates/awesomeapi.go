package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rodrigomv/aportes-btc/pkg/metrics"
	"github.com/shopspring/decimal"
)

// ClienteAwesome consulta a cotação USD/BRL diária da AwesomeAPI
// (economia.awesomeapi.com.br), chaveada por dia YYYYMMDD.
type ClienteAwesome struct {
	baseURL    string
	httpClient *http.Client
}

func NewClienteAwesome(baseURL string, timeout time.Duration) *ClienteAwesome {
	if baseURL == "" {
		baseURL = "https://economia.awesomeapi.com.br/json/daily/USD-BRL"
	}

	return &ClienteAwesome{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type cotacaoDiaria struct {
	Bid string `json:"bid"`
}

func (c *ClienteAwesome) CotacaoDia(ctx context.Context, dia string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/1?start_date=%s&end_date=%s", c.baseURL, dia, dia)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("erro ao criar request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordCotacaoLookup("awesomeapi", "error")
		return decimal.Zero, fmt.Errorf("erro ao consultar cotação: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordCotacaoLookup("awesomeapi", "error")
		return decimal.Zero, fmt.Errorf("status code %d para o dia %s", resp.StatusCode, dia)
	}

	var cotacoes []cotacaoDiaria
	if err := json.NewDecoder(resp.Body).Decode(&cotacoes); err != nil {
		metrics.RecordCotacaoLookup("awesomeapi", "error")
		return decimal.Zero, fmt.Errorf("erro ao decodificar resposta: %w", err)
	}

	if len(cotacoes) == 0 {
		metrics.RecordCotacaoLookup("awesomeapi", "empty")
		return decimal.Zero, fmt.Errorf("nenhuma cotação para o dia %s", dia)
	}

	bid, err := decimal.NewFromString(cotacoes[0].Bid)
	if err != nil {
		metrics.RecordCotacaoLookup("awesomeapi", "error")
		return decimal.Zero, fmt.Errorf("bid inválido %q: %w", cotacoes[0].Bid, err)
	}

	metrics.RecordCotacaoLookup("awesomeapi", "success")
	return bid, nil
}
