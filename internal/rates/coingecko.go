package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rodrigomv/aportes-btc/internal/domain"
	"github.com/rodrigomv/aportes-btc/pkg/metrics"
	"github.com/shopspring/decimal"
)

// ClienteCoinGecko consome o preço corrente do BTC e as variações
// percentuais nas janelas dia/semana/mês/ano.
type ClienteCoinGecko struct {
	baseURL    string
	httpClient *http.Client
}

func NewClienteCoinGecko(baseURL string, timeout time.Duration) *ClienteCoinGecko {
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}

	return &ClienteCoinGecko{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *ClienteCoinGecko) CotacaoAtual(ctx context.Context) (*domain.CotacaoAtual, error) {
	url := fmt.Sprintf("%s/simple/price?ids=bitcoin&vs_currencies=usd,brl", c.baseURL)

	var corpo map[string]map[string]decimal.Decimal
	if err := c.get(ctx, url, &corpo); err != nil {
		metrics.RecordCotacaoLookup("coingecko", "error")
		return nil, err
	}

	precos, ok := corpo["bitcoin"]
	if !ok {
		metrics.RecordCotacaoLookup("coingecko", "empty")
		return nil, fmt.Errorf("resposta sem cotação do bitcoin")
	}

	metrics.RecordCotacaoLookup("coingecko", "success")
	return &domain.CotacaoAtual{
		Usd:       precos["usd"],
		Brl:       precos["brl"],
		Timestamp: time.Now(),
	}, nil
}

type variacaoResponse struct {
	MarketData struct {
		Change24h float64 `json:"price_change_percentage_24h"`
		Change7d  float64 `json:"price_change_percentage_7d"`
		Change30d float64 `json:"price_change_percentage_30d"`
		Change1y  float64 `json:"price_change_percentage_1y"`
	} `json:"market_data"`
}

func (c *ClienteCoinGecko) Variacao(ctx context.Context) (*domain.VariacaoPreco, error) {
	url := fmt.Sprintf("%s/coins/bitcoin?localization=false&tickers=false&community_data=false&developer_data=false", c.baseURL)

	var corpo variacaoResponse
	if err := c.get(ctx, url, &corpo); err != nil {
		metrics.RecordCotacaoLookup("coingecko", "error")
		return nil, err
	}

	metrics.RecordCotacaoLookup("coingecko", "success")
	return &domain.VariacaoPreco{
		Dia:       corpo.MarketData.Change24h,
		Semana:    corpo.MarketData.Change7d,
		Mes:       corpo.MarketData.Change30d,
		Ano:       corpo.MarketData.Change1y,
		Timestamp: time.Now(),
	}, nil
}

func (c *ClienteCoinGecko) get(ctx context.Context, url string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("erro ao criar request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("erro ao consultar preço: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status code %d: %s", resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("erro ao decodificar resposta: %w", err)
	}

	return nil
}
