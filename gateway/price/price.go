// Package price fetches the aggregator's token price list. Prices are
// advisory: they size the price-impact reference trade and drive fiat
// display, nothing settles against them.
package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client queries the aggregator price API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a price client for baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

type tokenPrice struct {
	Price   string `json:"price"`
	Symbol  string `json:"symbol"`
	Decimal int    `json:"decimal"`
}

// QueryPrices returns fiat prices keyed by symbol. Wrapped and bridged
// representations are aliased to the symbols users actually see: the native
// symbol inherits its wrapped price and the bridged BTC token inherits the
// wrapped-BTC price.
func (c *Client) QueryPrices(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/list-token-price", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var listing map[string]tokenPrice
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("failed to parse price list: %w", err)
	}

	prices := make(map[string]string, len(listing))
	for _, p := range listing {
		prices[p.Symbol] = p.Price
	}
	alias(prices, "NEAR", "wNEAR")
	alias(prices, "WETH", "ETH")
	alias(prices, "BTC", "WBTC")
	alias(prices, "NBTC", "WBTC")
	return prices, nil
}

func alias(prices map[string]string, dst, src string) {
	if p, ok := prices[src]; ok {
		prices[dst] = p
	}
}
