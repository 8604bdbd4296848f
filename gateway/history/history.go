// Package history lists the custody-chain transactions recorded by the
// bridge relayer for a wallet's BTC public key.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nearsat-labs/wallet-gateway/gateway/models"
)

// Client queries the relayer history endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a history client for baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
	}
}

// BTCTxHistory returns one page of custody-chain transactions for btcPubKey.
// Records pass through untouched; the relayer owns their shape.
func (c *Client) BTCTxHistory(ctx context.Context, btcPubKey string, page, pageSize int) ([]models.HistoryRecord, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	q := url.Values{}
	q.Set("btcPubKey", btcPubKey)
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/btcTxsHistory?"+q.Encode(), nil)
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

	var envelope struct {
		ResultData []models.HistoryRecord `json:"result_data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse history response: %w", err)
	}
	return envelope.ResultData, nil
}
