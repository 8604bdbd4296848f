// Package swap quotes and executes token swaps on the execution chain
// through an external path-finding aggregator. The aggregator owns the
// routing math; this package converts units, derives slippage and price
// impact, and shapes the resulting transaction.
package swap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nearsat-labs/wallet-gateway/gateway/models"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "swap").Logger()
}

// Defaults applied when a request leaves the tuning knobs unset.
const (
	DefaultPathDeep = 3
	DefaultSlippage = 0.005
	// probeSlippage is used for the price-impact reference trade, where the
	// quote is never executed and tight slippage keeps the path stable.
	probeSlippage = 0.001
)

// PathParams are the query parameters of the path-finding endpoints.
// AmountIn is in raw units of the input token.
type PathParams struct {
	TokenIn     string
	TokenOut    string
	AmountIn    string
	PathDeep    int
	Slippage    float64
	RouterCount int
}

// FindPathResponse is the aggregator's routing result; raw units.
type FindPathResponse struct {
	Routes      []models.SwapRoute `json:"routes"`
	ContractIn  string             `json:"contract_in"`
	ContractOut string             `json:"contract_out"`
	AmountIn    string             `json:"amount_in"`
	AmountOut   string             `json:"amount_out"`
}

// APIClient queries the path-finding backend with endpoint failover.
type APIClient struct {
	httpClient *http.Client
	primaryURL string
	backupURLs []string
	currentURL string
	mu         sync.RWMutex
	maxRetries int
	retryDelay time.Duration
}

// NewAPIClient creates the client; backups are optional.
func NewAPIClient(primaryURL string, backupURLs ...string) *APIClient {
	return &APIClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		primaryURL: primaryURL,
		backupURLs: backupURLs,
		currentURL: primaryURL,
		maxRetries: 2,
		retryDelay: 500 * time.Millisecond,
	}
}

func (c *APIClient) getCurrentURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentURL
}

// failover rotates to the next endpoint in order.
func (c *APIClient) failover() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.backupURLs) == 0 {
		return false
	}
	allURLs := append([]string{c.primaryURL}, c.backupURLs...)
	for i, u := range allURLs {
		if u == c.currentURL {
			c.currentURL = allURLs[(i+1)%len(allURLs)]
			log.Info().Str("url", c.currentURL).Msg("Failover to endpoint")
			return true
		}
	}
	c.currentURL = c.primaryURL
	return true
}

func (c *APIClient) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error
	retryDelay := c.retryDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
		}

		fullURL := c.getCurrentURL() + path + "?" + query.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
			continue
		}
		return body, nil
	}

	if c.failover() {
		fullURL := c.getCurrentURL() + path + "?" + query.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failover request failed: %w (original: %w)", err, lastErr)
		}
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failover read failed: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("failover HTTP %d: %s", resp.StatusCode, string(body))
		}
		return body, nil
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", c.maxRetries+1, lastErr)
}

func (p PathParams) values() url.Values {
	q := url.Values{}
	q.Set("tokenIn", p.TokenIn)
	q.Set("tokenOut", p.TokenOut)
	q.Set("amountIn", p.AmountIn)
	q.Set("pathDeep", strconv.Itoa(p.PathDeep))
	q.Set("slippage", strconv.FormatFloat(p.Slippage, 'f', -1, 64))
	if p.RouterCount > 0 {
		q.Set("routerCount", strconv.Itoa(p.RouterCount))
	}
	return q
}

type resultEnvelope struct {
	ResultData json.RawMessage `json:"result_data"`
}

// FindPath asks the aggregator for the best route.
func (c *APIClient) FindPath(ctx context.Context, params PathParams) (FindPathResponse, error) {
	body, err := c.doRequest(ctx, "/findPath", params.values())
	if err != nil {
		return FindPathResponse{}, err
	}
	var envelope resultEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return FindPathResponse{}, fmt.Errorf("failed to parse findPath response: %w", err)
	}
	var res FindPathResponse
	if err := json.Unmarshal(envelope.ResultData, &res); err != nil {
		return FindPathResponse{}, fmt.Errorf("failed to parse findPath result: %w", err)
	}
	return res, nil
}

// SwapPath asks the aggregator for the serialized method call that executes
// the routed swap. The args payload carries a nested instruction blob under
// "msg" as a JSON-encoded string.
func (c *APIClient) SwapPath(ctx context.Context, params PathParams) (models.FunctionCall, error) {
	body, err := c.doRequest(ctx, "/swapPath", params.values())
	if err != nil {
		return models.FunctionCall{}, err
	}
	var envelope resultEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return models.FunctionCall{}, fmt.Errorf("failed to parse swapPath response: %w", err)
	}
	var res models.FunctionCall
	if err := json.Unmarshal(envelope.ResultData, &res); err != nil {
		return models.FunctionCall{}, fmt.Errorf("failed to parse swapPath result: %w", err)
	}
	return res, nil
}
