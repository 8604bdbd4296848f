// Package bridge quotes value movement between the custody chain and the
// execution chain. The fee math itself lives in the external bridge relayer;
// this package formats inputs, calls it, and shapes the result.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "bridge").Logger()
}

// DepositOptions tune a deposit-amount calculation.
type DepositOptions struct {
	// CSNA is the derived execution-chain account receiving the deposit.
	CSNA string
	// NewAccountMinDeposit requires the first-deposit minimum when true.
	NewAccountMinDeposit bool
}

// DepositResult is the relayer's deposit calculation; raw 8-decimal units.
type DepositResult struct {
	ProtocolFee   string `json:"protocolFee"`
	ReceiveAmount string `json:"receiveAmount"`
}

// WithdrawParams identify a withdrawal to quote.
type WithdrawParams struct {
	// Amount is the raw 8-decimal amount leaving the execution chain.
	Amount string
	// CSNA is the derived execution-chain account paying.
	CSNA string
	// BTCAddress is the custody-chain destination.
	BTCAddress string
	// Env is the runtime network tag (mainnet, testnet, test).
	Env string
}

// WithdrawResult is the relayer's withdrawal calculation; raw units.
// ErrorMsg is set when the withdrawal is ineligible (below dust, no
// liquidity); that is business data, not a transport failure.
type WithdrawResult struct {
	GasFee        string `json:"gasFee"`
	WithdrawFee   string `json:"withdrawFee"`
	ReceiveAmount string `json:"receiveAmount"`
	ErrorMsg      string `json:"errorMsg,omitempty"`
}

// Client is the external fee calculator. Implementations are the source of
// truth for bridge fee math; callers only format inputs and outputs.
type Client interface {
	GetDepositAmount(ctx context.Context, rawAmount string, opts DepositOptions) (DepositResult, error)
	CalculateGasFee(ctx context.Context, btcAccount, rawAmount string) (string, error)
	CalculateWithdraw(ctx context.Context, params WithdrawParams) (WithdrawResult, error)
}

// HTTPClient talks to the bridge relayer API over HTTP with simple
// per-request retries. Hard failures propagate; retry policy beyond this
// belongs to the refresh controller.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
	retryDelay time.Duration
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a relayer client for baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		maxRetries: 2,
		retryDelay: 500 * time.Millisecond,
	}
}

type relayerEnvelope struct {
	ResultData json.RawMessage `json:"result_data"`
}

func (c *HTTPClient) get(ctx context.Context, path string, query url.Values, out any) error {
	var lastErr error
	retryDelay := c.retryDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
		}

		fullURL := c.baseURL + path + "?" + query.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return err
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

		var envelope relayerEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return fmt.Errorf("failed to parse relayer response: %w", err)
		}
		if err := json.Unmarshal(envelope.ResultData, out); err != nil {
			return fmt.Errorf("failed to parse relayer result: %w", err)
		}
		return nil
	}
	return fmt.Errorf("relayer request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// GetDepositAmount asks the relayer what a deposit of rawAmount yields.
func (c *HTTPClient) GetDepositAmount(ctx context.Context, rawAmount string, opts DepositOptions) (DepositResult, error) {
	q := url.Values{}
	q.Set("amount", rawAmount)
	q.Set("csna", opts.CSNA)
	q.Set("newAccountMinDepositAmount", strconv.FormatBool(opts.NewAccountMinDeposit))

	var res DepositResult
	if err := c.get(ctx, "/v1/depositAmount", q, &res); err != nil {
		return DepositResult{}, err
	}
	return res, nil
}

// CalculateGasFee asks the relayer for the custody-chain gas fee of a
// deposit of rawAmount from btcAccount. Returned in raw 8-decimal units.
func (c *HTTPClient) CalculateGasFee(ctx context.Context, btcAccount, rawAmount string) (string, error) {
	q := url.Values{}
	q.Set("btcAccount", btcAccount)
	q.Set("amount", rawAmount)

	var res struct {
		GasFee string `json:"gasFee"`
	}
	if err := c.get(ctx, "/v1/gasFee", q, &res); err != nil {
		return "", err
	}
	return res.GasFee, nil
}

// CalculateWithdraw asks the relayer to quote a withdrawal.
func (c *HTTPClient) CalculateWithdraw(ctx context.Context, params WithdrawParams) (WithdrawResult, error) {
	q := url.Values{}
	q.Set("amount", params.Amount)
	q.Set("csna", params.CSNA)
	q.Set("btcAddress", params.BTCAddress)
	q.Set("env", params.Env)

	var res WithdrawResult
	if err := c.get(ctx, "/v1/withdraw", q, &res); err != nil {
		return WithdrawResult{}, err
	}
	return res, nil
}
