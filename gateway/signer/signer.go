// Package signer forwards transaction batches to the external wallet for
// signing. Key material never enters this process: the wallet widget holds
// the keys and this client only ships it shaped payloads and reads back the
// execution outcomes.
package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/nearsat-labs/wallet-gateway/gateway/models"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "signer").Logger()
}

// WalletRPC speaks the wallet widget's request/response protocol over HTTP.
type WalletRPC struct {
	httpClient *http.Client
	endpoint   string
}

// NewWalletRPC creates a signer client against the wallet endpoint.
func NewWalletRPC(endpoint string) *WalletRPC {
	return &WalletRPC{
		// Signing waits on the user; allow far longer than a read call.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		endpoint:   endpoint,
	}
}

type walletRequest struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

type walletResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error,omitempty"`
}

// SignAndSendTransactions submits the whole batch as one atomic request.
// The raw result is returned untouched; the composer normalizes its shape.
func (w *WalletRPC) SignAndSendTransactions(ctx context.Context, txs []models.Transaction) (json.RawMessage, error) {
	payload, err := json.Marshal(walletRequest{
		Method: "signAndSendTransactions",
		Params: map[string]any{"transactions": txs},
	})
	if err != nil {
		return nil, fmt.Errorf("encode signer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signer request failed: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signer HTTP %d: %s", resp.StatusCode, string(body))
	}

	var wr walletResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("failed to parse signer response: %w", err)
	}
	if wr.Error != "" {
		return nil, fmt.Errorf("signer rejected batch: %s", wr.Error)
	}

	log.Info().Int("transactions", len(txs)).Msg("Batch signed and submitted")
	return wr.Result, nil
}
