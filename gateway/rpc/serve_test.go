package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zeebo/assert"

	"github.com/nearsat-labs/wallet-gateway/gateway/bridge"
	"github.com/nearsat-labs/wallet-gateway/gateway/models"
	"github.com/nearsat-labs/wallet-gateway/gateway/store"
)

type fakeRelayer struct {
	withdraw bridge.WithdrawResult
}

func (f *fakeRelayer) GetDepositAmount(ctx context.Context, rawAmount string, opts bridge.DepositOptions) (bridge.DepositResult, error) {
	return bridge.DepositResult{ProtocolFee: "1000", ReceiveAmount: "99000"}, nil
}

func (f *fakeRelayer) CalculateGasFee(ctx context.Context, btcAccount, rawAmount string) (string, error) {
	return "1000", nil
}

func (f *fakeRelayer) CalculateWithdraw(ctx context.Context, params bridge.WithdrawParams) (bridge.WithdrawResult, error) {
	return f.withdraw, nil
}

func newTestServer(t *testing.T) (*httptest.Server, Deps) {
	t.Helper()

	wallet := store.NewWalletStore()
	tokens, err := store.NewTokenStore(nil, []string{"wrap.near", "nbtc.bridge.near"})
	assert.NoError(t, err)
	prices := store.NewPriceStore()

	deps := Deps{
		Estimator: bridge.NewEstimator(&fakeRelayer{
			withdraw: bridge.WithdrawResult{ErrorMsg: "amount below dust limit"},
		}, wallet, "mainnet"),
		Wallet: wallet,
		Tokens: tokens,
		Prices: prices,
	}

	rate := 0
	server, err := NewServer(context.Background(), &ServerConfig{
		Address:        "localhost:0",
		AllowedOrigins: []string{"*"},
		RatePerMinute:  &rate,
	}, deps)
	assert.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, deps
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	assert.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body any) (*http.Response, []byte) {
	t.Helper()
	raw, err := json.Marshal(body)
	assert.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	assert.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestChainsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	var chains []models.ChainInfo
	status := getJSON(t, ts.URL+"/v1/chains", &chains)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, len(chains))
	assert.Equal(t, "btc", chains[0].Chain)
}

func TestBridgeEstimateValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	// unknown chain
	status := getJSON(t, ts.URL+"/v1/bridge/estimate?chain=solana&amount=1", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// malformed btc address
	status = getJSON(t, ts.URL+"/v1/bridge/estimate?chain=btc&amount=1&btcAccount=nonsense!", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestBridgeEstimateIneligibilityIsData(t *testing.T) {
	ts, deps := newTestServer(t)
	deps.Wallet.SetIdentity(store.WalletIdentity{
		AccountID:    "alice.near",
		BTCAccountID: "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq",
	})

	var est models.BridgeEstimate
	status := getJSON(t, ts.URL+"/v1/bridge/estimate?chain=btc&amount=0.000001", &est)
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, est.CanBridge)
	assert.Equal(t, "amount below dust limit", est.Error)
}

func TestBridgeEstimateIdleWithoutWallet(t *testing.T) {
	ts, _ := newTestServer(t)

	var est models.BridgeEstimate
	status := getJSON(t, ts.URL+"/v1/bridge/estimate?chain=near&amount=1", &est)
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, est.CanBridge)
	assert.Equal(t, "0", est.ReceiveAmount)
}

func TestSendValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := postJSON(t, ts.URL+"/v1/send", models.SendRequest{
		Token:     "usdt.near",
		Recipient: "NOT VALID",
		Amount:    "1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postJSON(t, ts.URL+"/v1/send", models.SendRequest{
		Token:     "usdt.near",
		Recipient: "bob.near",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWalletLifecycle(t *testing.T) {
	ts, deps := newTestServer(t)

	resp, _ := postJSON(t, ts.URL+"/v1/wallet/connect", map[string]string{
		"accountId":    "alice.near",
		"btcAccountId": "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq",
		"btcPublicKey": "02abcdef",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, deps.Wallet.Connected())

	resp, _ = postJSON(t, ts.URL+"/v1/wallet/disconnect", struct{}{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, deps.Wallet.Connected())

	// bad identity never lands in the store
	resp, _ = postJSON(t, ts.URL+"/v1/wallet/connect", map[string]string{
		"accountId": "BAD ACCOUNT",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, deps.Wallet.Connected())
}

func TestHistoryRequiresWallet(t *testing.T) {
	ts, _ := newTestServer(t)
	status := getJSON(t, ts.URL+"/v1/history", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPricesEndpoint(t *testing.T) {
	ts, deps := newTestServer(t)
	deps.Prices.SetAll(map[string]string{"NEAR": "5.1"})

	var prices map[string]string
	status := getJSON(t, ts.URL+"/v1/prices", &prices)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "5.1", prices["NEAR"])
}

func TestHiddenTokensValidation(t *testing.T) {
	ts, deps := newTestServer(t)

	resp, _ := postJSON(t, ts.URL+"/v1/tokens/hidden", map[string][]string{
		"tokens": {"wrap.near"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.DeepEqual(t, []string{"wrap.near"}, deps.Tokens.HiddenTokens())

	resp, _ = postJSON(t, ts.URL+"/v1/tokens/hidden", map[string][]string{
		"tokens": {"NOT A CONTRACT"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/server/health", nil))
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/server/ready", nil))
}
