package nearclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zeebo/assert"
)

func testConfig() FailoverConfig {
	return FailoverConfig{
		MaxRetries:          1,
		RetryDelay:          5 * time.Millisecond,
		HealthCheckInterval: time.Hour,
		Timeout:             2 * time.Second,
	}
}

func rpcHandler(t *testing.T, handle func(method string, params map[string]any) any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		var req struct {
			Method string         `json:"method"`
			Params map[string]any `json:"params"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		raw, err := json.Marshal(handle(req.Method, req.Params))
		assert.NoError(t, err)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"result":  json.RawMessage(raw),
		})
	}
}

func TestViewFunctionEncodesArgs(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, func(method string, params map[string]any) any {
		assert.Equal(t, "query", method)
		assert.Equal(t, "call_function", params["request_type"])
		assert.Equal(t, "final", params["finality"])
		assert.Equal(t, "token.near", params["account_id"])
		assert.Equal(t, "ft_balance_of", params["method_name"])

		argsRaw, err := base64.StdEncoding.DecodeString(params["args_base64"].(string))
		assert.NoError(t, err)
		args := map[string]any{}
		assert.NoError(t, json.Unmarshal(argsRaw, &args))
		assert.Equal(t, "alice.near", args["account_id"])

		return struct {
			Result []byte   `json:"result"`
			Logs   []string `json:"logs"`
		}{Result: []byte(`"12345"`)}
	}))
	defer server.Close()

	client, err := NewWithFailover(server.URL, nil, testConfig())
	assert.NoError(t, err)
	defer client.Close()

	raw, err := client.ViewFunction(context.Background(), "token.near", "ft_balance_of", map[string]any{
		"account_id": "alice.near",
	})
	assert.NoError(t, err)

	var balance string
	assert.NoError(t, json.Unmarshal(raw, &balance))
	assert.Equal(t, "12345", balance)
}

func TestViewAccount(t *testing.T) {
	server := httptest.NewServer(rpcHandler(t, func(method string, params map[string]any) any {
		assert.Equal(t, "view_account", params["request_type"])
		return AccountView{Amount: "5000000000000000000000000", StorageUsage: 1000}
	}))
	defer server.Close()

	client, err := NewWithFailover(server.URL, nil, testConfig())
	assert.NoError(t, err)
	defer client.Close()

	account, err := client.ViewAccount(context.Background(), "alice.near")
	assert.NoError(t, err)
	assert.Equal(t, "5000000000000000000000000", account.Amount)
	assert.Equal(t, uint64(1000), account.StorageUsage)
}

func TestFailoverToBackup(t *testing.T) {
	var primaryHits int64
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&primaryHits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer primary.Close()

	backup := httptest.NewServer(rpcHandler(t, func(method string, params map[string]any) any {
		return AccountView{Amount: "1"}
	}))
	defer backup.Close()

	client, err := NewWithFailover(primary.URL, []string{backup.URL}, testConfig())
	assert.NoError(t, err)
	defer client.Close()

	account, err := client.ViewAccount(context.Background(), "alice.near")
	assert.NoError(t, err)
	assert.Equal(t, "1", account.Amount)
	// every retry hit the broken primary before failing over
	assert.True(t, atomic.LoadInt64(&primaryHits) >= 2)
}

func TestRPCErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"error":   map[string]any{"code": -32000, "message": "account does not exist"},
		})
	}))
	defer server.Close()

	client, err := NewWithFailover(server.URL, nil, testConfig())
	assert.NoError(t, err)
	defer client.Close()

	_, err = client.ViewAccount(context.Background(), "ghost.near")
	assert.Error(t, err)
}

func TestRejectsEmptyPrimaryURL(t *testing.T) {
	_, err := NewWithFailover("", nil, testConfig())
	assert.Error(t, err)
}
