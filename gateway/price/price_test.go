package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zeebo/assert"
)

func TestQueryPricesAliases(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/list-token-price", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"wrap.near": {"price": "5.1", "symbol": "wNEAR", "decimal": 24},
			"eth.near":  {"price": "3000", "symbol": "ETH", "decimal": 18},
			"wbtc.near": {"price": "60000", "symbol": "WBTC", "decimal": 8},
			"usdt.near": {"price": "1.001", "symbol": "USDT", "decimal": 6}
		}`))
	}))
	defer server.Close()

	prices, err := NewClient(server.URL).QueryPrices(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, "1.001", prices["USDT"])
	// display symbols inherit wrapped/bridged prices
	assert.Equal(t, "5.1", prices["NEAR"])
	assert.Equal(t, "3000", prices["WETH"])
	assert.Equal(t, "60000", prices["BTC"])
	assert.Equal(t, "60000", prices["NBTC"])
}

func TestQueryPricesMissingSourceSkipsAlias(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"usdt.near": {"price": "1", "symbol": "USDT", "decimal": 6}}`))
	}))
	defer server.Close()

	prices, err := NewClient(server.URL).QueryPrices(context.Background())
	assert.NoError(t, err)

	_, ok := prices["NEAR"]
	assert.False(t, ok)
}

func TestQueryPricesUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).QueryPrices(context.Background())
	assert.Error(t, err)
}
