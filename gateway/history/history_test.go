package history

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zeebo/assert"
)

func TestBTCTxHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/btcTxsHistory", r.URL.Path)
		assert.Equal(t, "02abcdef", r.URL.Query().Get("btcPubKey"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "25", r.URL.Query().Get("pageSize"))
		_, _ = w.Write([]byte(`{"result_data": [
			{"txHash": "abc", "status": "confirmed", "amount": "100000"},
			{"txHash": "def", "status": "pending"}
		]}`))
	}))
	defer server.Close()

	records, err := NewClient(server.URL).BTCTxHistory(context.Background(), "02abcdef", 2, 25)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(records))
	assert.Equal(t, "abc", records[0]["txHash"])
	// relayer-owned fields pass through untouched
	assert.Equal(t, "100000", records[0]["amount"])
}

func TestBTCTxHistoryPagingDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("pageSize"))
		_, _ = w.Write([]byte(`{"result_data": []}`))
	}))
	defer server.Close()

	records, err := NewClient(server.URL).BTCTxHistory(context.Background(), "02abcdef", 0, -5)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(records))
}
