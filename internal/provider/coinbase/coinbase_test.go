package coinbase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricetracker/internal/httpx"
)

func TestFetch_SpotPrice(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"base":"BTC","currency":"USD","amount":"65000.00"}}`))
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL}, httpx.New(5*time.Second))
	q, err := p.Fetch(context.Background(), "btc-usd")
	require.NoError(t, err)
	assert.Equal(t, "/v2/prices/BTC-USD/spot", gotPath)
	assert.Equal(t, 65000.00, q.Price)
	assert.Equal(t, "btc-usd", q.Symbol)
	assert.Equal(t, "Coinbase", q.Source)
}

func TestFetch_Non2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"id":"not_found"}]}`, http.StatusNotFound)
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL}, httpx.New(5*time.Second))
	_, err := p.Fetch(context.Background(), "NOPE-USD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetch_MissingAmountFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"base":"BTC","currency":"USD"}}`))
	}))
	defer srv.Close()

	p := New(Config{BaseURL: srv.URL}, httpx.New(5*time.Second))
	_, err := p.Fetch(context.Background(), "BTC-USD")
	require.Error(t, err)
}
