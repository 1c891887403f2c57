package factsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

func TestFetchFacts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/facts/AAPL", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"ticker": "AAPL",
			"company_name": "Apple Inc.",
			"current_price": 231.5,
			"price_change": 1.2,
			"metrics": {"pe_ratio": 28.4, "revenue_growth": null},
			"price_history": [{"date": "2026-08-28", "open": 230, "high": 232, "low": 229, "close": 231.5, "volume": 1000}]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	facts, err := client.FetchFacts(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", facts.Ticker)
	assert.Equal(t, "Apple Inc.", facts.CompanyName)
	assert.InDelta(t, 231.5, facts.CurrentPrice, 0.001)

	require.NotNil(t, facts.Metric("pe_ratio"))
	assert.InDelta(t, 28.4, *facts.Metric("pe_ratio"), 0.001)
	assert.Nil(t, facts.Metric("revenue_growth"), "null measurement stays absent, never zero")

	require.Len(t, facts.PriceHistory, 1)
	assert.Equal(t, int64(1000), facts.PriceHistory[0].Volume)
}

func TestFetchFactsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	_, err := client.FetchFacts(context.Background(), "NOPE")
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

func TestFetchFactsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("upstream broke"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	_, err := client.FetchFacts(context.Background(), "AAPL")
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrDataUnavailable)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestFetchMacro(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/macro/AAPL", r.URL.Path)
		w.Write([]byte(`{"ticker": "AAPL", "sector": "Technology", "stance": "buy", "metrics": {"sector_momentum": 0.05}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	macro, err := client.FetchMacro(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Technology", macro.Sector)
	assert.Equal(t, "buy", macro.Stance)
	require.NotNil(t, macro.Metrics["sector_momentum"])
}
