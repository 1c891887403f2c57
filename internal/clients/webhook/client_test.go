package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharAka/Shaharstocks-sub005/internal/interfaces"
)

func TestSend(t *testing.T) {
	var received interfaces.NotificationPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	score := 82.5
	client := NewClient(server.URL)
	err := client.Send(context.Background(), &interfaces.NotificationPayload{
		Ticker:          "AAPL",
		CompanyName:     "Apple Inc.",
		Recommendation:  "BUY",
		CurrentPrice:    231.5,
		ConfidenceScore: &score,
	})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", received.Ticker)
	require.NotNil(t, received.ConfidenceScore)
	assert.InDelta(t, 82.5, *received.ConfidenceScore, 0.001)
}

func TestSendFailureSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.Send(context.Background(), &interfaces.NotificationPayload{Ticker: "AAPL"})
	assert.Error(t, err)
}

func TestSendNoURLIsNoop(t *testing.T) {
	client := NewClient("")
	err := client.Send(context.Background(), &interfaces.NotificationPayload{Ticker: "AAPL"})
	assert.NoError(t, err)
}
