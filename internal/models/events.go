package models

import "time"

// Stream event types form a closed set. Clients ignore unknown types.
const (
	EventConnected          = "connected"
	EventStockStatusChanged = "STOCK_STATUS_CHANGED"
	EventPriceUpdated       = "PRICE_UPDATED"
	EventNewStockAdded      = "NEW_STOCK_ADDED"
	EventStanceChanged      = "STANCE_CHANGED"
)

// StreamEvent is one JSON message pushed over the event channel. The typed
// payload fields are populated per event type; unused fields are omitted.
type StreamEvent struct {
	Type           string    `json:"type"`
	Ticker         string    `json:"ticker,omitempty"`
	Status         string    `json:"status,omitempty"`
	Price          float64   `json:"price,omitempty"`
	Change         float64   `json:"change,omitempty"`
	Recommendation string    `json:"recommendation,omitempty"`
	OldStance      string    `json:"old_stance,omitempty"`
	NewStance      string    `json:"new_stance,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
