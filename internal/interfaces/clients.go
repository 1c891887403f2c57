package interfaces

import (
	"context"

	"github.com/shaharAka/Shaharstocks-sub005/internal/models"
)

// FactSource supplies raw metric measurements and price history per
// subject. It returns models.ErrDataUnavailable when the upstream has no
// data — it never substitutes zeros.
type FactSource interface {
	FetchFacts(ctx context.Context, ticker string) (*models.FactSet, error)
	FetchMacro(ctx context.Context, ticker string) (*models.MacroFacts, error)
}

// NotificationSender delivers a threshold-crossing alert to the outbound
// channel. Delivery failure is non-fatal to the pipeline.
type NotificationSender interface {
	Send(ctx context.Context, payload *NotificationPayload) error
}

// NotificationPayload is the contract the delivery collaborator accepts.
type NotificationPayload struct {
	Ticker          string   `json:"ticker"`
	CompanyName     string   `json:"companyName"`
	Recommendation  string   `json:"recommendation"`
	CurrentPrice    float64  `json:"currentPrice"`
	ConfidenceScore *float64 `json:"confidenceScore,omitempty"`
}
