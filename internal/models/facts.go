package models

import "time"

// InsiderTransaction is one raw financial-event record as ingested.
type InsiderTransaction struct {
	ID         string    `json:"id" badgerhold:"key"`
	Ticker     string    `json:"ticker"`
	Insider    string    `json:"insider"`
	Role       string    `json:"role,omitempty"`
	Type       string    `json:"type"` // "buy" or "sell"
	Shares     float64   `json:"shares"`
	Price      float64   `json:"price"`
	Value      float64   `json:"value"`
	TradedAt   time.Time `json:"traded_at"`
	IngestedAt time.Time `json:"ingested_at"`
}

// PriceBar is one point of historical price series for a subject.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// FactSet is the pre-fetched raw material for one subject's micro scoring
// run. Metric values are pointers: a nil entry (or an absent key) means the
// upstream had no measurement, never that the value is zero.
type FactSet struct {
	Ticker       string               `json:"ticker"`
	CompanyName  string               `json:"company_name,omitempty"`
	CurrentPrice float64              `json:"current_price"`
	PriceChange  float64              `json:"price_change"`
	Metrics      map[string]*float64  `json:"metrics"`
	PriceHistory []PriceBar           `json:"price_history,omitempty"`
	Transactions []InsiderTransaction `json:"transactions,omitempty"`
	FetchedAt    time.Time            `json:"fetched_at"`
}

// Metric returns the named measurement, or nil when absent.
func (f *FactSet) Metric(name string) *float64 {
	if f == nil || f.Metrics == nil {
		return nil
	}
	return f.Metrics[name]
}

// MacroFacts is the market/sector-context material for macro scoring.
type MacroFacts struct {
	Ticker    string              `json:"ticker"`
	Sector    string              `json:"sector,omitempty"`
	Stance    string              `json:"stance,omitempty"`
	Metrics   map[string]*float64 `json:"metrics"`
	FetchedAt time.Time           `json:"fetched_at"`
}
