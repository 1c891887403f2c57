package models

import "time"

// SubjectEntry maps a ticker to its current aggregate state. The registry
// is the cross-component index of every security the system tracks; any
// ingest path that touches a ticker upserts it here.
type SubjectEntry struct {
	Ticker       string    `json:"ticker" badgerhold:"key"`
	CompanyName  string    `json:"company_name,omitempty"`
	Source       string    `json:"source"` // "ingest", "manual", "rescan"
	LastScore    *float64  `json:"last_score,omitempty"`
	LastStance   string    `json:"last_stance,omitempty"`
	LastPrice    float64   `json:"last_price,omitempty"`
	CurrentJobID string    `json:"current_job_id,omitempty"`
	AnalyzedAt   time.Time `json:"analyzed_at,omitzero"`
	AddedAt      time.Time `json:"added_at"`
	LastSeenAt   time.Time `json:"last_seen_at"`
}
