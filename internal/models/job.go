package models

import "time"

// JobPriority orders jobs within the queue. Higher values dequeue first.
type JobPriority int

const (
	PriorityLow    JobPriority = 1
	PriorityNormal JobPriority = 5
	PriorityHigh   JobPriority = 10
)

// String returns the wire form of the priority.
func (p JobPriority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityLow:
		return "low"
	default:
		return "normal"
	}
}

// ParsePriority maps a wire string to a JobPriority, defaulting to normal.
func ParsePriority(s string) JobPriority {
	switch s {
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityNormal
	}
}

// Job status constants
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Pipeline phase constants, in strict forward order.
const (
	PhaseFetchingData       = "fetching_data"
	PhaseCalculatingScore   = "calculating_score"
	PhaseGeneratingPlaybook = "generating_playbook"
	PhaseComplete           = "complete"
)

// phaseOrder maps each phase to its position in the pipeline.
var phaseOrder = map[string]int{
	PhaseFetchingData:       0,
	PhaseCalculatingScore:   1,
	PhaseGeneratingPlaybook: 2,
	PhaseComplete:           3,
}

// ValidPhaseTransition reports whether moving from current to next is a
// legal advance. The empty current phase admits only fetching_data. Phases
// never skip and never reverse.
func ValidPhaseTransition(current, next string) bool {
	nextIdx, ok := phaseOrder[next]
	if !ok {
		return false
	}
	if current == "" {
		return nextIdx == 0
	}
	curIdx, ok := phaseOrder[current]
	if !ok {
		return false
	}
	return nextIdx == curIdx+1
}

// AnalysisJob identifies one pipeline run for one subject. At most one job
// per subject may be pending or processing at any time.
type AnalysisJob struct {
	ID               string      `json:"id" badgerhold:"key"`
	SubjectKey       string      `json:"subject_key"`
	Reason           string      `json:"reason"`
	Priority         JobPriority `json:"priority"`
	Status           string      `json:"status"`
	Phase            string      `json:"phase,omitempty"`
	Substep          string      `json:"substep,omitempty"`
	ProgressFraction float64     `json:"progress_fraction,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	AvailableAt      time.Time   `json:"available_at"`
	StartedAt        time.Time   `json:"started_at,omitzero"`
	CompletedAt      time.Time   `json:"completed_at,omitzero"`
	UpdatedAt        time.Time   `json:"updated_at"`
	FailureReason    string      `json:"failure_reason,omitempty"`
	AttemptCount     int         `json:"attempt_count"`
	CancelRequested  bool        `json:"cancel_requested,omitempty"`
}

// IsTerminal reports whether the job has reached a terminal status.
func (j *AnalysisJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// QueueStats is the O(1) counter snapshot exposed for polling.
type QueueStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// JobEvent is broadcast when job state changes. Consumers de-duplicate on
// (JobID, Phase).
type JobEvent struct {
	Type       string       `json:"type"` // "job_queued", "job_started", "job_phase", "job_completed", "job_failed"
	Job        *AnalysisJob `json:"job"`
	Timestamp  time.Time    `json:"timestamp"`
	QueueDepth int          `json:"queue_depth"`
}
