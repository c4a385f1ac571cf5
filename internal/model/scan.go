package model

import "time"

// ScanStatus is the lifecycle state of a scan. A scan is terminal once its
// status is completed or failed.
type ScanStatus string

const (
	ScanStatusQueued    ScanStatus = "queued"
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s ScanStatus) Terminal() bool {
	return s == ScanStatusCompleted || s == ScanStatusFailed
}

// Stage names, in pipeline execution order.
const (
	StageDiscovery = "DISCOVERY"
	StageSignals   = "SIGNALS"
	StageScoring   = "SCORING"
	StageState     = "STATE"
	StageDecision  = "DECISION"
	StageNarrative = "NARRATIVE"
)

// Stages is the fixed ordered stage list the orchestrator executes.
var Stages = []string{
	StageDiscovery,
	StageSignals,
	StageScoring,
	StageState,
	StageDecision,
	StageNarrative,
}

// MaxErrorMessageLen caps the error message persisted on a failed scan so an
// unbounded external payload never leaks into the store.
const MaxErrorMessageLen = 500

// ScanRecord tracks one pipeline execution. It is created at submission and
// mutated only by the orchestrator.
type ScanRecord struct {
	ID              string     `json:"id"`
	CompanyKey      string     `json:"company_key"`
	Status          ScanStatus `json:"status"`
	Progress        float64    `json:"progress"`
	StagesCompleted []string   `json:"stages_completed"`
	StagesPending   []string   `json:"stages_pending"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// TruncateError caps a message at MaxErrorMessageLen runes.
func TruncateError(msg string) string {
	r := []rune(msg)
	if len(r) <= MaxErrorMessageLen {
		return msg
	}
	return string(r[:MaxErrorMessageLen])
}
