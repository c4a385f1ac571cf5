package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// CompanyRecord is the persisted verdict for one company: the indexed
// top-level columns the query surface filters on, plus the full per-stage
// payload as a JSON blob.
type CompanyRecord struct {
	Key        string          `json:"key"`
	ScanID     string          `json:"scan_id,omitempty"`
	Name       string          `json:"name"`
	Descriptor string          `json:"descriptor,omitempty"`
	Score      int             `json:"score"`      // opportunityScore * 100, 0-100
	Confidence Priority        `json:"confidence"` // mirrors priority
	Coverage   int             `json:"coverage"`   // evidence coverage, 0-100
	Data       json.RawMessage `json:"data,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Descriptor renders the one-line company descriptor shown in listings.
func (m CompanyMeta) Descriptor() string {
	if m.Industry == "" && m.Employees == 0 {
		return string(m.SizeTier)
	}
	return fmt.Sprintf("%s · %d employees · %s · %s", m.Industry, m.Employees, m.SizeTier, m.Region)
}

// Coverage converts an evidence count into the 0-100 coverage percentage
// persisted on the company record (0.3 base + 0.1 per evidence point).
func Coverage(evidenceCount int) int {
	c := 30 + 10*evidenceCount
	if c > 100 {
		return 100
	}
	return c
}
