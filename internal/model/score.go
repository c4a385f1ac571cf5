package model

import "math"

// Priority is the sales-priority tier derived from the opportunity score.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// priorityRank orders priorities for monotonicity checks (HIGH > MEDIUM > LOW).
var priorityRank = map[Priority]int{
	PriorityHigh:   3,
	PriorityMedium: 2,
	PriorityLow:    1,
}

// Rank returns the numeric ordering of a priority; unknown values rank lowest.
func (p Priority) Rank() int {
	return priorityRank[p]
}

// SizeTier buckets company headcount for deal sizing.
type SizeTier string

const (
	SizeSmall SizeTier = "SMALL"
	SizeMid   SizeTier = "MID"
	SizeLarge SizeTier = "LARGE"
)

// CompanyMeta carries the company attributes the score calculator consumes
// in addition to the signal set.
type CompanyMeta struct {
	Key                  string   `json:"key"`
	Name                 string   `json:"name"`
	Industry             string   `json:"industry,omitempty"`
	Region               string   `json:"region,omitempty"`
	Employees            int      `json:"employees,omitempty"`
	SizeTier             SizeTier `json:"size_tier"`
	InternalTechStrength float64  `json:"internal_tech_strength"`
}

// ScoreBreakdown holds every component score for one evaluation. All values
// are in [0,1]; it is recomputed from scratch on every run, never mutated
// incrementally.
type ScoreBreakdown struct {
	Expansion        float64  `json:"expansion_score"`
	Strain           float64  `json:"strain_score"`
	Risk             float64  `json:"risk_score"`
	Pain             float64  `json:"pain_score"`
	Intent           float64  `json:"intent_score"`
	Conversion       float64  `json:"conversion_score"`
	DealSize         float64  `json:"deal_size_score"`
	OpportunityScore float64  `json:"opportunity_score"`
	Priority         Priority `json:"priority"`
	KeySignals       []string `json:"key_signals,omitempty"`
}

// CompanyState is one mutually-exclusive label summarizing a company's
// strategic posture, derived from keyword rules over the raw evidence text.
type CompanyState string

const (
	StateRestructuring     CompanyState = "RESTRUCTURING"
	StateTechModernization CompanyState = "TECH_MODERNIZATION"
	StateCostOptimization  CompanyState = "COST_OPTIMIZATION"
	StateGrowth            CompanyState = "GROWTH"
	StateAIAdoption        CompanyState = "AI_ADOPTION"
	StateStable            CompanyState = "STABLE"
)

// Round3 rounds a score to 3 decimal places for display and persistence.
// Internal computation keeps full precision until this final step.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Rounded returns a copy of the breakdown with every component rounded to
// 3 decimal places.
func (b ScoreBreakdown) Rounded() ScoreBreakdown {
	b.Expansion = Round3(b.Expansion)
	b.Strain = Round3(b.Strain)
	b.Risk = Round3(b.Risk)
	b.Pain = Round3(b.Pain)
	b.Intent = Round3(b.Intent)
	b.Conversion = Round3(b.Conversion)
	b.DealSize = Round3(b.DealSize)
	b.OpportunityScore = Round3(b.OpportunityScore)
	return b
}

// ScoreInt converts the opportunity score to the 0-100 integer persisted on
// the company record.
func (b ScoreBreakdown) ScoreInt() int {
	v := int(math.Round(b.OpportunityScore * 100))
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
