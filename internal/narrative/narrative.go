// Package narrative turns a finished evaluation into reviewer-facing prose,
// preferring an external model and falling back to deterministic templates.
package narrative

import (
	"context"

	"github.com/datavex/intel-cli/internal/model"
	"github.com/datavex/intel-cli/internal/score"
)

// Provenance tags recorded on the cache entry for the narrative stage.
const (
	SourceModel = "external-model"
	SourceRules = "rules"
)

// Input is the full evaluation context a generator narrates.
type Input struct {
	Meta      model.CompanyMeta   `json:"meta"`
	Signals   model.SignalSet     `json:"signals"`
	Breakdown model.ScoreBreakdown `json:"breakdown"`
	State     model.CompanyState  `json:"state"`
	Decision  score.Decision      `json:"decision"`
}

// Narrative is the generated prose for one company evaluation.
type Narrative struct {
	Summary           string   `json:"summary"`
	Rationale         []string `json:"rationale"`
	RecommendedAction string   `json:"recommended_action"`
}

// Result is a narrative plus the provenance of its generator.
type Result struct {
	Narrative
	Source string `json:"source"`
}

// Generator produces a narrative for an evaluation. Implementations must
// always return a usable narrative; degraded output is reported through
// Result.Source, not an error.
type Generator interface {
	Generate(ctx context.Context, in Input) (*Result, error)
}
