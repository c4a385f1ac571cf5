package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/datavex/intel-cli/internal/model"
	"github.com/datavex/intel-cli/internal/score"
)

// stateDescriptions renders each company state as narrative prose.
var stateDescriptions = map[model.CompanyState]string{
	model.StateRestructuring:     "is restructuring, with expansion and contraction signals landing at the same time",
	model.StateTechModernization: "is modernizing a legacy stack",
	model.StateCostOptimization:  "is under cost pressure while investing in automation",
	model.StateGrowth:            "is in a clear growth phase",
	model.StateAIAdoption:        "is adopting AI capabilities",
	model.StateStable:            "shows no strong directional signals",
}

var signalPhrases = map[model.SignalType]string{
	model.SignalHiring:   "active hiring",
	model.SignalFunding:  "recent funding",
	model.SignalInfra:    "infrastructure strain",
	model.SignalProduct:  "product expansion",
	model.SignalGTM:      "go-to-market motion",
	model.SignalNegative: "negative press or contraction",
}

var strategyActions = map[score.Strategy]string{
	score.StrategyBuildHeavy: "Lead with a build-heavy proposal",
	score.StrategyCoBuild:    "Propose a co-build engagement",
	score.StrategyMonitor:    "Keep the account on watch",
}

// RulesGenerator produces a deterministic templated narrative from the
// evaluation alone. It is the offline path and the fallback when the model
// is unreachable.
type RulesGenerator struct{}

func NewRulesGenerator() *RulesGenerator {
	return &RulesGenerator{}
}

func (g *RulesGenerator) Generate(_ context.Context, in Input) (*Result, error) {
	name := in.Meta.Name
	if name == "" {
		name = in.Meta.Key
	}

	summary := fmt.Sprintf("%s %s. Opportunity score %.3f (%s priority), %s.",
		name,
		stateDescriptions[in.State],
		in.Breakdown.OpportunityScore,
		in.Breakdown.Priority,
		strings.ToLower(string(in.Decision.Strategy)),
	)

	var rationale []string
	for _, t := range in.Signals.Types() {
		sig := in.Signals[t]
		line := fmt.Sprintf("%s: %s", signalPhrases[t], sig.Text)
		if sig.RecencyDays != nil {
			line += fmt.Sprintf(" (%d days ago)", *sig.RecencyDays)
		}
		rationale = append(rationale, line)
	}
	if len(rationale) == 0 {
		rationale = append(rationale, "no classified signals; score reflects company profile only")
	}

	action := fmt.Sprintf("%s; timing: %s.", strategyActions[in.Decision.Strategy], in.Decision.Timing)

	return &Result{
		Narrative: Narrative{
			Summary:           summary,
			Rationale:         rationale,
			RecommendedAction: action,
		},
		Source: SourceRules,
	}, nil
}
