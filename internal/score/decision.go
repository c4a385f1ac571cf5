package score

import "github.com/datavex/intel-cli/internal/model"

// Strategy is the engagement approach recommended for a company.
type Strategy string

const (
	StrategyBuildHeavy Strategy = "BUILD_HEAVY"
	StrategyCoBuild    Strategy = "CO_BUILD"
	StrategyMonitor    Strategy = "MONITOR"
)

// Decision pairs the engagement strategy with its timing window.
type Decision struct {
	Strategy Strategy `json:"strategy"`
	Timing   string   `json:"timing"`
}

// Decide derives the engagement decision from a computed breakdown. High
// intent with a real capability gap earns a build-led approach; partial
// readiness gets a co-build; everything else stays on watch.
func Decide(b model.ScoreBreakdown) Decision {
	var strategy Strategy
	switch {
	case b.Intent > 0.75 && b.Conversion > 0.55:
		strategy = StrategyBuildHeavy
	case b.Intent > 0.55 && b.Conversion > 0.35:
		strategy = StrategyCoBuild
	default:
		strategy = StrategyMonitor
	}
	return Decision{Strategy: strategy, Timing: timingFor(b.Priority)}
}

func timingFor(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "next 1-3 months"
	case model.PriorityMedium:
		return "next 3-6 months"
	default:
		return "6+ months, plant seeds"
	}
}
