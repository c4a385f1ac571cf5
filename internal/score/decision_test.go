package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datavex/intel-cli/internal/model"
)

func TestDecide_Strategy(t *testing.T) {
	tests := []struct {
		name               string
		intent, conversion float64
		want               Strategy
	}{
		{"high intent and gap", 0.80, 0.60, StrategyBuildHeavy},
		{"high intent, weak gap", 0.80, 0.50, StrategyCoBuild},
		{"moderate both", 0.60, 0.40, StrategyCoBuild},
		{"low intent", 0.40, 0.90, StrategyMonitor},
		{"boundaries exclusive", 0.75, 0.55, StrategyCoBuild},
		{"co-build boundary exclusive", 0.55, 0.35, StrategyMonitor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(model.ScoreBreakdown{Intent: tt.intent, Conversion: tt.conversion})
			assert.Equal(t, tt.want, d.Strategy)
		})
	}
}

func TestDecide_Timing(t *testing.T) {
	assert.Equal(t, "next 1-3 months",
		Decide(model.ScoreBreakdown{Priority: model.PriorityHigh}).Timing)
	assert.Equal(t, "next 3-6 months",
		Decide(model.ScoreBreakdown{Priority: model.PriorityMedium}).Timing)
	assert.Equal(t, "6+ months, plant seeds",
		Decide(model.ScoreBreakdown{Priority: model.PriorityLow}).Timing)
}
