package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datavex/intel-cli/internal/model"
)

func TestClassifyState(t *testing.T) {
	c := NewClassifier(DefaultRules())

	tests := []struct {
		name     string
		evidence []string
		want     model.CompanyState
	}{
		{
			name:     "hiring plus layoff is restructuring",
			evidence: []string{"hiring 20 engineers", "layoff 10%"},
			want:     model.StateRestructuring,
		},
		{
			name:     "legacy plus cloud is modernization",
			evidence: []string{"migrating the legacy monolith to kubernetes"},
			want:     model.StateTechModernization,
		},
		{
			name:     "cost plus ai is cost optimization",
			evidence: []string{"cost overruns tackled with machine learning forecasts"},
			want:     model.StateCostOptimization,
		},
		{
			name:     "funding plus hiring without layoffs is growth",
			evidence: []string{"closed a series B round", "hiring across every team"},
			want:     model.StateGrowth,
		},
		{
			name:     "ai alone is ai adoption",
			evidence: []string{"shipped an llm inference service to production"},
			want:     model.StateAIAdoption,
		},
		{
			name:     "no keywords is stable",
			evidence: []string{"the quarterly picnic was well attended"},
			want:     model.StateStable,
		},
		{
			name:     "empty evidence is stable",
			evidence: nil,
			want:     model.StateStable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]model.EvidenceItem, len(tt.evidence))
			for i, text := range tt.evidence {
				items[i] = model.EvidenceItem{Text: text, Source: "test"}
			}
			assert.Equal(t, tt.want, c.ClassifyState(items))
		})
	}
}

func TestClassifyState_RestructuringBeatsGrowth(t *testing.T) {
	c := NewClassifier(DefaultRules())

	// Growth keywords present, but layoff evidence forces the earlier rule.
	state := c.ClassifyState([]model.EvidenceItem{
		{Text: "raised funding and hiring engineers"},
		{Text: "laid off the support org"},
	})
	assert.Equal(t, model.StateRestructuring, state)
}
