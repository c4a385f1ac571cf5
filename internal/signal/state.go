package signal

import (
	"strings"

	"github.com/datavex/intel-cli/internal/model"
)

// ClassifyState assigns one company-state label from the raw evidence text.
// Rules are evaluated in priority order and the first match wins, which is
// how contradictory evidence (hiring news next to layoff news) resolves to a
// single label. The function is pure: it reads only keyword presence in the
// concatenated lower-cased text, never the derived scores, and is
// re-evaluated on every run.
func (c *Classifier) ClassifyState(evidence []model.EvidenceItem) model.CompanyState {
	var b strings.Builder
	for i, e := range evidence {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(e.Text)
	}
	text := strings.ToLower(b.String())

	s := c.rules.States
	hasHiring := containsAny(text, s.Hiring)
	hasLayoff := containsAny(text, s.Layoff)
	hasLegacy := containsAny(text, s.Legacy)
	hasCloud := containsAny(text, s.Cloud)
	hasCost := containsAny(text, s.Cost)
	hasAI := containsAny(text, s.AI)
	hasGrowth := containsAny(text, s.Growth)

	switch {
	case hasHiring && hasLayoff:
		return model.StateRestructuring
	case hasLegacy && hasCloud:
		return model.StateTechModernization
	case hasCost && hasAI:
		return model.StateCostOptimization
	case hasGrowth && hasHiring && !hasLayoff:
		return model.StateGrowth
	case hasAI:
		return model.StateAIAdoption
	default:
		return model.StateStable
	}
}
