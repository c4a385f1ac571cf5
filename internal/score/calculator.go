// Package score converts a deduplicated signal set and company metadata into
// the bounded opportunity score breakdown.
package score

import (
	"math"
	"strings"

	"github.com/datavex/intel-cli/internal/model"
)

// Calculator computes score breakdowns. It is a pure function of its inputs:
// the same signal set and metadata always produce the same breakdown.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a Calculator, filling unset config fields with the
// canonical defaults.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg.withDefaults()}
}

// Score computes the full breakdown for one company evaluation. Every
// component is clamped to [0,1]; rounding to 3 decimals happens only in the
// returned copy, full precision is used throughout the computation.
func (c *Calculator) Score(signals model.SignalSet, meta model.CompanyMeta) model.ScoreBreakdown {
	var expansion, strain, risk float64
	for _, sig := range signals {
		w := RecencyWeight(sig.RecencyDays) * StrengthMultiplier(sig.Text)
		switch sig.Type {
		case model.SignalHiring, model.SignalFunding, model.SignalProduct, model.SignalGTM:
			expansion += w
		case model.SignalInfra:
			strain += w
		case model.SignalNegative:
			risk += w
		}
	}
	expansion = clamp01(expansion)
	strain = clamp01(strain)
	risk = clamp01(risk)

	pain := clamp01(0.6*strain + 0.4*expansion - 0.5*risk)
	intent := clamp01(math.Pow(0.7*strain+0.3*pain, 0.9))

	capabilityGap := 1 - meta.InternalTechStrength
	conversion := clamp01(math.Pow(0.7*capabilityGap+0.3*expansion, 0.9))

	dealSize, ok := dealSizeByTier[string(meta.SizeTier)]
	if !ok {
		dealSize = defaultDealSize
	}

	opportunity := clamp01(0.4*intent + 0.4*conversion + 0.2*dealSize)
	opportunity = clamp01(opportunity - c.cfg.RiskPenalty*risk)

	breakdown := model.ScoreBreakdown{
		Expansion:        expansion,
		Strain:           strain,
		Risk:             risk,
		Pain:             pain,
		Intent:           intent,
		Conversion:       conversion,
		DealSize:         dealSize,
		OpportunityScore: opportunity,
		Priority:         c.Priority(opportunity),
	}
	for _, t := range signals.Types() {
		breakdown.KeySignals = append(breakdown.KeySignals, string(t))
	}
	return breakdown.Rounded()
}

// Priority maps an opportunity score to its tier. Boundaries are exclusive:
// a score exactly at a threshold falls into the lower tier.
func (c *Calculator) Priority(score float64) model.Priority {
	switch {
	case score > c.cfg.HighThreshold:
		return model.PriorityHigh
	case score > c.cfg.MediumThreshold:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// RecencyWeight decays a signal's contribution by age: full weight inside a
// week, stepping down to 0.3 beyond a quarter. Unknown age gets the middle
// weight rather than the floor, since absence of a date is not evidence of
// staleness.
func RecencyWeight(recencyDays *int) float64 {
	if recencyDays == nil {
		return 0.5
	}
	switch age := *recencyDays; {
	case age <= 7:
		return 1.0
	case age <= 30:
		return 0.8
	case age <= 90:
		return 0.5
	default:
		return 0.3
	}
}

// StrengthMultiplier boosts a signal whose text carries a magnitude cue
// ("billion", late-stage rounds, enterprise traction). Cues are checked in
// a fixed order and the first match wins.
func StrengthMultiplier(text string) float64 {
	lower := strings.ToLower(text)
	for _, rule := range strengthRules {
		if strings.Contains(lower, rule.keyword) {
			return rule.multiplier
		}
	}
	return 1.0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
