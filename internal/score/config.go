package score

// Config holds the scoring weights and priority thresholds. The numbers are
// heuristic tunables, not validated business truth; they are surfaced as
// configuration so a deviation is a config change, not a silent behavior
// change. Zero-value fields are replaced by the canonical defaults.
type Config struct {
	// HighThreshold and MediumThreshold split opportunity scores into
	// HIGH (> high), MEDIUM (> medium), LOW (otherwise).
	HighThreshold   float64 `yaml:"high_threshold" mapstructure:"high_threshold"`
	MediumThreshold float64 `yaml:"medium_threshold" mapstructure:"medium_threshold"`

	// RiskPenalty scales how strongly NEGATIVE evidence drags the final
	// opportunity score down.
	RiskPenalty float64 `yaml:"risk_penalty" mapstructure:"risk_penalty"`
}

// DefaultConfig returns the canonical threshold set.
func DefaultConfig() Config {
	return Config{
		HighThreshold:   0.75,
		MediumThreshold: 0.45,
		RiskPenalty:     0.25,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HighThreshold == 0 {
		c.HighThreshold = d.HighThreshold
	}
	if c.MediumThreshold == 0 {
		c.MediumThreshold = d.MediumThreshold
	}
	if c.RiskPenalty == 0 {
		c.RiskPenalty = d.RiskPenalty
	}
	return c
}

// dealSizeByTier maps company size tiers to the deal-size component.
var dealSizeByTier = map[string]float64{
	"SMALL": 0.50,
	"MID":   0.75,
	"LARGE": 0.95,
}

// defaultDealSize is used for unknown size tiers.
const defaultDealSize = 0.75

// strengthRule boosts a signal whose evidence text carries a magnitude cue.
type strengthRule struct {
	keyword    string
	multiplier float64
}

// strengthRules are checked in order; the first matching cue wins.
var strengthRules = []strengthRule{
	{"billion", 1.3},
	{"series c", 1.2},
	{"series d", 1.2},
	{"enterprise customers", 1.2},
	{"series b", 1.1},
}
