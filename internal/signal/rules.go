// Package signal classifies raw company evidence into typed signals and a
// company-state label using injectable keyword rules.
package signal

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/datavex/intel-cli/internal/model"
)

// CategoryRule binds one positive signal type to its keyword list.
type CategoryRule struct {
	Type     model.SignalType `yaml:"type"`
	Keywords []string         `yaml:"keywords"`
}

// StateRules holds the keyword groups consumed by the company-state
// classifier. Presence of a group means at least one keyword from it occurs
// as a substring of the lower-cased evidence text.
type StateRules struct {
	Hiring []string `yaml:"hiring"`
	Layoff []string `yaml:"layoff"`
	Legacy []string `yaml:"legacy"`
	Cloud  []string `yaml:"cloud"`
	Cost   []string `yaml:"cost"`
	AI     []string `yaml:"ai"`
	Growth []string `yaml:"growth"`
}

// Rules is the complete classification rule set. The tables are data, not
// code: tests and deployments may inject their own.
type Rules struct {
	// Negative keywords are checked before every positive category; a match
	// short-circuits the item to a NEGATIVE signal.
	Negative []string `yaml:"negative"`

	// Positive categories are checked in order; the first category with a
	// substring match wins.
	Positive []CategoryRule `yaml:"positive"`

	States StateRules `yaml:"states"`
}

// DefaultRules returns the built-in keyword tables.
func DefaultRules() Rules {
	return Rules{
		Negative: []string{
			"layoff", "laid off", "downsizing", "reduce workforce",
			"outage", "churn", "shutdown", "data breach",
		},
		Positive: []CategoryRule{
			{Type: model.SignalHiring, Keywords: []string{
				"hiring", "open roles", "expanding team", "workforce",
				"engineer roles", "data engineer", "careers",
			}},
			{Type: model.SignalFunding, Keywords: []string{
				"series", "raised", "valuation", "million", "billion",
				"ipo", "revenue", "profit",
			}},
			{Type: model.SignalInfra, Keywords: []string{
				"latency", "performance", "pipeline", "workloads",
				"kubernetes", "spark", "microservices", "infra",
				"migration", "streaming",
			}},
			{Type: model.SignalProduct, Keywords: []string{
				"launch", "release", "new feature", "platform",
				"knowledge graph", "digital twin", "copilot", "ai assistant",
			}},
			{Type: model.SignalGTM, Keywords: []string{
				"partnership", "reseller", "enterprise agreement",
				"customer", "signed", "deployed", "contract",
			}},
		},
		States: StateRules{
			Hiring: []string{"hiring", "roles", "engineer", "architect", "jobs", "careers"},
			Layoff: []string{"layoff", "laid off", "cut", "reduce workforce"},
			Legacy: []string{"legacy", "monolith", "migration", "technical debt", "tech debt"},
			Cloud:  []string{"cloud", "kubernetes", "microservices", "k8s", "aws", "gcp", "azure"},
			Cost:   []string{"cost", "burn", "profitability", "budget", "layoff"},
			AI:     []string{"ai", "ml", "machine learning", "model", "inference", "llm", "generative"},
			Growth: []string{"series", "raised", "funding", "expand", "growth", "revenue", "valuation"},
		},
	}
}

// LoadRules reads a rule set from a YAML file. Empty sections fall back to
// the defaults so a partial override file stays valid.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, eris.Wrapf(err, "signal: read rules %s", path)
	}

	rules := DefaultRules()
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, eris.Wrapf(err, "signal: parse rules %s", path)
	}
	if len(rules.Negative) == 0 || len(rules.Positive) == 0 {
		return Rules{}, eris.Errorf("signal: rules %s missing keyword tables", path)
	}
	return rules, nil
}
