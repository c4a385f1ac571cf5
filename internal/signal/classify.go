package signal

import (
	"strings"

	"go.uber.org/zap"

	"github.com/datavex/intel-cli/internal/model"
)

// Classifier maps evidence snippets to typed signals and company states.
// It is stateless apart from its rule tables and safe for concurrent use.
type Classifier struct {
	rules Rules
}

// NewClassifier creates a Classifier with the given rule tables.
func NewClassifier(rules Rules) *Classifier {
	return &Classifier{rules: rules}
}

// Classify maps each evidence item to at most one typed signal and returns
// the deduplicated signal set: one signal per type, keeping the most recent
// (smallest recency-days; unknown age loses every tie, earlier evidence wins
// exact ties). Empty input yields an empty set, never an error.
func (c *Classifier) Classify(evidence []model.EvidenceItem) model.SignalSet {
	set := make(model.SignalSet, len(model.PositiveSignalTypes)+1)

	for _, item := range evidence {
		sig, ok := c.classifyItem(item)
		if !ok {
			continue
		}
		if existing, dup := set[sig.Type]; dup && existing.SortRecency() <= sig.SortRecency() {
			continue
		}
		set[sig.Type] = sig
	}

	if len(evidence) > 0 && len(set) == 0 {
		zap.L().Warn("signal: no evidence matched any keyword table",
			zap.Int("evidence_items", len(evidence)),
		)
	}
	return set
}

// classifyItem resolves one evidence item to a signal. NEGATIVE keywords are
// checked first; positive categories follow in table order, first match wins.
func (c *Classifier) classifyItem(item model.EvidenceItem) (model.Signal, bool) {
	text := strings.ToLower(item.Text)

	if containsAny(text, c.rules.Negative) {
		return signalFrom(item, model.SignalNegative), true
	}
	for _, cat := range c.rules.Positive {
		if containsAny(text, cat.Keywords) {
			return signalFrom(item, cat.Type), true
		}
	}
	return model.Signal{}, false
}

func signalFrom(item model.EvidenceItem, t model.SignalType) model.Signal {
	return model.Signal{
		Type:        t,
		Text:        item.Text,
		Source:      item.Source,
		RecencyDays: item.RecencyDays,
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
