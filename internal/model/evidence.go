package model

// EvidenceItem is one raw text snippet about a company, as supplied by the
// evidence store. Items are immutable; a nil RecencyDays means the age of
// the snippet is unknown.
type EvidenceItem struct {
	Text        string `json:"text"`
	Source      string `json:"source"`
	RecencyDays *int   `json:"recency_days,omitempty"`
}

// SignalType is the category assigned to a classified evidence snippet.
type SignalType string

const (
	SignalHiring   SignalType = "HIRING"
	SignalFunding  SignalType = "FUNDING"
	SignalInfra    SignalType = "INFRA"
	SignalProduct  SignalType = "PRODUCT"
	SignalGTM      SignalType = "GTM"
	SignalNegative SignalType = "NEGATIVE"
)

// PositiveSignalTypes is the ordered list of positive categories checked
// during classification. NEGATIVE is always checked before these.
var PositiveSignalTypes = []SignalType{
	SignalHiring,
	SignalFunding,
	SignalInfra,
	SignalProduct,
	SignalGTM,
}

// UnknownRecencyDays is the sort key used for signals with no recency stamp:
// they lose every dedup tie against a dated signal.
const UnknownRecencyDays = 999

// Signal is a typed, recency-stamped classification of one evidence snippet.
type Signal struct {
	Type        SignalType `json:"type"`
	Text        string     `json:"text"`
	Source      string     `json:"source,omitempty"`
	RecencyDays *int       `json:"recency_days,omitempty"`
}

// SortRecency returns the signal's recency in days with unknown ages mapped
// to UnknownRecencyDays.
func (s Signal) SortRecency() int {
	if s.RecencyDays == nil {
		return UnknownRecencyDays
	}
	return *s.RecencyDays
}

// SignalSet maps each signal type to the single most recent signal of that
// type. Absent types contribute zero to all scores.
type SignalSet map[SignalType]Signal

// Types returns the signal types present in the set, in the canonical
// NEGATIVE-last order used for display.
func (ss SignalSet) Types() []SignalType {
	var types []SignalType
	for _, t := range PositiveSignalTypes {
		if _, ok := ss[t]; ok {
			types = append(types, t)
		}
	}
	if _, ok := ss[SignalNegative]; ok {
		types = append(types, SignalNegative)
	}
	return types
}
