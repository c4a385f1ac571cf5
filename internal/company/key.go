// Package company normalizes company names into stable cache/store keys.
package company

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes lists common legal entity suffixes stripped during key
// normalization so "Acme Corp." and "Acme" resolve to the same key.
var legalSuffixes = []string{
	" llc", " l.l.c.",
	" inc", " inc.", " incorporated",
	" corp", " corp.", " corporation",
	" ltd", " ltd.", " limited",
	" plc", " gmbh", " pvt", " pvt.",
	" co", " co.",
}

var (
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
	dashRunRe  = regexp.MustCompile(`-{2,}`)
)

// deaccent strips combining marks after NFD decomposition, so "Café" keys
// the same as "Cafe".
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Key converts a company name into its canonical lowercase slug:
//  1. fold accents to ASCII
//  2. lowercase and trim
//  3. strip trailing legal suffixes
//  4. collapse every non-alphanumeric run into a single dash
func Key(name string) string {
	folded, _, err := transform.String(deaccent, name)
	if err == nil {
		name = folded
	}

	name = strings.ToLower(strings.TrimSpace(name))
	for _, suffix := range legalSuffixes {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}

	name = nonAlnumRe.ReplaceAllString(name, "-")
	name = dashRunRe.ReplaceAllString(name, "-")
	return strings.Trim(name, "-")
}
