// Package evidence retrieves the raw company facts the pipeline classifies:
// profile metadata plus dated evidence snippets from the intake feeds.
package evidence

import (
	"context"

	"github.com/datavex/intel-cli/internal/model"
)

// Bundle is everything the pipeline knows about a company before
// classification starts.
type Bundle struct {
	Meta  model.CompanyMeta    `json:"meta"`
	Items []model.EvidenceItem `json:"items"`
}

// Fetcher resolves a company key into its evidence bundle.
type Fetcher interface {
	Fetch(ctx context.Context, companyKey string) (*Bundle, error)
}
