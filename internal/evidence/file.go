package evidence

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FileFetcher serves evidence bundles from a local JSON file keyed by
// company key. It backs offline runs and demo datasets.
type FileFetcher struct {
	bundles map[string]Bundle
}

// NewFileFetcher loads the bundle file at path.
func NewFileFetcher(path string) (*FileFetcher, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "evidence: read %s", path)
	}

	bundles := map[string]Bundle{}
	if err := json.Unmarshal(data, &bundles); err != nil {
		return nil, eris.Wrapf(err, "evidence: parse %s", path)
	}

	zap.L().Info("evidence: loaded bundle file",
		zap.String("path", path),
		zap.Int("companies", len(bundles)),
	)
	return &FileFetcher{bundles: bundles}, nil
}

func (f *FileFetcher) Fetch(_ context.Context, companyKey string) (*Bundle, error) {
	b, ok := f.bundles[companyKey]
	if !ok {
		return nil, eris.Errorf("evidence: unknown company %s", companyKey)
	}
	if b.Meta.Key == "" {
		b.Meta.Key = companyKey
	}
	return &b, nil
}
