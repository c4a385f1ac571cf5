package evidence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileFetcher(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundles.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"acme": {
			"meta": {"name": "Acme Corp", "size_tier": "MID", "internal_tech_strength": 0.4},
			"items": [{"text": "hiring data engineers", "source": "jobs", "recency_days": 6}]
		},
		"globex": {
			"meta": {"key": "globex", "name": "Globex", "size_tier": "LARGE"},
			"items": []
		}
	}`), 0o644))

	f, err := NewFileFetcher(path)
	require.NoError(t, err)

	bundle, err := f.Fetch(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", bundle.Meta.Key) // filled from the lookup key
	assert.Equal(t, "Acme Corp", bundle.Meta.Name)
	require.Len(t, bundle.Items, 1)
	require.NotNil(t, bundle.Items[0].RecencyDays)
	assert.Equal(t, 6, *bundle.Items[0].RecencyDays)

	_, err = f.Fetch(context.Background(), "missing")
	assert.ErrorContains(t, err, "unknown company")
}

func TestFileFetcher_BadFile(t *testing.T) {
	_, err := NewFileFetcher(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o644))
	_, err = NewFileFetcher(path)
	assert.ErrorContains(t, err, "parse")
}
