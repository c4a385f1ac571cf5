package evidence

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datavex/intel-cli/internal/resilience"
)

func fastRetry() resilience.Policy {
	return resilience.Policy{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Jitter: 0}
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/companies/acme/profile":
			w.Write([]byte(`{"key":"acme","name":"Acme Corp","industry":"Retail","employees":500,"size_tier":"MID"}`)) //nolint:errcheck
		case "/companies/acme/news":
			w.Write([]byte(`[{"text":"Acme raised a Series B","recency_days":12}]`)) //nolint:errcheck
		case "/companies/acme/jobs":
			w.Write([]byte(`[{"text":"hiring platform engineers","recency_days":4,"source":"careers-page"}]`)) //nolint:errcheck
		case "/companies/acme/infra":
			http.NotFound(w, r)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{BaseURL: srv.URL, Retry: fastRetry()})
	bundle, err := f.Fetch(context.Background(), "acme")
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", bundle.Meta.Name)
	require.Len(t, bundle.Items, 2)

	bySource := map[string]string{}
	for _, item := range bundle.Items {
		bySource[item.Source] = item.Text
	}
	// A missing source tag falls back to the feed name; an explicit one wins.
	assert.Contains(t, bySource, "news")
	assert.Contains(t, bySource, "careers-page")
}

func TestHTTPFetcher_RetriesServerErrors(t *testing.T) {
	var profileCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/companies/acme/profile" {
			if profileCalls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`{"key":"acme","name":"Acme"}`)) //nolint:errcheck
			return
		}
		w.Write([]byte(`[]`)) //nolint:errcheck
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{BaseURL: srv.URL, Retry: fastRetry()})
	bundle, err := f.Fetch(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, int32(3), profileCalls.Load())
	assert.Equal(t, "Acme", bundle.Meta.Name)
}

func TestHTTPFetcher_MissingProfileFails(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{BaseURL: srv.URL, Retry: fastRetry()})
	_, err := f.Fetch(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch profile")
}

func TestHTTPFetcher_FillsCompanyKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/companies/acme/profile" {
			w.Write([]byte(`{"name":"Acme"}`)) //nolint:errcheck
			return
		}
		w.Write([]byte(`[]`)) //nolint:errcheck
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{BaseURL: srv.URL, Retry: fastRetry()})
	bundle, err := f.Fetch(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", bundle.Meta.Key)
}
