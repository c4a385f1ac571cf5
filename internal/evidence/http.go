package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/datavex/intel-cli/internal/model"
	"github.com/datavex/intel-cli/internal/resilience"
)

// feeds are the evidence endpoints fetched for every company, relative to
// the profile endpoint.
var feeds = []string{"news", "jobs", "infra"}

// HTTPOptions configures the HTTP evidence fetcher.
type HTTPOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// RateLimit is requests per second against the intake API. Default: 10.
	RateLimit float64
	// Burst is the limiter burst size. Default: 5.
	Burst int
	Retry resilience.Policy
}

// HTTPFetcher implements Fetcher against the evidence intake API, with rate
// limiting and retry on transient failures. The profile endpoint is fetched
// first; the per-feed endpoints are fetched concurrently.
type HTTPFetcher struct {
	client  *http.Client
	opts    HTTPOptions
	limiter *rate.Limiter
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "datavex/1.0"
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
	}
}

// Fetch retrieves a company's profile and evidence feeds. A feed that
// returns 404 contributes no items; any other failure aborts the fetch.
func (f *HTTPFetcher) Fetch(ctx context.Context, companyKey string) (*Bundle, error) {
	var meta model.CompanyMeta
	if err := f.getJSON(ctx, f.endpoint(companyKey, "profile"), &meta); err != nil {
		return nil, eris.Wrapf(err, "evidence: fetch profile %s", companyKey)
	}
	if meta.Key == "" {
		meta.Key = companyKey
	}

	var mu sync.Mutex
	var items []model.EvidenceItem

	g, gctx := errgroup.WithContext(ctx)
	for _, feed := range feeds {
		g.Go(func() error {
			var feedItems []model.EvidenceItem
			err := f.getJSON(gctx, f.endpoint(companyKey, feed), &feedItems)
			if err != nil {
				if isNotFound(err) {
					zap.L().Debug("evidence: feed absent",
						zap.String("company", companyKey),
						zap.String("feed", feed),
					)
					return nil
				}
				return eris.Wrapf(err, "evidence: fetch %s feed %s", feed, companyKey)
			}
			for i := range feedItems {
				if feedItems[i].Source == "" {
					feedItems[i].Source = feed
				}
			}
			mu.Lock()
			items = append(items, feedItems...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Info("evidence: fetched",
		zap.String("company", companyKey),
		zap.Int("items", len(items)),
	)
	return &Bundle{Meta: meta, Items: items}, nil
}

func (f *HTTPFetcher) endpoint(companyKey, path string) string {
	return fmt.Sprintf("%s/companies/%s/%s", strings.TrimRight(f.opts.BaseURL, "/"), companyKey, path)
}

// getJSON performs a rate-limited GET with retry and decodes the body.
func (f *HTTPFetcher) getJSON(ctx context.Context, url string, out any) error {
	p := f.opts.Retry
	if p.OnRetry == nil {
		p.OnRetry = resilience.RetryLogger("evidence", url)
	}

	body, err := resilience.DoVal(ctx, p, func(ctx context.Context) ([]byte, error) {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, eris.Wrap(err, "create request")
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "get %s", url)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("http %d from %s", resp.StatusCode, url)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return err
	}
	return eris.Wrapf(json.Unmarshal(body, out), "decode %s", url)
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "http 404")
}
