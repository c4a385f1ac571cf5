package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/datavex/intel-cli/internal/cache"
	"github.com/datavex/intel-cli/internal/evidence"
	"github.com/datavex/intel-cli/internal/narrative"
	"github.com/datavex/intel-cli/internal/pipeline"
	"github.com/datavex/intel-cli/internal/resilience"
	"github.com/datavex/intel-cli/internal/score"
	"github.com/datavex/intel-cli/internal/signal"
	"github.com/datavex/intel-cli/internal/store"
	"github.com/datavex/intel-cli/pkg/anthropic"
)

// appEnv bundles the wired components a command needs. Close releases the
// store and cache.
type appEnv struct {
	store    store.Store
	cache    cache.Cache
	pipeline *pipeline.Pipeline
}

func (e *appEnv) Close() {
	if err := e.cache.Close(); err != nil {
		zap.L().Warn("close cache", zap.Error(err))
	}
	if err := e.store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

// initStore opens the configured store backend and runs migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite", "":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// initEnv wires the full pipeline from configuration.
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	ch, err := cache.NewSQLite(cfg.Cache.Path, cfg.Cache.TTL())
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}

	fetcher, err := initFetcher()
	if err != nil {
		ch.Close() //nolint:errcheck
		st.Close() //nolint:errcheck
		return nil, err
	}

	rules := signal.DefaultRules()
	if cfg.Signals.RulesPath != "" {
		rules, err = signal.LoadRules(cfg.Signals.RulesPath)
		if err != nil {
			ch.Close() //nolint:errcheck
			st.Close() //nolint:errcheck
			return nil, err
		}
	}

	calc := score.NewCalculator(score.Config{
		HighThreshold:   cfg.Score.HighThreshold,
		MediumThreshold: cfg.Score.MediumThreshold,
		RiskPenalty:     cfg.Score.RiskPenalty,
	})

	p := pipeline.New(st, ch, fetcher,
		signal.NewClassifier(rules), calc, initGenerator())

	return &appEnv{store: st, cache: ch, pipeline: p}, nil
}

// initFetcher selects the evidence source. A configured file path wins over
// the HTTP intake.
func initFetcher() (evidence.Fetcher, error) {
	if cfg.Evidence.FilePath != "" {
		zap.L().Info("evidence: using file source", zap.String("path", cfg.Evidence.FilePath))
		return evidence.NewFileFetcher(cfg.Evidence.FilePath)
	}
	if cfg.Evidence.BaseURL == "" {
		return nil, eris.New("no evidence source configured: set evidence.base_url or evidence.file_path")
	}
	return evidence.NewHTTPFetcher(evidence.HTTPOptions{
		BaseURL:   cfg.Evidence.BaseURL,
		Timeout:   time.Duration(cfg.Evidence.TimeoutSecs) * time.Second,
		RateLimit: cfg.Evidence.RateLimit,
		Retry:     resilience.DefaultPolicy(),
	}), nil
}

// initGenerator selects the narrative generator. Without an API key (or with
// rules_only set) the deterministic templates are used.
func initGenerator() narrative.Generator {
	if cfg.Narrative.RulesOnly || cfg.Anthropic.Key == "" {
		if !cfg.Narrative.RulesOnly {
			zap.L().Info("narrative: no API key, using rule-based generation")
		}
		return narrative.NewRulesGenerator()
	}
	return narrative.NewClaudeGenerator(anthropic.NewClient(cfg.Anthropic.Key), narrative.ClaudeOptions{
		Model:       cfg.Anthropic.Model,
		Timeout:     time.Duration(cfg.Narrative.TimeoutSecs) * time.Second,
		MaxAttempts: cfg.Narrative.MaxAttempts,
	})
}
