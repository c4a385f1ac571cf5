// Package pipeline orchestrates the scan: a fixed stage sequence from raw
// evidence to a persisted company verdict, guarded by a single-flight gate.
package pipeline

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/datavex/intel-cli/internal/cache"
	"github.com/datavex/intel-cli/internal/company"
	"github.com/datavex/intel-cli/internal/evidence"
	"github.com/datavex/intel-cli/internal/model"
	"github.com/datavex/intel-cli/internal/narrative"
	"github.com/datavex/intel-cli/internal/score"
	"github.com/datavex/intel-cli/internal/signal"
	"github.com/datavex/intel-cli/internal/store"
)

// Outcome is the full result of one scan, persisted as the company record's
// data blob.
type Outcome struct {
	CompanyKey string               `json:"company_key"`
	ScanID     string               `json:"scan_id"`
	Meta       model.CompanyMeta    `json:"meta"`
	Evidence   []model.EvidenceItem `json:"evidence"`
	Signals    model.SignalSet      `json:"signals"`
	Breakdown  model.ScoreBreakdown `json:"breakdown"`
	State      model.CompanyState   `json:"state"`
	Decision   score.Decision       `json:"decision"`
	Narrative  narrative.Result     `json:"narrative"`
}

// Pipeline wires the stages together. All stage logic is deterministic
// except the narrative generator, which degrades deterministically.
type Pipeline struct {
	store      store.Store
	cache      cache.Cache
	fetcher    evidence.Fetcher
	classifier *signal.Classifier
	calc       *score.Calculator
	generator  narrative.Generator
	gate       *Gate
}

// New creates a Pipeline with all dependencies.
func New(
	st store.Store,
	c cache.Cache,
	fetcher evidence.Fetcher,
	classifier *signal.Classifier,
	calc *score.Calculator,
	generator narrative.Generator,
) *Pipeline {
	return &Pipeline{
		store:      st,
		cache:      c,
		fetcher:    fetcher,
		classifier: classifier,
		calc:       calc,
		generator:  generator,
		gate:       NewGate(),
	}
}

// InFlight reports the scan currently holding the gate, if any.
func (p *Pipeline) InFlight() (string, bool) {
	return p.gate.InFlight()
}

// Submit registers a scan for a company and claims the gate for it. The
// caller owns execution: it must call Run (which releases the gate) or
// Abandon. A BusyError is returned when another scan is in flight.
func (p *Pipeline) Submit(ctx context.Context, companyName string) (*model.ScanRecord, error) {
	key := company.Key(companyName)
	if key == "" {
		return nil, eris.Errorf("invalid company name: %q", companyName)
	}

	if err := p.gate.Acquire("pending"); err != nil {
		return nil, err
	}

	scan, err := p.store.CreateScan(ctx, key)
	if err != nil {
		p.gate.Release()
		return nil, eris.Wrap(err, "pipeline: create scan")
	}
	p.gate.Bind(scan.ID)

	zap.L().Info("pipeline: scan submitted",
		zap.String("scan", scan.ID),
		zap.String("company", key),
	)
	return scan, nil
}

// Abandon releases the gate for a scan that will not run.
func (p *Pipeline) Abandon() {
	p.gate.Release()
}

// Run executes every stage for a submitted scan and releases the gate when
// done. The first stage error fails the scan; later stages do not run.
func (p *Pipeline) Run(ctx context.Context, scan *model.ScanRecord) (*Outcome, error) {
	defer p.gate.Release()

	log := zap.L().With(zap.String("scan", scan.ID), zap.String("company", scan.CompanyKey))
	log.Info("pipeline: starting scan")

	if err := p.store.UpdateScanStatus(ctx, scan.ID, model.ScanStatusRunning, ""); err != nil {
		return nil, eris.Wrap(err, "pipeline: mark running")
	}

	out := &Outcome{CompanyKey: scan.CompanyKey, ScanID: scan.ID}
	var completed []string

	runStage := func(name string, fn func() error) error {
		if err := fn(); err != nil {
			log.Error("pipeline: stage failed", zap.String("stage", name), zap.Error(err))
			if statusErr := p.store.UpdateScanStatus(ctx, scan.ID, model.ScanStatusFailed, err.Error()); statusErr != nil {
				log.Warn("pipeline: failed to record failure", zap.Error(statusErr))
			}
			return eris.Wrapf(err, "pipeline: stage %s", name)
		}
		completed = append(completed, name)
		progress := float64(len(completed)) / float64(len(model.Stages))
		if err := p.store.UpdateScanProgress(ctx, scan.ID, completed, progress); err != nil {
			log.Warn("pipeline: failed to update progress", zap.Error(err))
		}
		log.Info("pipeline: stage complete", zap.String("stage", name), zap.Float64("progress", progress))
		return nil
	}

	if err := runStage(model.StageDiscovery, func() error { return p.discover(ctx, out) }); err != nil {
		return nil, err
	}
	if err := runStage(model.StageSignals, func() error { return p.classify(ctx, out) }); err != nil {
		return nil, err
	}
	if err := runStage(model.StageScoring, func() error { return p.scoreStage(ctx, out) }); err != nil {
		return nil, err
	}
	if err := runStage(model.StageState, func() error { return p.stateStage(ctx, out) }); err != nil {
		return nil, err
	}
	if err := runStage(model.StageDecision, func() error { return p.decide(ctx, out) }); err != nil {
		return nil, err
	}
	if err := runStage(model.StageNarrative, func() error { return p.narrate(ctx, out) }); err != nil {
		return nil, err
	}

	if err := p.persistVerdict(ctx, out); err != nil {
		if statusErr := p.store.UpdateScanStatus(ctx, scan.ID, model.ScanStatusFailed, err.Error()); statusErr != nil {
			log.Warn("pipeline: failed to record failure", zap.Error(statusErr))
		}
		return nil, err
	}
	if err := p.store.UpdateScanStatus(ctx, scan.ID, model.ScanStatusCompleted, ""); err != nil {
		return nil, eris.Wrap(err, "pipeline: mark completed")
	}

	log.Info("pipeline: scan complete",
		zap.Float64("opportunity", out.Breakdown.OpportunityScore),
		zap.String("priority", string(out.Breakdown.Priority)),
	)
	return out, nil
}

// discover loads the evidence bundle, from cache when fresh.
func (p *Pipeline) discover(ctx context.Context, out *Outcome) error {
	var bundle evidence.Bundle
	hit, err := p.fromCache(ctx, out.CompanyKey, model.StageDiscovery, &bundle)
	if err != nil {
		return err
	}
	if !hit {
		fetched, err := p.fetcher.Fetch(ctx, out.CompanyKey)
		if err != nil {
			return err
		}
		bundle = *fetched
		if err := p.cache.Set(ctx, out.CompanyKey, model.StageDiscovery, bundle,
			map[string]string{"bundle": "intake"}); err != nil {
			return err
		}
	}
	out.Meta = bundle.Meta
	out.Evidence = bundle.Items
	return nil
}

func (p *Pipeline) classify(ctx context.Context, out *Outcome) error {
	hit, err := p.fromCache(ctx, out.CompanyKey, model.StageSignals, &out.Signals)
	if err != nil {
		return err
	}
	if hit {
		return nil
	}
	out.Signals = p.classifier.Classify(out.Evidence)
	return p.cache.Set(ctx, out.CompanyKey, model.StageSignals, out.Signals,
		map[string]string{"signals": "rules"})
}

func (p *Pipeline) scoreStage(ctx context.Context, out *Outcome) error {
	hit, err := p.fromCache(ctx, out.CompanyKey, model.StageScoring, &out.Breakdown)
	if err != nil {
		return err
	}
	if hit {
		return nil
	}
	out.Breakdown = p.calc.Score(out.Signals, out.Meta)
	return p.cache.Set(ctx, out.CompanyKey, model.StageScoring, out.Breakdown,
		map[string]string{"breakdown": "rules"})
}

func (p *Pipeline) stateStage(ctx context.Context, out *Outcome) error {
	hit, err := p.fromCache(ctx, out.CompanyKey, model.StageState, &out.State)
	if err != nil {
		return err
	}
	if hit {
		return nil
	}
	out.State = p.classifier.ClassifyState(out.Evidence)
	return p.cache.Set(ctx, out.CompanyKey, model.StageState, out.State,
		map[string]string{"state": "rules"})
}

func (p *Pipeline) decide(ctx context.Context, out *Outcome) error {
	hit, err := p.fromCache(ctx, out.CompanyKey, model.StageDecision, &out.Decision)
	if err != nil {
		return err
	}
	if hit {
		return nil
	}
	out.Decision = score.Decide(out.Breakdown)
	return p.cache.Set(ctx, out.CompanyKey, model.StageDecision, out.Decision,
		map[string]string{"decision": "rules"})
}

func (p *Pipeline) narrate(ctx context.Context, out *Outcome) error {
	hit, err := p.fromCache(ctx, out.CompanyKey, model.StageNarrative, &out.Narrative)
	if err != nil {
		return err
	}
	if hit {
		return nil
	}
	res, err := p.generator.Generate(ctx, narrative.Input{
		Meta:      out.Meta,
		Signals:   out.Signals,
		Breakdown: out.Breakdown,
		State:     out.State,
		Decision:  out.Decision,
	})
	if err != nil {
		return err
	}
	out.Narrative = *res
	return p.cache.Set(ctx, out.CompanyKey, model.StageNarrative, out.Narrative,
		map[string]string{"summary": res.Source})
}

// persistVerdict upserts the queryable company record derived from the scan.
func (p *Pipeline) persistVerdict(ctx context.Context, out *Outcome) error {
	data, err := json.Marshal(out)
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal outcome")
	}

	name := out.Meta.Name
	if name == "" {
		name = out.CompanyKey
	}

	return p.store.UpsertCompany(ctx, model.CompanyRecord{
		Key:        out.CompanyKey,
		ScanID:     out.ScanID,
		Name:       name,
		Descriptor: out.Meta.Descriptor(),
		Score:      out.Breakdown.ScoreInt(),
		Confidence: out.Breakdown.Priority,
		Coverage:   model.Coverage(len(out.Evidence)),
		Data:       data,
	})
}

// fromCache fills target from a fresh cache entry, reporting whether it hit.
func (p *Pipeline) fromCache(ctx context.Context, companyKey, stage string, target any) (bool, error) {
	payload, err := p.cache.Get(ctx, companyKey, stage)
	if err != nil {
		return false, err
	}
	if payload == nil {
		return false, nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		// A corrupt entry is recomputed, not fatal.
		zap.L().Warn("pipeline: discarding unreadable cache entry",
			zap.String("company", companyKey),
			zap.String("stage", stage),
			zap.Error(err),
		)
		return false, nil
	}
	return true, nil
}
