// Package service orchestrates complete exploration runs: browser setup,
// the decision loop, post-run evaluation, persistence, and admission
// control for concurrent runs.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
	"github.com/xkilldash9x/wayfinder-cli/internal/agent"
	"github.com/xkilldash9x/wayfinder-cli/internal/browser"
	"github.com/xkilldash9x/wayfinder-cli/internal/config"
	"github.com/xkilldash9x/wayfinder-cli/internal/evaluator"
	"github.com/xkilldash9x/wayfinder-cli/internal/runstore"
)

// RunRequest is one exploration order. Zero budgets fall back to the
// configured defaults.
type RunRequest struct {
	Goal      string
	TargetURL string
	Budgets   schemas.Budgets
	Hints     schemas.SuccessHints
	Listener  agent.StepListener
}

// DriverFactory builds the page driver for one run.
type DriverFactory func(ctx context.Context, screenshotDir string) (agent.Driver, error)

// Runner executes exploration runs with a counting admission policy: at
// most MaxConcurrentRuns drive a browser at any moment, the rest block in
// Explore until a slot frees up.
type Runner struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     runstore.Store
	llm       schemas.LLMClient
	sem       *semaphore.Weighted
	newDriver DriverFactory
}

// NewRunner wires a runner with the default chromedp/static driver factory.
func NewRunner(cfg *config.Config, logger *zap.Logger, store runstore.Store, llm schemas.LLMClient) *Runner {
	slots := int64(cfg.Service.MaxConcurrentRuns)
	if slots < 1 {
		slots = 1
	}
	r := &Runner{
		cfg:    cfg,
		logger: logger.Named("runner"),
		store:  store,
		llm:    llm,
		sem:    semaphore.NewWeighted(slots),
	}
	r.newDriver = func(ctx context.Context, screenshotDir string) (agent.Driver, error) {
		return browser.New(ctx, cfg.Browser, screenshotDir, logger)
	}
	return r
}

// WithDriverFactory substitutes the driver construction, used by tests.
func (r *Runner) WithDriverFactory(factory DriverFactory) *Runner {
	r.newDriver = factory
	return r
}

// Explore runs one exploration to completion and returns the evaluated,
// persisted run record. The record is returned even when the run itself
// failed; an error means the run could not be executed at all.
func (r *Runner) Explore(ctx context.Context, req RunRequest) (*schemas.RunRecord, error) {
	if req.Goal == "" {
		return nil, fmt.Errorf("a goal is required")
	}
	if req.TargetURL == "" {
		return nil, fmt.Errorf("a target URL is required")
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for a run slot: %w", err)
	}
	defer r.sem.Release(1)

	runID := uuid.NewString()
	logger := r.logger.With(zap.String("run_id", runID))
	logger.Info("Starting exploration",
		zap.String("goal", req.Goal),
		zap.String("target", req.TargetURL),
	)

	budgets := r.effectiveBudgets(req.Budgets)
	record := &schemas.RunRecord{
		ID:        runID,
		Goal:      req.Goal,
		TargetURL: req.TargetURL,
		StartedAt: time.Now().UTC(),
		Budgets:   budgets,
		Hints:     req.Hints,
	}

	screenshotDir := filepath.Join(r.cfg.Artifact.Dir, runID)
	driver, err := r.newDriver(ctx, screenshotDir)
	if err != nil {
		return nil, fmt.Errorf("failed to start page driver: %w", err)
	}
	defer func() {
		if closeErr := driver.Close(context.Background()); closeErr != nil {
			logger.Warn("Driver close failed", zap.Error(closeErr))
		}
	}()

	if err := driver.Navigate(ctx, req.TargetURL); err != nil {
		record.Outcome = schemas.RunOutcome{
			Status: schemas.StatusFail,
			Reason: fmt.Sprintf("failed to reach target: %v", err),
		}
		r.finishRecord(ctx, logger, record)
		return record, nil
	}

	loop := agent.NewLoop(logger, driver, r.llm, agent.LoopConfig{
		Goal:                req.Goal,
		Budgets:             budgets,
		Hints:               req.Hints,
		StepSummaryLookback: r.cfg.Agent.StepSummaryLookback,
		PaceMinMs:           r.cfg.Agent.PaceMinMs,
		PaceMaxMs:           r.cfg.Agent.PaceMaxMs,
		Listener:            req.Listener,
	})

	outcome, steps := loop.Run(ctx)
	record.Outcome = outcome
	record.Steps = steps

	r.finishRecord(ctx, logger, record)
	return record, nil
}

// finishRecord stamps the end time, evaluates the trace, and persists the
// record. Persistence failures are logged, not propagated: the caller still
// gets the evaluated record.
func (r *Runner) finishRecord(ctx context.Context, logger *zap.Logger, record *schemas.RunRecord) {
	record.EndedAt = time.Now().UTC()
	evaluator.EvaluateRun(record)

	if err := r.store.SaveRun(ctx, record); err != nil {
		logger.Error("Failed to persist run record", zap.Error(err))
	}

	logger.Info("Exploration finished",
		zap.String("status", string(record.Outcome.Status)),
		zap.String("reason", record.Outcome.Reason),
		zap.Int("steps", record.Metrics.TotalSteps),
		zap.Int("findings", len(record.Findings)),
	)
}

func (r *Runner) effectiveBudgets(req schemas.Budgets) schemas.Budgets {
	b := req
	if b.MaxSteps <= 0 {
		b.MaxSteps = r.cfg.Agent.MaxSteps
	}
	if b.MaxMinutes <= 0 {
		b.MaxMinutes = r.cfg.Agent.MaxMinutes
	}
	return b
}
