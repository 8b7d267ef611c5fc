// internal/agent/loop.go
package agent

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/wayfinder-cli/api/schemas"
)

// LoopConfig parameterizes one run of the decision loop.
type LoopConfig struct {
	Goal    string
	Budgets schemas.Budgets
	Hints   schemas.SuccessHints

	// StepSummaryLookback is how many recent steps each decision prompt
	// summarizes. Defaults to 8.
	StepSummaryLookback int

	// PaceMinMs/PaceMaxMs bound the randomized inter-step delay. A
	// non-positive PaceMaxMs disables pacing entirely (used by tests).
	PaceMinMs int
	PaceMaxMs int

	// DecisionTimeout bounds each completion-service call. Defaults to 30s.
	DecisionTimeout time.Duration

	// Listener, when set, is notified after every appended step.
	Listener StepListener

	// Clock can be overridden by tests; defaults to time.Now.
	Clock func() time.Time
}

// Loop is the step-wise state machine that turns page observations into
// actions until the run reaches a terminal outcome. One Loop drives exactly
// one run and owns its ladder state and trace exclusively; it is not safe
// for reuse or concurrent Run calls.
type Loop struct {
	cfg    LoopConfig
	logger *zap.Logger
	driver Driver
	llm    schemas.LLMClient
	rng    *rand.Rand

	ladder HelpLadderState
	steps  []schemas.StepRecord
}

// NewLoop wires a decision loop for a single run.
func NewLoop(logger *zap.Logger, driver Driver, llm schemas.LLMClient, cfg LoopConfig) *Loop {
	if cfg.StepSummaryLookback <= 0 {
		cfg.StepSummaryLookback = 8
	}
	if cfg.DecisionTimeout <= 0 {
		cfg.DecisionTimeout = 30 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Loop{
		cfg:    cfg,
		logger: logger.Named("decision_loop"),
		driver: driver,
		llm:    llm,
		rng:    rand.New(rand.NewSource(cfg.Clock().UnixNano())),
	}
}

// Run executes the loop until a terminal outcome is reached. It never
// returns an error: every enumerated failure mode becomes a structured
// RunOutcome with a human-readable reason. The returned trace is the
// complete, append-only step sequence.
func (l *Loop) Run(ctx context.Context) (schemas.RunOutcome, []schemas.StepRecord) {
	start := l.cfg.Clock()
	maxElapsed := time.Duration(l.cfg.Budgets.MaxMinutes * float64(time.Minute))

	for iter := 0; iter < l.cfg.Budgets.MaxSteps; iter++ {
		elapsed := l.cfg.Clock().Sub(start)
		if elapsed >= maxElapsed {
			status := schemas.StatusPartial
			if len(l.steps) == 0 {
				status = schemas.StatusFail
			}
			return l.terminal(status, "time budget exhausted", nil)
		}

		obs, err := l.driver.Observe(ctx)
		if err != nil {
			return l.terminal(schemas.StatusFail, fmt.Sprintf("failed to observe page: %v", err), nil)
		}

		key := pageIdentityKey(obs.URL, obs.FirstHeading())
		l.logger.Debug("Observed page",
			zap.Int("iteration", iter),
			zap.String("identity_key", key),
			zap.Int("steps_without_progress", l.ladder.StepsWithoutProgress),
		)

		l.ladder.advance(obs)

		raw, err := l.decide(ctx, obs, iter, maxElapsed-elapsed)
		if err != nil {
			return l.terminal(schemas.StatusFail, fmt.Sprintf("completion service failure: %v", err), nil)
		}

		action, err := NormalizeActionResponse(raw)
		if err != nil {
			return l.terminal(schemas.StatusFail, fmt.Sprintf("decision error: %v", err), nil)
		}

		if action.Type == ActionDone {
			return l.handleDone(obs, action)
		}

		if isBlockedDestructiveClick(action, l.cfg.Goal) {
			return l.terminal(schemas.StatusFail,
				fmt.Sprintf("blocked potentially destructive action: click %q", action.Target), nil)
		}

		step := l.executeStep(ctx, obs, action)

		l.ladder.recordProgress(step.Result.Progress)
		if l.ladder.StepsWithoutProgress >= discoverabilityCeiling {
			return l.terminal(schemas.StatusFail,
				fmt.Sprintf("discoverability block: no progress for %d steps", discoverabilityCeiling), nil)
		}

		l.pace(ctx)

		if !l.cfg.Hints.Empty() {
			if after, obsErr := l.driver.Observe(ctx); obsErr == nil && hintsSatisfied(l.cfg.Hints, after) {
				return l.terminal(schemas.StatusSuccess, "success hints satisfied", []int{step.Index})
			}
		}
	}

	return l.terminal(schemas.StatusPartial, "step budget exhausted", nil)
}

// decide renders the decision prompt and invokes the completion service.
// Transport failures and timeouts here are fatal to the run.
func (l *Loop) decide(ctx context.Context, obs schemas.PageObservation, iter int, remaining time.Duration) (string, error) {
	recent := l.steps
	if len(recent) > l.cfg.StepSummaryLookback {
		recent = recent[len(recent)-l.cfg.StepSummaryLookback:]
	}

	dc := decisionContext{
		Goal:           l.cfg.Goal,
		Observation:    obs,
		RecentSteps:    recent,
		Ladder:         l.ladder,
		RemainingSteps: l.cfg.Budgets.MaxSteps - iter,
		RemainingTime:  remaining,
		Hints:          l.cfg.Hints,
	}

	apiCtx, cancel := context.WithTimeout(ctx, l.cfg.DecisionTimeout)
	defer cancel()

	return l.llm.Generate(apiCtx, schemas.GenerationRequest{
		SystemPrompt: generateSystemPrompt(),
		UserPrompt:   generateUserPrompt(dc),
		Tier:         schemas.TierPowerful,
		Options:      schemas.GenerationOptions{ForceJSONFormat: true, Temperature: 0.2},
	})
}

// handleDone records the terminal step for an agent-declared completion.
// When success hints are configured they must all hold against the current
// observation, otherwise the declared success is downgraded to partial.
func (l *Loop) handleDone(obs schemas.PageObservation, action Action) (schemas.RunOutcome, []schemas.StepRecord) {
	status := schemas.StatusSuccess
	reason := action.Reason
	if !l.cfg.Hints.Empty() && !hintsSatisfied(l.cfg.Hints, obs) {
		status = schemas.StatusPartial
		reason = "declared done but success hints not fully satisfied"
	}

	step := schemas.StepRecord{
		Index:       len(l.steps),
		Timestamp:   l.cfg.Clock(),
		URL:         obs.URL,
		Title:       obs.Title,
		Observation: obs,
		Action:      action.Summary(),
		Result: schemas.StepResult{
			OK:       true,
			Notes:    "agent declared done",
			NewURL:   obs.URL,
			Progress: schemas.ProgressNone,
		},
	}
	l.append(step)

	return l.terminal(status, reason, action.EvidenceSteps)
}

// executeStep runs one non-terminal action through the driver and appends
// the resulting StepRecord. Execution failures are contained here: they
// produce an ok=false result, never a run abort.
func (l *Loop) executeStep(ctx context.Context, obs schemas.PageObservation, action Action) schemas.StepRecord {
	beforeURL := obs.URL

	notes, execErr := l.driver.Execute(ctx, action)
	if execErr == nil {
		switch action.Type {
		case ActionSearch:
			l.ladder.SearchTermsUsed = append(l.ladder.SearchTermsUsed, action.Query)
		case ActionOpenHelp:
			l.ladder.HelpOpened = true
		}
	} else {
		l.logger.Warn("Action execution failed",
			zap.String("action", string(action.Type)),
			zap.String("code", string(CodeOf(execErr))),
			zap.Error(execErr),
		)
	}

	if settle := l.driver.WaitSettle(ctx); settle.Status != SettleOK {
		l.logger.Debug("Navigation settle incomplete", zap.String("detail", settle.Detail))
	}

	afterURL, urlErr := l.driver.CurrentURL(ctx)
	if urlErr != nil {
		l.logger.Debug("Failed to read post-action URL", zap.Error(urlErr))
		afterURL = beforeURL
	}

	index := len(l.steps)
	screenshot, shotErr := l.driver.Screenshot(ctx, fmt.Sprintf("step-%03d", index))
	if shotErr != nil {
		l.logger.Debug("Screenshot capture failed", zap.Error(shotErr))
	}

	result := schemas.StepResult{
		OK:       execErr == nil,
		Notes:    notes,
		NewURL:   afterURL,
		Progress: AssessProgress(beforeURL, afterURL),
	}
	if execErr != nil {
		result.Error = execErr.Error()
	}

	issues := l.driver.DrainPageIssues()
	step := schemas.StepRecord{
		Index:          index,
		Timestamp:      l.cfg.Clock(),
		URL:            beforeURL,
		Title:          obs.Title,
		Observation:    obs,
		Action:         action.Summary(),
		Result:         result,
		Screenshot:     screenshot,
		ConsoleErrors:  issues.ConsoleErrors,
		FailedRequests: issues.FailedRequests,
	}
	l.append(step)
	return step
}

func (l *Loop) append(step schemas.StepRecord) {
	l.steps = append(l.steps, step)
	if l.cfg.Listener != nil {
		l.cfg.Listener(step)
	}
}

// pace inserts the randomized inter-step delay. Purely behavioral rate
// limiting; disabled when PaceMaxMs is non-positive.
func (l *Loop) pace(ctx context.Context) {
	if l.cfg.PaceMaxMs <= 0 {
		return
	}
	spread := l.cfg.PaceMaxMs - l.cfg.PaceMinMs
	delay := time.Duration(l.cfg.PaceMinMs) * time.Millisecond
	if spread > 0 {
		delay += time.Duration(l.rng.Intn(spread)) * time.Millisecond
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}

func (l *Loop) terminal(status schemas.RunStatus, reason string, evidence []int) (schemas.RunOutcome, []schemas.StepRecord) {
	outcome := schemas.RunOutcome{Status: status, Reason: reason, CompletionEvidence: evidence}
	l.logger.Info("Run terminated",
		zap.String("status", string(status)),
		zap.String("reason", reason),
		zap.Int("steps", len(l.steps)),
	)
	return outcome, l.steps
}

// hintsSatisfied checks configured success hints against an observation:
// every MustSeeText entry must appear in the page's compact text, and when
// URL hints exist at least one must be a substring of the current URL.
func hintsSatisfied(h schemas.SuccessHints, obs schemas.PageObservation) bool {
	pageText := strings.ToLower(obs.CompactText())
	for _, want := range h.MustSeeText {
		if !strings.Contains(pageText, strings.ToLower(want)) {
			return false
		}
	}
	if len(h.MustEndOnURLIncludes) > 0 {
		matched := false
		for _, frag := range h.MustEndOnURLIncludes {
			if strings.Contains(obs.URL, frag) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
