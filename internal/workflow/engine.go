// Package workflow wires the pipeline stages into a fixed graph: profile
// resolution, a parallel fan-out to the heuristic and analytic
// evaluators, a full join, then synthesis. The graph never changes shape,
// so the engine is a hand-rolled state machine rather than a generic
// graph executor: every transition is a plain function call and the only
// synchronization point is the evaluator join barrier.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bobaba99/truepick/internal/logging"
	"github.com/bobaba99/truepick/internal/profile"
	"github.com/bobaba99/truepick/internal/types"
)

// DefaultJoinTimeout bounds the evaluator join when no override is
// configured. Both branches call a model provider, so the window is wide.
const DefaultJoinTimeout = 120 * time.Second

// ProfileSource abstracts profile persistence. Implemented by
// store.ProfileStore.
type ProfileSource interface {
	SaveProfile(ctx context.Context, userID string, profile types.PsychographicProfile) error
	LoadCurrentProfile(ctx context.Context, userID string) (*types.PsychographicProfile, error)
}

// HeuristicEvaluator is the fast psychological branch. Implemented by
// cognition.HeuristicEvaluator.
type HeuristicEvaluator interface {
	EvaluateHeuristic(ctx context.Context, purchase types.PurchaseQuery, profile types.PsychographicProfile) (types.HeuristicAssessment, error)
}

// AnalyticEvaluator is the deliberate financial branch. Implemented by
// cognition.AnalyticEvaluator.
type AnalyticEvaluator interface {
	EvaluateAnalytic(ctx context.Context, purchase types.PurchaseQuery, profile types.PsychographicProfile) (types.AnalyticAssessment, error)
}

// Synthesizer arbitrates the two branch outputs. Implemented by
// cognition.Synthesizer.
type Synthesizer interface {
	Synthesize(ctx context.Context, heuristic types.HeuristicAssessment, analytic types.AnalyticAssessment) (types.SynthesisVerdict, error)
}

// Input seeds one run. A non-nil Quiz recompiles and replaces the user's
// current profile before evaluation; otherwise the stored profile is
// loaded, and a user with no stored profile is rejected up front.
type Input struct {
	UserID   string
	Purchase types.PurchaseQuery
	Quiz     *types.QuizSubmission
}

// Engine executes purchase-decision runs. Safe for concurrent use: all
// per-run state lives in the PipelineState each Run allocates.
type Engine struct {
	profiles    ProfileSource
	heuristic   HeuristicEvaluator
	analytic    AnalyticEvaluator
	synthesizer Synthesizer
	joinTimeout time.Duration
}

// NewEngine wires the stages. A non-positive joinTimeout falls back to
// DefaultJoinTimeout.
func NewEngine(profiles ProfileSource, h HeuristicEvaluator, a AnalyticEvaluator, s Synthesizer, joinTimeout time.Duration) *Engine {
	if joinTimeout <= 0 {
		joinTimeout = DefaultJoinTimeout
	}
	return &Engine{
		profiles:    profiles,
		heuristic:   h,
		analytic:    a,
		synthesizer: s,
		joinTimeout: joinTimeout,
	}
}

// Run executes one evaluation from Start to Done. Synchronous to the
// caller, internally concurrent: the two evaluator branches run in
// parallel under the join deadline and the engine writes their disjoint
// slots only after both return. Any stage failure moves the state to
// Failed and returns it alongside a single WorkflowError; a failed run
// never carries a partial verdict and is never retried here.
func (e *Engine) Run(ctx context.Context, input Input) (*PipelineState, error) {
	timer := logging.StartTimer(logging.CategoryWorkflow, "Engine.Run")
	defer timer.StopWithInfo()

	state := &PipelineState{
		RunID:     uuid.NewString(),
		StateName: StateStart,
		UserID:    input.UserID,
		Purchase:  input.Purchase,
		StartedAt: time.Now().UTC(),
	}

	if strings.TrimSpace(input.UserID) == "" {
		return e.fail(state, StateStart, &types.ValidationError{Field: "user_id", Reason: "must not be empty"})
	}
	if err := input.Purchase.Validate(); err != nil {
		return e.fail(state, StateStart, err)
	}

	resolved, err := e.resolveProfile(ctx, input)
	if err != nil {
		return e.fail(state, StateStart, err)
	}
	state.Profile = *resolved
	state.StateName = StateProfiled

	// Both branches read the same immutable snapshot and hand their
	// results back as return values; nothing below shares mutable state
	// until the join completes.
	state.StateName = StateEvaluating
	purchase := state.Purchase
	snapshot := state.Profile

	joinCtx, cancel := context.WithTimeout(ctx, e.joinTimeout)
	defer cancel()

	var (
		heuristic types.HeuristicAssessment
		analytic  types.AnalyticAssessment
	)
	eg, egCtx := errgroup.WithContext(joinCtx)
	eg.Go(func() error {
		h, err := e.heuristic.EvaluateHeuristic(egCtx, purchase, snapshot)
		if err != nil {
			return fmt.Errorf("heuristic branch: %w", err)
		}
		heuristic = h
		return nil
	})
	eg.Go(func() error {
		a, err := e.analytic.EvaluateAnalytic(egCtx, purchase, snapshot)
		if err != nil {
			return fmt.Errorf("analytic branch: %w", err)
		}
		analytic = a
		return nil
	})

	if err := eg.Wait(); err != nil {
		if joinCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			err = &JoinTimeoutError{Timeout: e.joinTimeout}
		}
		return e.fail(state, StateEvaluating, err)
	}

	state.Heuristic = heuristic
	state.Analytic = analytic
	state.StateName = StateSynthesized

	verdict, err := e.synthesizer.Synthesize(ctx, state.Heuristic, state.Analytic)
	if err != nil {
		return e.fail(state, StateSynthesized, err)
	}
	state.Verdict = &verdict
	state.FinishedAt = time.Now().UTC()
	state.StateName = StateDone

	logging.Workflow("Run %s done: user=%s item=%q verdict=%s degraded=%v",
		state.RunID, state.UserID, purchase.ItemName, verdict.Label, state.Heuristic.Degraded)
	return state, nil
}

// resolveProfile compiles a fresh profile from quiz answers, or falls
// back to the stored current one. The compile path replaces the current
// profile before any evaluator sees it.
func (e *Engine) resolveProfile(ctx context.Context, input Input) (*types.PsychographicProfile, error) {
	if input.Quiz != nil {
		compiled, err := profile.Compile(*input.Quiz)
		if err != nil {
			return nil, err
		}
		if err := e.profiles.SaveProfile(ctx, input.UserID, compiled); err != nil {
			return nil, fmt.Errorf("failed to save compiled profile: %w", err)
		}
		logging.WorkflowDebug("Profile recompiled for %s", input.UserID)
		return &compiled, nil
	}

	current, err := e.profiles.LoadCurrentProfile(ctx, input.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if current == nil {
		return nil, &types.ValidationError{Field: "user_id", Reason: "no profile on record, submit the quiz first"}
	}
	return current, nil
}

// fail moves the run to the terminal Failed state. The verdict slot is
// left empty: callers get the tagged error, never a partial result.
func (e *Engine) fail(state *PipelineState, stage StateName, err error) (*PipelineState, error) {
	state.StateName = StateFailed
	state.FinishedAt = time.Now().UTC()
	logging.Get(logging.CategoryWorkflow).Warn("Run %s failed at %s: %v", state.RunID, stage, err)
	return state, &WorkflowError{Stage: stage, Err: err}
}
