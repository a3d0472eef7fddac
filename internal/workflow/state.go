package workflow

import (
	"time"

	"github.com/bobaba99/truepick/internal/types"
)

// StateName identifies where a run sits in the pipeline graph.
type StateName string

const (
	StateStart       StateName = "start"
	StateProfiled    StateName = "profiled"
	StateEvaluating  StateName = "evaluating"
	StateSynthesized StateName = "synthesized"
	StateDone        StateName = "done"
	StateFailed      StateName = "failed"
)

// PipelineState is the single typed carrier threaded through one run.
// Each stage writes only the slots it owns: the profile stage fills
// Profile, the two parallel evaluators produce Heuristic and Analytic
// (written by the engine after the join barrier, so the branches never
// touch shared memory), and the synthesizer fills Verdict. One run per
// value; states are never shared across runs.
type PipelineState struct {
	RunID      string                     `json:"run_id"`
	StateName  StateName                  `json:"state"`
	UserID     string                     `json:"user_id"`
	Purchase   types.PurchaseQuery        `json:"purchase"`
	Profile    types.PsychographicProfile `json:"profile"`
	Heuristic  types.HeuristicAssessment  `json:"heuristic"`
	Analytic   types.AnalyticAssessment   `json:"analytic"`
	Verdict    *types.SynthesisVerdict    `json:"verdict,omitempty"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at,omitempty"`
}

// Report flattens a completed state into the transport-facing summary.
// A failed run reports an empty verdict; callers should not serve it.
func (s *PipelineState) Report() types.AnalysisReport {
	report := types.AnalysisReport{
		RunID:           s.RunID,
		UserID:          s.UserID,
		Item:            s.Purchase.ItemName,
		Price:           s.Purchase.Price,
		Heuristic:       s.Heuristic,
		Analytic:        s.Analytic,
		CompletedAt:     s.FinishedAt,
		DegradedContext: s.Heuristic.Degraded,
	}
	if s.Verdict != nil {
		report.Verdict = s.Verdict.Label
		report.Rationale = s.Verdict.Rationale
	}
	return report
}
