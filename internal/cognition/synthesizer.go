package cognition

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bobaba99/truepick/internal/logging"
	"github.com/bobaba99/truepick/internal/prompt"
	"github.com/bobaba99/truepick/internal/reasoner"
	"github.com/bobaba99/truepick/internal/types"
)

// ResolveVerdict is the deterministic resolution table. It runs before
// any prose is generated, so the label is reproducible across identical
// structured inputs regardless of what the model later writes:
//
//	affordable, not flagged            -> approve
//	affordable, flagged impulsive      -> approve_with_caveats
//	not affordable, flagged impulsive  -> reject
//	not affordable, values-aligned     -> explore_compromise
//	not affordable, otherwise          -> warn
//
// Flagging is conservative: any trigger, or any label outside the known
// set, counts as impulsive (see HeuristicAssessment.FlaggedImpulsive).
func ResolveVerdict(heuristic types.HeuristicAssessment, analytic types.AnalyticAssessment) types.VerdictLabel {
	flagged := heuristic.FlaggedImpulsive()

	if analytic.Affordable {
		if flagged {
			return types.VerdictApproveWithCaveats
		}
		return types.VerdictApprove
	}

	if flagged {
		return types.VerdictReject
	}
	if heuristic.Label == types.LabelValuesAligned {
		return types.VerdictExploreCompromise
	}
	return types.VerdictWarn
}

// Synthesizer is the join point of the two evaluators: it fixes the
// verdict label by table, then asks the Reasoner for a rationale that
// references both assessments.
type Synthesizer struct {
	client reasoner.Client
}

// NewSynthesizer builds the synthesizer.
func NewSynthesizer(client reasoner.Client) *Synthesizer {
	return &Synthesizer{client: client}
}

type synthesisReply struct {
	Rationale string `json:"rationale"`
}

// Synthesize arbitrates the two assessments into the final verdict. The
// label comes from ResolveVerdict alone; the model writes the supporting
// prose and can never override the label. A call failure or unparseable
// reply is fatal to the stage.
func (s *Synthesizer) Synthesize(ctx context.Context, heuristic types.HeuristicAssessment, analytic types.AnalyticAssessment) (types.SynthesisVerdict, error) {
	timer := logging.StartTimer(logging.CategoryCognition, "cognition.Synthesize")
	defer timer.Stop()

	label := ResolveVerdict(heuristic, analytic)

	userPrompt := prompt.Synthesis(heuristic, analytic, label)
	raw, err := s.client.CompleteWithSystem(ctx, prompt.SynthesisSystem, userPrompt)
	if err != nil {
		return types.SynthesisVerdict{}, err
	}

	var reply synthesisReply
	if err := json.Unmarshal([]byte(replyPayload(raw)), &reply); err != nil {
		return types.SynthesisVerdict{}, &reasoner.Error{Op: "parse", Err: fmt.Errorf("synthesis reply: %w", err)}
	}
	rationale := strings.TrimSpace(reply.Rationale)
	if rationale == "" {
		return types.SynthesisVerdict{}, &reasoner.Error{Op: "parse", Err: fmt.Errorf("synthesis reply missing rationale")}
	}

	logging.Get(logging.CategoryCognition).Info("verdict: %s (flagged=%v affordable=%v)",
		label, heuristic.FlaggedImpulsive(), analytic.Affordable)
	return types.SynthesisVerdict{
		Label:     label,
		Rationale: rationale,
	}, nil
}
