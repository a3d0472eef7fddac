// Package cognition holds the three reasoning stages of a purchase run:
// the heuristic evaluator (System 1, psychological read over retrieved
// literature), the analytic evaluator (System 2, budget arithmetic plus
// financial rationale), and the synthesizer that arbitrates the two into
// one verdict. Every verdict label is decided by deterministic code; the
// Reasoner only writes prose.
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

// ContextRetriever is the slice of the retrieval subsystem the heuristic
// evaluator needs. Satisfied by *retrieval.Retriever.
type ContextRetriever interface {
	Retrieve(ctx context.Context, queryText string) (types.RetrievedContext, error)
}

// HeuristicEvaluator is the System 1 stage: fast pattern-matching against
// what the knowledge base says about manipulation tactics, personalized by
// the profile's susceptibility tags.
type HeuristicEvaluator struct {
	client    reasoner.Client
	retriever ContextRetriever
}

// NewHeuristicEvaluator builds the evaluator. retriever may be nil, in
// which case every assessment runs profile-only.
func NewHeuristicEvaluator(client reasoner.Client, retriever ContextRetriever) *HeuristicEvaluator {
	return &HeuristicEvaluator{client: client, retriever: retriever}
}

// heuristicReply is the JSON shape the psychologist prompt demands.
type heuristicReply struct {
	Label     string   `json:"label"`
	Triggers  []string `json:"triggers"`
	Rationale string   `json:"rationale"`
}

// EvaluateHeuristic produces the psychological assessment for a purchase.
// A failed or empty retrieval degrades to profile-only prompting and
// marks the assessment Degraded; missing literature never fails the run.
// A Reasoner call failure or an unparseable reply is fatal to the stage.
func (e *HeuristicEvaluator) EvaluateHeuristic(ctx context.Context, purchase types.PurchaseQuery, profile types.PsychographicProfile) (types.HeuristicAssessment, error) {
	timer := logging.StartTimer(logging.CategoryCognition, "cognition.EvaluateHeuristic")
	defer timer.Stop()

	retrieved, degraded := e.gatherContext(ctx, purchase, profile)

	userPrompt := prompt.Psychologist(profile, purchase, retrieved.Text)
	raw, err := e.client.CompleteWithSystem(ctx, prompt.PsychologistSystem, userPrompt)
	if err != nil {
		return types.HeuristicAssessment{}, err
	}

	var reply heuristicReply
	if err := json.Unmarshal([]byte(replyPayload(raw)), &reply); err != nil {
		return types.HeuristicAssessment{}, &reasoner.Error{Op: "parse", Err: fmt.Errorf("heuristic reply: %w", err)}
	}

	label := types.HeuristicLabel(strings.ToLower(strings.TrimSpace(reply.Label)))
	if label == "" {
		return types.HeuristicAssessment{}, &reasoner.Error{Op: "parse", Err: fmt.Errorf("heuristic reply missing label")}
	}

	assessment := types.HeuristicAssessment{
		Label:     label,
		Triggers:  cleanTriggers(reply.Triggers),
		Rationale: strings.TrimSpace(reply.Rationale),
		Degraded:  degraded,
	}
	logging.Get(logging.CategoryCognition).Debug("heuristic: label=%s triggers=%v degraded=%v",
		assessment.Label, assessment.Triggers, assessment.Degraded)
	return assessment, nil
}

// gatherContext retrieves supporting literature for the purchase. Any
// retrieval failure is absorbed: the caller gets an empty context and a
// degraded flag, never an error.
func (e *HeuristicEvaluator) gatherContext(ctx context.Context, purchase types.PurchaseQuery, profile types.PsychographicProfile) (types.RetrievedContext, bool) {
	if e.retriever == nil {
		return types.RetrievedContext{}, true
	}

	query := prompt.RetrievalQuery(purchase.ItemName, profile.Susceptibilities)
	retrieved, err := e.retriever.Retrieve(ctx, query)
	if err != nil {
		logging.Get(logging.CategoryCognition).Warn("retrieval failed, degrading to profile-only reasoning: %v", err)
		return types.RetrievedContext{}, true
	}
	if retrieved.Empty() {
		logging.Get(logging.CategoryCognition).Debug("no relevant literature for %q", purchase.ItemName)
		return retrieved, true
	}
	return retrieved, false
}

// cleanTriggers trims and lowercases trigger names and drops empties, so
// downstream comparisons see the catalog form.
func cleanTriggers(raw []string) []string {
	var out []string
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
