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

// AnalyticEvaluator is the System 2 stage: a cold financial read with no
// retrieval and no psychological framing.
type AnalyticEvaluator struct {
	client reasoner.Client
}

// NewAnalyticEvaluator builds the evaluator.
func NewAnalyticEvaluator(client reasoner.Client) *AnalyticEvaluator {
	return &AnalyticEvaluator{client: client}
}

// Affordable is the one rule of the analytic stage: price within the
// monthly budget, boundary inclusive (price == budget is affordable).
// Computed locally so it is monotonic in price and immune to model
// output.
func Affordable(price, budget float64) bool {
	return price <= budget
}

type analyticReply struct {
	Rationale string `json:"rationale"`
}

// EvaluateAnalytic produces the financial assessment. The affordability
// boolean is decided here; the Reasoner is asked only to explain it and
// cannot flip it. A call failure or unparseable reply is fatal to the
// stage.
func (e *AnalyticEvaluator) EvaluateAnalytic(ctx context.Context, purchase types.PurchaseQuery, profile types.PsychographicProfile) (types.AnalyticAssessment, error) {
	timer := logging.StartTimer(logging.CategoryCognition, "cognition.EvaluateAnalytic")
	defer timer.Stop()

	affordable := Affordable(purchase.Price, profile.MonthlyBudget)

	userPrompt := prompt.Decision(profile, purchase, affordable)
	raw, err := e.client.CompleteWithSystem(ctx, prompt.DecisionSystem, userPrompt)
	if err != nil {
		return types.AnalyticAssessment{}, err
	}

	var reply analyticReply
	if err := json.Unmarshal([]byte(replyPayload(raw)), &reply); err != nil {
		return types.AnalyticAssessment{}, &reasoner.Error{Op: "parse", Err: fmt.Errorf("analytic reply: %w", err)}
	}
	rationale := strings.TrimSpace(reply.Rationale)
	if rationale == "" {
		return types.AnalyticAssessment{}, &reasoner.Error{Op: "parse", Err: fmt.Errorf("analytic reply missing rationale")}
	}

	logging.Get(logging.CategoryCognition).Debug("analytic: price=%.2f budget=%.2f affordable=%v",
		purchase.Price, profile.MonthlyBudget, affordable)
	return types.AnalyticAssessment{
		Affordable: affordable,
		Rationale:  rationale,
	}, nil
}
