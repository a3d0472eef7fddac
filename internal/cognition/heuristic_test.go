package cognition

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobaba99/truepick/internal/reasoner"
	"github.com/bobaba99/truepick/internal/types"
)

// fakeClient returns a canned reply and records the prompts it was given.
type fakeClient struct {
	reply     string
	err       error
	gotSystem string
	gotUser   string
	calls     int
}

func (c *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	c.calls++
	c.gotUser = prompt
	return c.reply, c.err
}

func (c *fakeClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.calls++
	c.gotSystem = systemPrompt
	c.gotUser = userPrompt
	return c.reply, c.err
}

// fakeRetriever returns a canned context or error.
type fakeRetriever struct {
	result   types.RetrievedContext
	err      error
	gotQuery string
}

func (r *fakeRetriever) Retrieve(ctx context.Context, queryText string) (types.RetrievedContext, error) {
	r.gotQuery = queryText
	return r.result, r.err
}

func heuristicProfile() types.PsychographicProfile {
	return types.PsychographicProfile{
		RiskTolerance:    types.RiskLow,
		MonthlyBudget:    500,
		IncomeBand:       types.Income25to50k,
		Susceptibilities: []types.Susceptibility{types.SusceptScarcity},
		Values:           "minimalism",
	}
}

func TestEvaluateHeuristicParsesReply(t *testing.T) {
	client := &fakeClient{reply: `{"label": "impulsive", "triggers": ["scarcity"], "rationale": "limited-stock framing"}`}
	retriever := &fakeRetriever{result: types.RetrievedContext{
		Chunks: []types.ScoredChunk{{Text: "scarcity raises urgency", Similarity: 0.9}},
		Text:   "scarcity raises urgency",
	}}
	eval := NewHeuristicEvaluator(client, retriever)

	got, err := eval.EvaluateHeuristic(context.Background(),
		types.PurchaseQuery{ItemName: "designer jacket", Price: 480}, heuristicProfile())
	require.NoError(t, err)

	assert.Equal(t, types.LabelImpulsive, got.Label)
	assert.Equal(t, []string{"scarcity"}, got.Triggers)
	assert.Equal(t, "limited-stock framing", got.Rationale)
	assert.False(t, got.Degraded)

	assert.Contains(t, retriever.gotQuery, "designer jacket")
	assert.Contains(t, retriever.gotQuery, "scarcity")
	assert.Contains(t, client.gotUser, "scarcity raises urgency")
}

func TestEvaluateHeuristicDegradedOnRetrievalError(t *testing.T) {
	client := &fakeClient{reply: `{"label": "neutral", "triggers": [], "rationale": "profile-only read"}`}
	retriever := &fakeRetriever{err: errors.New("store unreachable")}
	eval := NewHeuristicEvaluator(client, retriever)

	got, err := eval.EvaluateHeuristic(context.Background(),
		types.PurchaseQuery{ItemName: "lamp", Price: 40}, heuristicProfile())
	require.NoError(t, err, "retrieval failure must not fail the stage")

	assert.True(t, got.Degraded)
	assert.Equal(t, types.LabelNeutral, got.Label)
	assert.Contains(t, client.gotUser, "none retrieved")
}

func TestEvaluateHeuristicDegradedOnEmptyContext(t *testing.T) {
	client := &fakeClient{reply: `{"label": "neutral", "triggers": [], "rationale": "nothing on file"}`}
	retriever := &fakeRetriever{result: types.RetrievedContext{}}
	eval := NewHeuristicEvaluator(client, retriever)

	got, err := eval.EvaluateHeuristic(context.Background(),
		types.PurchaseQuery{ItemName: "lamp", Price: 40}, heuristicProfile())
	require.NoError(t, err)
	assert.True(t, got.Degraded)
	assert.NotEmpty(t, got.Label, "degraded run must still carry an assessment")
}

func TestEvaluateHeuristicNilRetriever(t *testing.T) {
	client := &fakeClient{reply: `{"label": "neutral", "triggers": [], "rationale": "ok"}`}
	eval := NewHeuristicEvaluator(client, nil)

	got, err := eval.EvaluateHeuristic(context.Background(),
		types.PurchaseQuery{ItemName: "lamp", Price: 40}, heuristicProfile())
	require.NoError(t, err)
	assert.True(t, got.Degraded)
}

func TestEvaluateHeuristicNormalizes(t *testing.T) {
	client := &fakeClient{reply: `{"label": " IMPULSIVE ", "triggers": [" Scarcity ", ""], "rationale": "  spaced  "}`}
	eval := NewHeuristicEvaluator(client, &fakeRetriever{})

	got, err := eval.EvaluateHeuristic(context.Background(),
		types.PurchaseQuery{ItemName: "lamp", Price: 40}, heuristicProfile())
	require.NoError(t, err)

	assert.Equal(t, types.LabelImpulsive, got.Label)
	assert.Equal(t, []string{"scarcity"}, got.Triggers)
	assert.Equal(t, "spaced", got.Rationale)
}

func TestEvaluateHeuristicFencedReply(t *testing.T) {
	client := &fakeClient{reply: "```json\n{\"label\": \"values-aligned\", \"triggers\": [], \"rationale\": \"matches declared values\"}\n```"}
	eval := NewHeuristicEvaluator(client, &fakeRetriever{})

	got, err := eval.EvaluateHeuristic(context.Background(),
		types.PurchaseQuery{ItemName: "course", Price: 90}, heuristicProfile())
	require.NoError(t, err)
	assert.Equal(t, types.LabelValuesAligned, got.Label)
}

func TestEvaluateHeuristicCallFailure(t *testing.T) {
	client := &fakeClient{err: &reasoner.Error{Provider: "anthropic", Op: "call", Err: errors.New("boom")}}
	eval := NewHeuristicEvaluator(client, &fakeRetriever{})

	_, err := eval.EvaluateHeuristic(context.Background(),
		types.PurchaseQuery{ItemName: "lamp", Price: 40}, heuristicProfile())
	require.Error(t, err)
	assert.True(t, reasoner.IsReasonerError(err))
}

func TestEvaluateHeuristicUnparseableReply(t *testing.T) {
	client := &fakeClient{reply: "I would simply not buy it."}
	eval := NewHeuristicEvaluator(client, &fakeRetriever{})

	_, err := eval.EvaluateHeuristic(context.Background(),
		types.PurchaseQuery{ItemName: "lamp", Price: 40}, heuristicProfile())
	require.Error(t, err)

	var rerr *reasoner.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "parse", rerr.Op)
}

func TestEvaluateHeuristicMissingLabel(t *testing.T) {
	client := &fakeClient{reply: `{"triggers": [], "rationale": "no label field"}`}
	eval := NewHeuristicEvaluator(client, &fakeRetriever{})

	_, err := eval.EvaluateHeuristic(context.Background(),
		types.PurchaseQuery{ItemName: "lamp", Price: 40}, heuristicProfile())
	require.Error(t, err)
	assert.True(t, reasoner.IsReasonerError(err))
}
