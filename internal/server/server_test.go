package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bobaba99/truepick/internal/config"
	"github.com/bobaba99/truepick/internal/store"
	"github.com/bobaba99/truepick/internal/types"
	"github.com/bobaba99/truepick/internal/workflow"
)

type stubRunner struct {
	state *workflow.PipelineState
	err   error
	got   workflow.Input
}

func (s *stubRunner) Run(ctx context.Context, input workflow.Input) (*workflow.PipelineState, error) {
	s.got = input
	if s.err != nil {
		return &workflow.PipelineState{StateName: workflow.StateFailed}, s.err
	}
	return s.state, nil
}

type stubSaver struct {
	saved map[string]types.PsychographicProfile
	err   error
}

func newStubSaver() *stubSaver {
	return &stubSaver{saved: make(map[string]types.PsychographicProfile)}
}

func (s *stubSaver) SaveProfile(ctx context.Context, userID string, p types.PsychographicProfile) error {
	if s.err != nil {
		return s.err
	}
	s.saved[userID] = p
	return nil
}

type brokenCountStore struct {
	store.VectorStore
}

func (brokenCountStore) Count(ctx context.Context) (int, error) {
	return 0, errors.New("store offline")
}

func newTestServer(t *testing.T, runner Runner, saver ProfileSaver, vs store.VectorStore) *Server {
	t.Helper()
	if vs == nil {
		ms, err := store.NewMemoryStore(4)
		if err != nil {
			t.Fatalf("NewMemoryStore: %v", err)
		}
		vs = ms
	}
	return New(config.DefaultConfig(), runner, saver, vs,
		ProviderNames{Reasoner: "anthropic", Embedding: "gemini"})
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func validQuizBody() types.QuizSubmission {
	return types.QuizSubmission{
		MonthlyBudget: 450,
		IncomeBand:    types.Income50to100k,
		RiskAnswer:    "low",
		Agreement:     []int{5, 5, 1, 1, 1},
		Values:        "quality over quantity",
	}
}

func TestQuizEndpointMintsUserID(t *testing.T) {
	saver := newStubSaver()
	srv := newTestServer(t, &stubRunner{}, saver, nil)

	w := doJSON(t, srv, http.MethodPost, "/quiz", validQuizBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var resp quizResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("undecodable response: %v", err)
	}
	if _, err := uuid.Parse(resp.UserID); err != nil {
		t.Errorf("minted user id %q is not a uuid: %v", resp.UserID, err)
	}
	if resp.Profile.MonthlyBudget != 450 {
		t.Errorf("profile budget = %v, want 450", resp.Profile.MonthlyBudget)
	}
	if _, ok := saver.saved[resp.UserID]; !ok {
		t.Error("compiled profile was not saved under the minted id")
	}
}

func TestQuizEndpointKeepsUserID(t *testing.T) {
	saver := newStubSaver()
	srv := newTestServer(t, &stubRunner{}, saver, nil)

	body := validQuizBody()
	body.UserID = "u-9"
	w := doJSON(t, srv, http.MethodPost, "/quiz", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var resp quizResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("undecodable response: %v", err)
	}
	if resp.UserID != "u-9" {
		t.Errorf("user id = %q, want the submitted u-9", resp.UserID)
	}
}

func TestQuizEndpointRejectsBadSubmission(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, newStubSaver(), nil)

	body := validQuizBody()
	body.Agreement = []int{5, 1}
	w := doJSON(t, srv, http.MethodPost, "/quiz", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "agreement") {
		t.Errorf("error body %q should name the offending field", w.Body.String())
	}
}

func TestQuizEndpointMalformedJSON(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, newStubSaver(), nil)

	req := httptest.NewRequest(http.MethodPost, "/quiz", strings.NewReader("{nope"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestQuizEndpointSaveFailure(t *testing.T) {
	saver := newStubSaver()
	saver.err = errors.New("disk full")
	srv := newTestServer(t, &stubRunner{}, saver, nil)

	w := doJSON(t, srv, http.MethodPost, "/quiz", validQuizBody())
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500: %s", w.Code, w.Body.String())
	}
}

func TestConsultEndpointReturnsReport(t *testing.T) {
	runner := &stubRunner{
		state: &workflow.PipelineState{
			RunID:     uuid.NewString(),
			StateName: workflow.StateDone,
			UserID:    "u-1",
			Purchase:  types.PurchaseQuery{ItemName: "espresso machine", Price: 320},
			Heuristic: types.HeuristicAssessment{Label: types.LabelNeutral},
			Analytic:  types.AnalyticAssessment{Affordable: true},
			Verdict:   &types.SynthesisVerdict{Label: types.VerdictApprove, Rationale: "within budget, no pressure"},
			StartedAt: time.Now().UTC(),
		},
	}
	srv := newTestServer(t, runner, newStubSaver(), nil)

	w := doJSON(t, srv, http.MethodPost, "/consult", consultRequest{
		UserID:        "u-1",
		ItemName:      "espresso machine",
		Price:         320,
		Justification: "replacing a broken one",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var report types.AnalysisReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("undecodable report: %v", err)
	}
	if report.Verdict != types.VerdictApprove {
		t.Errorf("verdict = %q, want approve", report.Verdict)
	}
	if runner.got.Purchase.Justification != "replacing a broken one" {
		t.Errorf("justification not forwarded: %+v", runner.got.Purchase)
	}
}

func TestConsultEndpointValidationFailure(t *testing.T) {
	runner := &stubRunner{
		err: &workflow.WorkflowError{
			Stage: workflow.StateStart,
			Err:   &types.ValidationError{Field: "user_id", Reason: "no profile on record"},
		},
	}
	srv := newTestServer(t, runner, newStubSaver(), nil)

	w := doJSON(t, srv, http.MethodPost, "/consult", consultRequest{UserID: "ghost", ItemName: "lamp", Price: 10})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestConsultEndpointUpstreamFailure(t *testing.T) {
	runner := &stubRunner{
		err: &workflow.WorkflowError{
			Stage: workflow.StateEvaluating,
			Err:   errors.New("provider exploded"),
		},
	}
	srv := newTestServer(t, runner, newStubSaver(), nil)

	w := doJSON(t, srv, http.MethodPost, "/consult", consultRequest{UserID: "u-1", ItemName: "lamp", Price: 10})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "provider exploded") {
		t.Errorf("response leaked stage internals: %s", w.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, newStubSaver(), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("undecodable health body: %v", err)
	}
	if body["reasoner"] != "anthropic" || body["embedding"] != "gemini" {
		t.Errorf("health body = %v, want provider names", body)
	}
}

func TestHealthEndpointStoreDown(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, newStubSaver(), brokenCountStore{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503: %s", w.Code, w.Body.String())
	}
}
