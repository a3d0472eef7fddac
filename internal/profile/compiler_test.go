package profile

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bobaba99/truepick/internal/types"
)

func validSubmission() types.QuizSubmission {
	return types.QuizSubmission{
		UserID:        "u-1",
		MonthlyBudget: 450,
		IncomeBand:    types.Income50to100k,
		RiskAnswer:    "medium",
		Agreement:     []int{5, 2, 4, 1, 3},
		Values:        "  travel, learning  ",
	}
}

func TestCompileAtDeterministic(t *testing.T) {
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	first, err := CompileAt(validSubmission(), at)
	if err != nil {
		t.Fatalf("CompileAt() error = %v", err)
	}
	second, err := CompileAt(validSubmission(), at)
	if err != nil {
		t.Fatalf("CompileAt() second error = %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("identical submissions compiled differently (-first +second):\n%s", diff)
	}
}

func TestCompileAtFields(t *testing.T) {
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	got, err := CompileAt(validSubmission(), at)
	if err != nil {
		t.Fatalf("CompileAt() error = %v", err)
	}

	if got.RiskTolerance != types.RiskMedium {
		t.Errorf("RiskTolerance = %q, want %q", got.RiskTolerance, types.RiskMedium)
	}
	if got.MonthlyBudget != 450 {
		t.Errorf("MonthlyBudget = %v, want 450", got.MonthlyBudget)
	}
	if got.Values != "travel, learning" {
		t.Errorf("Values = %q, want trimmed text", got.Values)
	}
	if !got.CompiledAt.Equal(at) {
		t.Errorf("CompiledAt = %v, want %v", got.CompiledAt, at)
	}

	// Scores of 5 and 4 sit at positions 0 and 2: scarcity and anchoring.
	want := []types.Susceptibility{types.SusceptScarcity, types.SusceptAnchoring}
	if diff := cmp.Diff(want, got.Susceptibilities); diff != "" {
		t.Errorf("Susceptibilities mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileAtThresholdBoundary(t *testing.T) {
	sub := validSubmission()
	sub.Agreement = []int{3, 3, 3, 3, 3}

	got, err := CompileAt(sub, time.Now())
	if err != nil {
		t.Fatalf("CompileAt() error = %v", err)
	}
	if len(got.Susceptibilities) != 0 {
		t.Errorf("scores of 3 should set no tags, got %v", got.Susceptibilities)
	}

	sub.Agreement = []int{4, 4, 4, 4, 4}
	got, err = CompileAt(sub, time.Now())
	if err != nil {
		t.Fatalf("CompileAt() error = %v", err)
	}
	if len(got.Susceptibilities) != 5 {
		t.Errorf("scores of 4 should set every tag, got %v", got.Susceptibilities)
	}
}

func TestCompileAtNormalizesRiskAnswer(t *testing.T) {
	sub := validSubmission()
	sub.RiskAnswer = "  HIGH "

	got, err := CompileAt(sub, time.Now())
	if err != nil {
		t.Fatalf("CompileAt() error = %v", err)
	}
	if got.RiskTolerance != types.RiskHigh {
		t.Errorf("RiskTolerance = %q, want %q", got.RiskTolerance, types.RiskHigh)
	}
}

func TestCompileAtRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.QuizSubmission)
	}{
		{"empty risk answer", func(s *types.QuizSubmission) { s.RiskAnswer = "  " }},
		{"unknown risk answer", func(s *types.QuizSubmission) { s.RiskAnswer = "yolo" }},
		{"negative budget", func(s *types.QuizSubmission) { s.MonthlyBudget = -1 }},
		{"unknown income band", func(s *types.QuizSubmission) { s.IncomeBand = "1m_plus" }},
		{"too few scores", func(s *types.QuizSubmission) { s.Agreement = []int{4, 4} }},
		{"too many scores", func(s *types.QuizSubmission) { s.Agreement = []int{4, 4, 4, 4, 4, 4} }},
		{"score below scale", func(s *types.QuizSubmission) { s.Agreement[2] = 0 }},
		{"score above scale", func(s *types.QuizSubmission) { s.Agreement[4] = 6 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			tt.mutate(&sub)

			got, err := CompileAt(sub, time.Now())
			if err == nil {
				t.Fatal("CompileAt() expected error, got nil")
			}
			if !types.IsValidation(err) {
				t.Errorf("error = %v, want ValidationError", err)
			}
			if diff := cmp.Diff(types.PsychographicProfile{}, got); diff != "" {
				t.Errorf("rejected submission leaked a partial profile:\n%s", diff)
			}
		})
	}
}

func TestCompileStampsTime(t *testing.T) {
	before := time.Now().UTC()
	got, err := Compile(validSubmission())
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	after := time.Now().UTC()

	if got.CompiledAt.Before(before) || got.CompiledAt.After(after) {
		t.Errorf("CompiledAt = %v, want within [%v, %v]", got.CompiledAt, before, after)
	}
}
