// Package profile compiles questionnaire submissions into psychographic
// profiles. Compilation is pure: the same submission always yields the
// same profile, so the pipeline can replay it without drift. It runs once
// per user or on explicit re-submission, never on every purchase query.
package profile

import (
	"fmt"
	"strings"
	"time"

	"github.com/bobaba99/truepick/internal/types"
)

// agreementThreshold is the Likert score at or above which a bias probe
// marks its susceptibility tag. Scores run 1-5.
const agreementThreshold = 4

// Compile validates the submission and builds the profile, stamping the
// current time. Malformed input yields a ValidationError and no profile.
func Compile(sub types.QuizSubmission) (types.PsychographicProfile, error) {
	return CompileAt(sub, time.Now().UTC())
}

// CompileAt is the deterministic core of Compile: every field of the
// result is a function of (sub, at). Validation happens before any field
// is assembled, so a rejected submission never leaks a partial profile.
func CompileAt(sub types.QuizSubmission, at time.Time) (types.PsychographicProfile, error) {
	risk, err := parseRiskAnswer(sub.RiskAnswer)
	if err != nil {
		return types.PsychographicProfile{}, err
	}
	if sub.MonthlyBudget < 0 {
		return types.PsychographicProfile{}, &types.ValidationError{
			Field:  "monthly_budget",
			Reason: fmt.Sprintf("must be non-negative, got %v", sub.MonthlyBudget),
		}
	}
	if !types.ValidIncomeBand(sub.IncomeBand) {
		return types.PsychographicProfile{}, &types.ValidationError{
			Field:  "income_band",
			Reason: fmt.Sprintf("unknown band %q", sub.IncomeBand),
		}
	}

	catalog := types.AllSusceptibilities()
	if len(sub.Agreement) != len(catalog) {
		return types.PsychographicProfile{}, &types.ValidationError{
			Field:  "agreement",
			Reason: fmt.Sprintf("expected %d scores, got %d", len(catalog), len(sub.Agreement)),
		}
	}
	for i, score := range sub.Agreement {
		if score < 1 || score > 5 {
			return types.PsychographicProfile{}, &types.ValidationError{
				Field:  "agreement",
				Reason: fmt.Sprintf("score %d at position %d is outside 1-5", score, i),
			}
		}
	}

	// Tags keep catalog order so identical submissions compare equal.
	var tags []types.Susceptibility
	for i, score := range sub.Agreement {
		if score >= agreementThreshold {
			tags = append(tags, catalog[i])
		}
	}

	return types.PsychographicProfile{
		RiskTolerance:    risk,
		MonthlyBudget:    sub.MonthlyBudget,
		IncomeBand:       sub.IncomeBand,
		Susceptibilities: tags,
		Values:           strings.TrimSpace(sub.Values),
		CompiledAt:       at,
	}, nil
}

func parseRiskAnswer(answer string) (types.RiskTolerance, error) {
	normalized := types.RiskTolerance(strings.ToLower(strings.TrimSpace(answer)))
	if normalized == "" {
		return "", &types.ValidationError{Field: "risk_answer", Reason: "must not be empty"}
	}
	if !types.ValidRiskTolerance(normalized) {
		return "", &types.ValidationError{
			Field:  "risk_answer",
			Reason: fmt.Sprintf("unknown tolerance %q", answer),
		}
	}
	return normalized, nil
}
