// Package types provides the shared data model for the TruePick pipeline.
// It exists so that stores, evaluators, the workflow engine, and the HTTP
// layer can exchange records without import cycles. Types here are plain
// data structures with no behavior beyond validation and labeling.
package types

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// PROFILE
// =============================================================================

// RiskTolerance classifies how much financial risk a user reports being
// comfortable with.
type RiskTolerance string

const (
	RiskLow    RiskTolerance = "low"
	RiskMedium RiskTolerance = "medium"
	RiskHigh   RiskTolerance = "high"
)

// ValidRiskTolerance reports whether r is one of the declared levels.
func ValidRiskTolerance(r RiskTolerance) bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// IncomeBand is the self-declared income bracket from the questionnaire.
type IncomeBand string

const (
	IncomeUnder25k IncomeBand = "under_25k"
	Income25to50k  IncomeBand = "25k_50k"
	Income50to100k IncomeBand = "50k_100k"
	IncomeOver100k IncomeBand = "over_100k"
)

// ValidIncomeBand reports whether b is one of the declared brackets.
func ValidIncomeBand(b IncomeBand) bool {
	switch b {
	case IncomeUnder25k, Income25to50k, Income50to100k, IncomeOver100k:
		return true
	}
	return false
}

// Susceptibility names a psychological lever the user scored high on.
// The tags mirror the bias catalog used by the heuristic evaluator's
// knowledge base.
type Susceptibility string

const (
	SusceptScarcity     Susceptibility = "scarcity"
	SusceptSocialProof  Susceptibility = "social_proof"
	SusceptAnchoring    Susceptibility = "anchoring"
	SusceptLossAversion Susceptibility = "loss_aversion"
	SusceptDiderot      Susceptibility = "diderot"
)

// AllSusceptibilities lists every tag in scale order, matching the
// questionnaire's agreement questions.
func AllSusceptibilities() []Susceptibility {
	return []Susceptibility{
		SusceptScarcity,
		SusceptSocialProof,
		SusceptAnchoring,
		SusceptLossAversion,
		SusceptDiderot,
	}
}

// PsychographicProfile is the compiled behavioral phenotype for one user.
// It is immutable once compiled; recompiling replaces the stored record
// rather than appending a second current profile.
type PsychographicProfile struct {
	RiskTolerance    RiskTolerance    `json:"risk_tolerance"`
	MonthlyBudget    float64          `json:"monthly_budget"`
	IncomeBand       IncomeBand       `json:"income_band"`
	Susceptibilities []Susceptibility `json:"susceptibilities"`
	Values           string           `json:"values"`
	CompiledAt       time.Time        `json:"compiled_at"`
}

// HasSusceptibility reports whether the profile carries the given tag.
func (p *PsychographicProfile) HasSusceptibility(tag Susceptibility) bool {
	for _, s := range p.Susceptibilities {
		if s == tag {
			return true
		}
	}
	return false
}

// SusceptibilityList renders the tags as a comma-separated string for
// prompt assembly and logging.
func (p *PsychographicProfile) SusceptibilityList() string {
	if len(p.Susceptibilities) == 0 {
		return "none"
	}
	parts := make([]string, len(p.Susceptibilities))
	for i, s := range p.Susceptibilities {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// QuizSubmission is the fixed-shape questionnaire answer set. Agreement
// scores use a 1-5 Likert scale; index order follows AllSusceptibilities.
type QuizSubmission struct {
	UserID        string     `json:"user_id,omitempty"`
	MonthlyBudget float64    `json:"monthly_budget"`
	IncomeBand    IncomeBand `json:"income_band"`
	RiskAnswer    string     `json:"risk_answer"`
	// Agreement holds the five bias-probe scores in catalog order:
	// scarcity, social proof, anchoring, loss aversion, Diderot.
	Agreement []int  `json:"agreement"`
	Values    string `json:"values"`
}

// =============================================================================
// PURCHASE RUN
// =============================================================================

// PurchaseQuery describes the purchase under evaluation. It lives for one
// pipeline run only and is never persisted.
type PurchaseQuery struct {
	ItemName      string  `json:"item_name"`
	Price         float64 `json:"price"`
	Justification string  `json:"justification,omitempty"`
}

// Validate rejects queries that would poison the pipeline before any
// stage runs.
func (q PurchaseQuery) Validate() error {
	if strings.TrimSpace(q.ItemName) == "" {
		return &ValidationError{Field: "item_name", Reason: "must not be empty"}
	}
	if q.Price < 0 {
		return &ValidationError{Field: "price", Reason: fmt.Sprintf("must be non-negative, got %v", q.Price)}
	}
	return nil
}

// ScoredChunk is one retrieved knowledge span with its relevance score.
type ScoredChunk struct {
	Text       string  `json:"text"`
	Source     string  `json:"source,omitempty"`
	Similarity float64 `json:"similarity"`
}

// RetrievedContext is the ranked knowledge handed to the heuristic
// evaluator. Chunks are ordered by descending similarity and Text is the
// pre-joined context string. An empty context is a valid, non-error state.
type RetrievedContext struct {
	Chunks []ScoredChunk `json:"chunks"`
	Text   string        `json:"text"`
}

// Empty reports whether retrieval produced no usable context.
func (r RetrievedContext) Empty() bool {
	return len(r.Chunks) == 0
}

// =============================================================================
// ASSESSMENTS
// =============================================================================

// HeuristicLabel is the System 1 read of the purchase.
type HeuristicLabel string

const (
	LabelImpulsive     HeuristicLabel = "impulsive"
	LabelValuesAligned HeuristicLabel = "values-aligned"
	LabelNeutral       HeuristicLabel = "neutral"
)

// HeuristicAssessment is the psychological evaluation: a label, the named
// manipulation triggers detected, and free-text rationale. Degraded marks
// assessments produced without retrieval support.
type HeuristicAssessment struct {
	Label     HeuristicLabel `json:"label"`
	Triggers  []string       `json:"triggers"`
	Rationale string         `json:"rationale"`
	Degraded  bool           `json:"degraded,omitempty"`
}

// FlaggedImpulsive reports whether the assessment should be treated as an
// impulse warning. Any detected trigger counts, and unknown labels resolve
// conservatively as impulsive.
func (h HeuristicAssessment) FlaggedImpulsive() bool {
	if len(h.Triggers) > 0 {
		return true
	}
	switch h.Label {
	case LabelValuesAligned, LabelNeutral:
		return false
	}
	return true
}

// AnalyticAssessment is the System 2 read: a hard affordability boolean
// plus the financial rationale.
type AnalyticAssessment struct {
	Affordable bool   `json:"affordable"`
	Rationale  string `json:"rationale"`
}

// =============================================================================
// VERDICT
// =============================================================================

// VerdictLabel is the final arbitrated recommendation.
type VerdictLabel string

const (
	VerdictApprove            VerdictLabel = "approve"
	VerdictApproveWithCaveats VerdictLabel = "approve_with_caveats"
	VerdictWarn               VerdictLabel = "warn"
	VerdictExploreCompromise  VerdictLabel = "explore_compromise"
	VerdictReject             VerdictLabel = "reject"
)

// Category folds the verdict into the four reportable outcomes.
// explore_compromise is a softened approve_with_caveats: the purchase is
// not affordable as-is but aligns with declared values, so the advisor
// proposes a compromise instead of refusing outright.
func (v VerdictLabel) Category() VerdictLabel {
	if v == VerdictExploreCompromise {
		return VerdictApproveWithCaveats
	}
	return v
}

// SynthesisVerdict is the pipeline's final output. Label is fixed by the
// resolution table before any prose is generated; Rationale must reference
// both upstream assessments.
type SynthesisVerdict struct {
	Label     VerdictLabel `json:"label"`
	Rationale string       `json:"rationale"`
}

// AnalysisReport is the transport-facing summary of one completed run.
type AnalysisReport struct {
	RunID           string              `json:"run_id"`
	UserID          string              `json:"user_id"`
	Item            string              `json:"item"`
	Price           float64             `json:"price"`
	Verdict         VerdictLabel        `json:"verdict"`
	Rationale       string              `json:"rationale"`
	Heuristic       HeuristicAssessment `json:"heuristic"`
	Analytic        AnalyticAssessment  `json:"analytic"`
	CompletedAt     time.Time           `json:"completed_at"`
	DegradedContext bool                `json:"degraded_context,omitempty"`
}
