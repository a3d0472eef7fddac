package prompt

import (
	"fmt"
	"strings"

	"github.com/bobaba99/truepick/internal/types"
)

// RetrievalQuery synthesizes the knowledge-base query for a purchase:
// the item name plus the profile's susceptibility tags, so retrieval
// surfaces literature about the levers this user is actually sensitive to.
func RetrievalQuery(itemName string, susceptibilities []types.Susceptibility) string {
	var sb strings.Builder
	sb.WriteString("consumer psychology of buying ")
	sb.WriteString(itemName)
	if len(susceptibilities) > 0 {
		sb.WriteString("; manipulation tactics:")
		for _, s := range susceptibilities {
			sb.WriteString(" ")
			sb.WriteString(strings.ReplaceAll(string(s), "_", " "))
		}
	}
	return sb.String()
}

// Psychologist assembles the heuristic stage's user prompt from the
// profile, the purchase, and the retrieved context. An empty context is
// stated explicitly so the model degrades to profile-only reasoning
// instead of hallucinating sources.
func Psychologist(profile types.PsychographicProfile, purchase types.PurchaseQuery, contextText string) string {
	var sb strings.Builder

	sb.WriteString("## User profile\n")
	writeProfile(&sb, profile)

	sb.WriteString("\n## Planned purchase\n")
	writePurchase(&sb, purchase)

	sb.WriteString("\n## Background knowledge\n")
	if strings.TrimSpace(contextText) == "" {
		sb.WriteString("(none retrieved - reason from the profile alone)\n")
	} else {
		sb.WriteString(contextText)
		sb.WriteString("\n")
	}

	sb.WriteString("\nAssess the psychological risk of this purchase for this user.")
	return sb.String()
}

// Decision assembles the analytic stage's user prompt. No retrieved
// context and no susceptibility tags: the financial read must stay free of
// psychological framing.
func Decision(profile types.PsychographicProfile, purchase types.PurchaseQuery, affordable bool) string {
	var sb strings.Builder

	sb.WriteString("## Financial constraints\n")
	fmt.Fprintf(&sb, "- Monthly discretionary budget: %.2f\n", profile.MonthlyBudget)
	fmt.Fprintf(&sb, "- Income band: %s\n", profile.IncomeBand)
	fmt.Fprintf(&sb, "- Risk tolerance: %s\n", profile.RiskTolerance)

	sb.WriteString("\n## Planned purchase\n")
	writePurchase(&sb, purchase)

	verdict := "AFFORDABLE (price is within the monthly budget)"
	if !affordable {
		verdict = "NOT AFFORDABLE (price exceeds the monthly budget)"
	}
	fmt.Fprintf(&sb, "\n## Computed affordability verdict\n%s\n", verdict)

	sb.WriteString("\nExplain the financial picture behind this verdict.")
	return sb.String()
}

// Synthesis assembles the arbiter's user prompt: both structured
// assessments plus the table-determined verdict label.
func Synthesis(heuristic types.HeuristicAssessment, analytic types.AnalyticAssessment, label types.VerdictLabel) string {
	var sb strings.Builder

	sb.WriteString("## Psychologist assessment\n")
	fmt.Fprintf(&sb, "- Label: %s\n", heuristic.Label)
	if len(heuristic.Triggers) > 0 {
		fmt.Fprintf(&sb, "- Detected triggers: %s\n", strings.Join(heuristic.Triggers, ", "))
	} else {
		sb.WriteString("- Detected triggers: none\n")
	}
	fmt.Fprintf(&sb, "- Rationale: %s\n", heuristic.Rationale)
	if heuristic.Degraded {
		sb.WriteString("- Note: produced without knowledge-base support\n")
	}

	sb.WriteString("\n## Financial assessment\n")
	fmt.Fprintf(&sb, "- Affordable: %t\n", analytic.Affordable)
	fmt.Fprintf(&sb, "- Rationale: %s\n", analytic.Rationale)

	fmt.Fprintf(&sb, "\n## Final verdict (already decided, do not change)\n%s\n", label)

	sb.WriteString("\nWrite the rationale for this verdict, referencing both assessments.")
	return sb.String()
}

func writeProfile(sb *strings.Builder, profile types.PsychographicProfile) {
	fmt.Fprintf(sb, "- Risk tolerance: %s\n", profile.RiskTolerance)
	fmt.Fprintf(sb, "- Monthly discretionary budget: %.2f\n", profile.MonthlyBudget)
	fmt.Fprintf(sb, "- Income band: %s\n", profile.IncomeBand)
	fmt.Fprintf(sb, "- Known susceptibilities: %s\n", profile.SusceptibilityList())
	if strings.TrimSpace(profile.Values) != "" {
		fmt.Fprintf(sb, "- Self-declared values: %s\n", profile.Values)
	}
}

func writePurchase(sb *strings.Builder, purchase types.PurchaseQuery) {
	fmt.Fprintf(sb, "- Item: %s\n", purchase.ItemName)
	fmt.Fprintf(sb, "- Price: %.2f\n", purchase.Price)
	if strings.TrimSpace(purchase.Justification) != "" {
		fmt.Fprintf(sb, "- User's stated reason: %s\n", purchase.Justification)
	}
}
