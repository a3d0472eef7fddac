package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/bobaba99/truepick/internal/types"
	"github.com/bobaba99/truepick/internal/workflow"
)

var (
	consultUser  string
	consultItem  string
	consultPrice float64
	consultWhy   string
	consultJSON  bool
)

// consultCmd runs one purchase through the decision pipeline
var consultCmd = &cobra.Command{
	Use:   "consult",
	Short: "Run a purchase decision through the pipeline",
	Long: `Evaluates one purchase against your stored profile: the psychological
read and the affordability read run in parallel, then the arbitration
table fixes the verdict.

Example:
  truepick consult --user alice --item "espresso machine" --price 650 \
    --why "the old one still works, but this one is on sale"`,
	RunE: runConsult,
}

func init() {
	consultCmd.Flags().StringVar(&consultUser, "user", "", "User ID with a stored profile (required)")
	consultCmd.Flags().StringVar(&consultItem, "item", "", "Item under consideration (required)")
	consultCmd.Flags().Float64Var(&consultPrice, "price", 0, "Item price (required)")
	consultCmd.Flags().StringVar(&consultWhy, "why", "", "Your own justification for the purchase")
	consultCmd.Flags().BoolVar(&consultJSON, "json", false, "Print the raw report as JSON")
	consultCmd.MarkFlagRequired("user")
	consultCmd.MarkFlagRequired("item")
	consultCmd.MarkFlagRequired("price")
}

func runConsult(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	comps, err := bootPipeline(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to boot pipeline: %w", err)
	}
	defer comps.Close()

	state, err := comps.engine.Run(ctx, workflow.Input{
		UserID: consultUser,
		Purchase: types.PurchaseQuery{
			ItemName:      consultItem,
			Price:         consultPrice,
			Justification: consultWhy,
		},
	})
	if err != nil {
		return err
	}

	report := state.Report()
	if consultJSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	renderMarkdown(formatReport(report))
	return nil
}

// verdictTitle maps a verdict label to its human heading.
func verdictTitle(v types.VerdictLabel) string {
	switch v {
	case types.VerdictApprove:
		return "Approve"
	case types.VerdictApproveWithCaveats:
		return "Approve, with caveats"
	case types.VerdictWarn:
		return "Hold on"
	case types.VerdictExploreCompromise:
		return "Explore a compromise"
	case types.VerdictReject:
		return "Walk away"
	}
	return string(v)
}

// formatReport renders the analysis as Markdown for terminal display.
func formatReport(r types.AnalysisReport) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", verdictTitle(r.Verdict))
	fmt.Fprintf(&sb, "**%s** at %.2f\n\n", r.Item, r.Price)
	fmt.Fprintf(&sb, "%s\n\n", r.Rationale)

	fmt.Fprintf(&sb, "## Fast read\n\n")
	fmt.Fprintf(&sb, "- Label: `%s`\n", r.Heuristic.Label)
	if len(r.Heuristic.Triggers) > 0 {
		fmt.Fprintf(&sb, "- Triggers: %s\n", strings.Join(r.Heuristic.Triggers, ", "))
	} else {
		fmt.Fprintf(&sb, "- Triggers: none detected\n")
	}
	fmt.Fprintf(&sb, "\n%s\n\n", r.Heuristic.Rationale)

	fmt.Fprintf(&sb, "## Slow read\n\n")
	if r.Analytic.Affordable {
		fmt.Fprintf(&sb, "- Within budget: yes\n")
	} else {
		fmt.Fprintf(&sb, "- Within budget: no\n")
	}
	fmt.Fprintf(&sb, "\n%s\n", r.Analytic.Rationale)

	if r.DegradedContext {
		fmt.Fprintf(&sb, "\n*Knowledge base was unavailable; the fast read used profile signals only.*\n")
	}

	fmt.Fprintf(&sb, "\n---\nrun %s\n", r.RunID)
	return sb.String()
}

// renderMarkdown pretty-prints Markdown to the terminal, falling back to
// the raw text when the renderer cannot be built.
func renderMarkdown(md string) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		fmt.Println(md)
		return
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Println(md)
		return
	}
	fmt.Print(out)
}
