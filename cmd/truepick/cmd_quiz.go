package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bobaba99/truepick/cmd/truepick/quiz"
	"github.com/bobaba99/truepick/internal/profile"
	"github.com/bobaba99/truepick/internal/types"
)

var (
	quizUser string
	quizFile string
)

// quizCmd builds or refreshes a psychographic profile
var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Build or refresh your psychographic profile",
	Long: `Runs the intake questionnaire and stores the compiled profile: monthly
budget, income band, risk tolerance, five bias probes, and the values
statement that anchors the pipeline's read of you.

Interactive by default. Pass --file to compile a prepared answers JSON
instead (same shape as the POST /quiz payload). Retaking the quiz
versions the profile; the pipeline always reads the newest one.`,
	RunE: runQuiz,
}

// profileCmd shows the stored profile
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the stored profile for a user",
	RunE:  runProfileShow,
}

func init() {
	quizCmd.Flags().StringVar(&quizUser, "user", "", "User ID to store the profile under (default: minted ID)")
	quizCmd.Flags().StringVar(&quizFile, "file", "", "Path to a quiz answers JSON file")

	profileCmd.Flags().StringVar(&quizUser, "user", "", "User ID to look up (required)")
	profileCmd.MarkFlagRequired("user")
}

func runQuiz(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var submission types.QuizSubmission
	if quizFile != "" {
		data, err := os.ReadFile(quizFile)
		if err != nil {
			return fmt.Errorf("failed to read answers file: %w", err)
		}
		if err := json.Unmarshal(data, &submission); err != nil {
			return fmt.Errorf("failed to parse answers file: %w", err)
		}
	} else {
		answers, err := quiz.Run()
		if err != nil {
			return err
		}
		if answers == nil {
			fmt.Println("Quiz aborted, nothing saved.")
			return nil
		}
		submission = *answers
	}

	userID := quizUser
	if userID == "" {
		userID = submission.UserID
	}
	if userID == "" {
		userID = uuid.NewString()
	}

	compiled, err := profile.Compile(submission)
	if err != nil {
		return err
	}

	embedder, err := bootEmbedding(cfg)
	if err != nil {
		return fmt.Errorf("failed to boot embedding engine: %w", err)
	}
	sqlite, _, profiles, err := bootStores(cfg, embedder.Dimensions())
	if err != nil {
		return err
	}
	defer sqlite.Close()

	if err := profiles.SaveProfile(ctx, userID, compiled); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	fmt.Printf("Profile saved for %s\n", userID)
	printProfile(&compiled)
	fmt.Printf("\nNext: truepick consult --user %s --item <name> --price <amount>\n", userID)
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	embedder, err := bootEmbedding(cfg)
	if err != nil {
		return fmt.Errorf("failed to boot embedding engine: %w", err)
	}
	sqlite, _, profiles, err := bootStores(cfg, embedder.Dimensions())
	if err != nil {
		return err
	}
	defer sqlite.Close()

	current, err := profiles.LoadCurrentProfile(ctx, quizUser)
	if err != nil {
		return err
	}
	if current == nil {
		fmt.Printf("No profile on record for %s. Run: truepick quiz --user %s\n", quizUser, quizUser)
		return nil
	}

	versions, err := profiles.ProfileVersionCount(ctx, quizUser)
	if err != nil {
		return err
	}

	fmt.Printf("Profile for %s (version %d of %d)\n", quizUser, versions, versions)
	printProfile(current)
	return nil
}

func printProfile(p *types.PsychographicProfile) {
	fmt.Printf("  Monthly budget:   %.2f\n", p.MonthlyBudget)
	fmt.Printf("  Income band:      %s\n", p.IncomeBand)
	fmt.Printf("  Risk tolerance:   %s\n", p.RiskTolerance)
	fmt.Printf("  Susceptibilities: %s\n", p.SusceptibilityList())
	if p.Values != "" {
		fmt.Printf("  Values:           %s\n", p.Values)
	}
	fmt.Printf("  Compiled:         %s\n", p.CompiledAt.Format("2006-01-02 15:04"))
}
