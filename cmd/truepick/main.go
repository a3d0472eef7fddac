package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bobaba99/truepick/internal/config"
	"github.com/bobaba99/truepick/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Loaded once in PersistentPreRunE; every command reads it.
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "truepick",
	Short: "TruePick - dual-process purchase decision advisor",
	Long: `TruePick weighs a purchase the way a psychologist and an accountant
would, at the same time.

The fast pass pattern-matches the item against known manipulation
tactics (scarcity countdowns, social proof, anchoring) personalized by
your psychographic profile. The slow pass checks the price against your
monthly budget. A fixed arbitration table turns the two readings into a
verdict the language model cannot talk its way around.

Start by building your profile, then consult before you buy:

  truepick quiz
  truepick ingest ./knowledge
  truepick consult --user alice --item "espresso machine" --price 650`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; real environment variables win either way.
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		if err := logging.Initialize(level, cfg.Logging.File); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "truepick.yaml", "Path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	// Add commands to root
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(consultCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(profileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
