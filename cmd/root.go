package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/config"
	"github.com/sells-group/dealflow-cli/internal/scoring"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dealflow-cli",
	Short: "Buyer/property matching and deal pipeline engine",
	Long:  "Scores buyers against property inventory, tracks matches through the deal pipeline, and mirrors stage changes into the CRM.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		if err := scoring.ValidateConfig(cfg.Scoring); err != nil {
			return fmt.Errorf("validate scoring config: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
