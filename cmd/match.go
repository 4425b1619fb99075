package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/matcher"
	"github.com/sells-group/dealflow-cli/internal/scoring"
)

var (
	matchBuyerID    string
	matchPropertyID string
	matchMinScore   int
	matchRefreshAll bool
	matchNoGeocode  bool
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score buyers against properties and persist matches",
	Long:  "Pairs every in-scope buyer with every in-scope property, scores each pair, and upserts matches that clear the threshold. Scope with --buyer and/or --property.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		engine := scoring.NewEngine(cfg.Scoring)

		var resolver matcher.CoordinateResolver
		if !matchNoGeocode {
			resolver = initResolver()
		}

		runner := matcher.NewRunner(st, engine, resolver, cfg.Match)
		result, err := runner.Run(ctx, matcher.Request{
			BuyerID:    matchBuyerID,
			PropertyID: matchPropertyID,
			MinScore:   matchMinScore,
			RefreshAll: matchRefreshAll,
		})
		if err != nil {
			return err
		}

		zap.L().Info("match run finished",
			zap.Int("created", result.Created),
			zap.Int("updated", result.Updated),
			zap.Int("duplicates_skipped", result.DuplicatesSkipped),
			zap.Int("below_threshold", result.BelowThreshold),
			zap.Int("priority", result.PriorityCount),
			zap.Int("failed", result.Failed),
		)
		return nil
	},
}

func init() {
	matchCmd.Flags().StringVar(&matchBuyerID, "buyer", "", "restrict to one buyer contact ID")
	matchCmd.Flags().StringVar(&matchPropertyID, "property", "", "restrict to one property code")
	matchCmd.Flags().IntVar(&matchMinScore, "min-score", 0, "creation threshold (default from config)")
	matchCmd.Flags().BoolVar(&matchRefreshAll, "refresh-all", false, "re-score pairs that already have a match")
	matchCmd.Flags().BoolVar(&matchNoGeocode, "no-geocode", false, "skip geocoding records without coordinates")
	rootCmd.AddCommand(matchCmd)
}
