package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/pkg/geocode"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocoding utilities",
}

var geocodeBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Geocode stored buyers and properties missing coordinates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		resolver := initResolver()
		log := zap.L().With(zap.String("command", "geocode.backfill"))

		buyers, err := st.ListBuyers(ctx)
		if err != nil {
			return err
		}
		properties, err := st.ListProperties(ctx)
		if err != nil {
			return err
		}

		var resolved, missed, failed int

		for _, b := range buyers {
			if b.Coordinates != nil || b.SearchLocation() == "" {
				continue
			}
			switch coords := backfillOne(ctx, resolver, b.SearchLocation()); {
			case coords == nil:
				missed++
			default:
				if err := st.UpdateBuyerCoordinates(ctx, b.ContactID, *coords); err != nil {
					log.Warn("persist failed", zap.String("buyer", b.ContactID), zap.Error(err))
					failed++
					continue
				}
				resolved++
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		for _, p := range properties {
			if p.Coordinates != nil || p.SearchLocation() == "" {
				continue
			}
			switch coords := backfillOne(ctx, resolver, p.SearchLocation()); {
			case coords == nil:
				missed++
			default:
				if err := st.UpdatePropertyCoordinates(ctx, p.Code, *coords); err != nil {
					log.Warn("persist failed", zap.String("property", p.Code), zap.Error(err))
					failed++
					continue
				}
				resolved++
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		log.Info("backfill complete",
			zap.Int("resolved", resolved),
			zap.Int("missed", missed),
			zap.Int("failed", failed),
		)
		return nil
	},
}

// backfillOne resolves a single location; lookup failures count as misses.
func backfillOne(ctx context.Context, resolver *geocode.Resolver, location string) *model.Coordinates {
	coords, err := resolver.Resolve(ctx, location)
	if err != nil {
		zap.L().Warn("geocode failed", zap.String("location", location), zap.Error(err))
		return nil
	}
	return coords
}

func init() {
	geocodeCmd.AddCommand(geocodeBackfillCmd)
	rootCmd.AddCommand(geocodeCmd)
}
