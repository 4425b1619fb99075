package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/deal"
	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/internal/store"
)

var (
	dealsBuyerID    string
	dealsPropertyID string
	dealsStage      string
	dealsMinScore   int
	dealsStaleOnly  bool
	dealsByBuyer    bool
	dealsByProperty bool
	dealsXLSXPath   string
)

var dealsCmd = &cobra.Command{
	Use:   "deals",
	Short: "Report on the deal pipeline",
	Long:  "Projects matches into a pipeline report: per-deal staleness, buyer and property rollups, and optional XLSX export.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter := store.MatchFilter{
			BuyerID:    dealsBuyerID,
			PropertyID: dealsPropertyID,
			Stage:      model.DealStage(dealsStage),
			MinTotal:   dealsMinScore,
		}

		projector := deal.NewProjector(st)
		var deals []deal.Deal
		if dealsStaleOnly {
			deals, err = projector.Stale(ctx, filter)
		} else {
			deals, err = projector.Build(ctx, filter)
		}
		if err != nil {
			return err
		}
		deal.SortByUrgency(deals)

		if len(deals) == 0 {
			fmt.Fprintln(os.Stderr, "No deals found.")
			return nil
		}

		if dealsXLSXPath != "" {
			if err := deal.WriteXLSX(dealsXLSXPath, deals); err != nil {
				return err
			}
			zap.L().Info("report written", zap.String("path", dealsXLSXPath), zap.Int("deals", len(deals)))
			return nil
		}

		switch {
		case dealsByBuyer:
			renderBuyerSummaries(deal.GroupByBuyer(deals))
		case dealsByProperty:
			renderPropertySummaries(deal.GroupByProperty(deals))
		default:
			deal.RenderTable(os.Stdout, deals)
		}
		return nil
	},
}

func renderBuyerSummaries(summaries []deal.BuyerSummary) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BUYER\tDEALS\tACTIVE\tSTALE\tPIPELINE VALUE\tTOP SCORE\tSTAGES")
	for _, s := range summaries {
		name := s.BuyerName
		if name == "" {
			name = s.BuyerID
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%d\t%s\n",
			name, s.DealCount, s.ActiveCount, s.StaleCount, deal.FormatUSD(s.PipelineValue), s.TopScore,
			deal.FormatStages(s.Stages))
	}
	tw.Flush()
}

func renderPropertySummaries(summaries []deal.PropertySummary) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROPERTY\tDEALS\tACTIVE\tFURTHEST STAGE\tPIPELINE VALUE\tSTAGES")
	for _, s := range summaries {
		address := s.Address
		if address == "" {
			address = s.PropertyID
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\n",
			address, s.DealCount, s.ActiveCount, s.FurthestStage, deal.FormatUSD(s.PipelineValue),
			deal.FormatStages(s.Stages))
	}
	tw.Flush()
}

func init() {
	dealsCmd.Flags().StringVar(&dealsBuyerID, "buyer", "", "filter by buyer contact ID")
	dealsCmd.Flags().StringVar(&dealsPropertyID, "property", "", "filter by property code")
	dealsCmd.Flags().StringVar(&dealsStage, "stage", "", "filter by stage name")
	dealsCmd.Flags().IntVar(&dealsMinScore, "min-score", 0, "filter by minimum score")
	dealsCmd.Flags().BoolVar(&dealsStaleOnly, "stale", false, "show only stale deals")
	dealsCmd.Flags().BoolVar(&dealsByBuyer, "by-buyer", false, "roll up per buyer")
	dealsCmd.Flags().BoolVar(&dealsByProperty, "by-property", false, "roll up per property")
	dealsCmd.Flags().StringVar(&dealsXLSXPath, "xlsx", "", "write the report to an XLSX workbook instead of stdout")
	rootCmd.AddCommand(dealsCmd)
}
