package main

import (
	"encoding/csv"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealflow-cli/internal/model"
	"github.com/sells-group/dealflow-cli/pkg/crm"
)

var importCSVPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import buyers and properties",
}

var importBuyersCmd = &cobra.Command{
	Use:   "buyers",
	Short: "Import active buyer contacts from the CRM",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		client, err := initCRM()
		if err != nil {
			return err
		}

		buyers, err := crm.FetchBuyers(ctx, client)
		if err != nil {
			return err
		}

		var saved, failed int
		for _, b := range buyers {
			if err := st.PutBuyer(ctx, b); err != nil {
				zap.L().Warn("failed to save buyer", zap.String("contact", b.ContactID), zap.Error(err))
				failed++
				continue
			}
			saved++
		}

		zap.L().Info("buyer import complete",
			zap.Int("saved", saved),
			zap.Int("failed", failed),
		)
		return nil
	},
}

var importPropertiesCmd = &cobra.Command{
	Use:   "properties",
	Short: "Import properties from CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		f, err := os.Open(importCSVPath)
		if err != nil {
			return eris.Wrap(err, "import: open csv")
		}
		defer f.Close() //nolint:errcheck

		properties, err := parsePropertiesCSV(f)
		if err != nil {
			return err
		}

		saved, err := st.PutProperties(ctx, properties)
		if err != nil {
			return err
		}

		zap.L().Info("property import complete",
			zap.Int64("saved", saved),
			zap.String("csv", importCSVPath),
		)
		return nil
	},
}

// parsePropertiesCSV reads property rows. The header row names the columns;
// unknown columns are ignored. Rows missing a code are rejected.
func parsePropertiesCSV(r io.Reader) ([]model.PropertyDetails, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "import: read csv header")
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["code"]; !ok {
		return nil, eris.New("import: csv missing required column: code")
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	num := func(row []string, name string) float64 {
		v, _ := strconv.ParseFloat(field(row, name), 64)
		return v
	}

	var properties []model.PropertyDetails
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, eris.Wrapf(err, "import: csv line %d", line)
		}

		p := model.PropertyDetails{
			Code:    field(row, "code"),
			Address: field(row, "address"),
			City:    field(row, "city"),
			State:   field(row, "state"),
			Zip:     field(row, "zip"),
			Price:   num(row, "price"),
			Beds:    num(row, "beds"),
			Baths:   num(row, "baths"),
			Sqft:    num(row, "sqft"),
			Source:  model.PropertySource(strings.ToLower(field(row, "source"))),
		}
		if p.Code == "" {
			return nil, eris.Errorf("import: csv line %d: code is required", line)
		}
		if p.Source == "" {
			p.Source = model.SourceInventory
		}
		if p.Source == model.SourceZillow {
			p.ZPID = field(row, "zpid")
			p.SourceURL = field(row, "source_url")
			p.DaysOnMarket = int(num(row, "days_on_market"))
		}
		properties = append(properties, p)
	}
	return properties, nil
}

func init() {
	importPropertiesCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	_ = importPropertiesCmd.MarkFlagRequired("csv")
	importCmd.AddCommand(importBuyersCmd)
	importCmd.AddCommand(importPropertiesCmd)
	rootCmd.AddCommand(importCmd)
}
