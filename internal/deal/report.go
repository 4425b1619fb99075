package deal

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/dealflow-cli/internal/model"
)

var usd = message.NewPrinter(language.AmericanEnglish)

// FormatUSD renders a dollar amount with thousands separators.
func FormatUSD(v float64) string {
	return usd.Sprintf("$%.0f", v)
}

// formatStage renders a stage for display, naming the unsent state.
func formatStage(stage model.DealStage) string {
	if stage == model.StageUnset {
		return "(not yet sent)"
	}
	return string(stage)
}

// FormatStages renders a distinct-stage set as a comma-separated list.
func FormatStages(stages []model.DealStage) string {
	out := ""
	for i, s := range stages {
		if i > 0 {
			out += ", "
		}
		out += formatStage(s)
	}
	return out
}

// formatAge renders the days-since-activity column, -1 meaning no activity
// on record.
func formatAge(days int) string {
	if days < 0 {
		return "-"
	}
	return strconv.Itoa(days) + "d"
}

// RenderTable writes deals as an aligned text table.
func RenderTable(w io.Writer, deals []Deal) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MATCH\tBUYER\tPROPERTY\tSTAGE\tSCORE\tPRICE\tAGE\tFLAGS")
	for _, d := range deals {
		flags := ""
		if d.IsPriority {
			flags += "priority "
		}
		if d.IsStale {
			flags += "stale"
		}
		buyer := d.BuyerName
		if buyer == "" {
			buyer = d.BuyerID
		}
		property := d.Address
		if property == "" {
			property = d.PropertyID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			d.MatchID, buyer, property, formatStage(d.Stage),
			d.Score, FormatUSD(d.PropertyPrice), formatAge(d.DaysSinceActivity), flags)
	}
	tw.Flush()
}

// WriteXLSX writes the pipeline report workbook: a Deals sheet plus buyer and
// property rollups.
func WriteXLSX(path string, deals []Deal) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet("Deals")
	if err != nil {
		return eris.Wrap(err, "deal: add deals sheet")
	}
	header := sheet.AddRow()
	for _, h := range []string{"Match ID", "Buyer", "Property", "Stage", "Score", "Priority", "Price", "Days Since Activity", "Stale", "Created", "Updated"} {
		header.AddCell().SetString(h)
	}
	for _, d := range deals {
		row := sheet.AddRow()
		row.AddCell().SetString(d.MatchID)
		row.AddCell().SetString(firstNonEmpty(d.BuyerName, d.BuyerID))
		row.AddCell().SetString(firstNonEmpty(d.Address, d.PropertyID))
		row.AddCell().SetString(formatStage(d.Stage))
		row.AddCell().SetInt(d.Score)
		row.AddCell().SetBool(d.IsPriority)
		row.AddCell().SetFloat(d.PropertyPrice)
		row.AddCell().SetString(formatAge(d.DaysSinceActivity))
		row.AddCell().SetBool(d.IsStale)
		row.AddCell().SetString(d.CreatedAt.Format("2006-01-02"))
		row.AddCell().SetString(d.UpdatedAt.Format("2006-01-02"))
	}

	buyerSheet, err := f.AddSheet("By Buyer")
	if err != nil {
		return eris.Wrap(err, "deal: add buyer sheet")
	}
	bHeader := buyerSheet.AddRow()
	for _, h := range []string{"Buyer", "Deals", "Active", "Stale", "Pipeline Value", "Top Score", "Stages"} {
		bHeader.AddCell().SetString(h)
	}
	for _, s := range GroupByBuyer(deals) {
		row := buyerSheet.AddRow()
		row.AddCell().SetString(firstNonEmpty(s.BuyerName, s.BuyerID))
		row.AddCell().SetInt(s.DealCount)
		row.AddCell().SetInt(s.ActiveCount)
		row.AddCell().SetInt(s.StaleCount)
		row.AddCell().SetFloat(s.PipelineValue)
		row.AddCell().SetInt(s.TopScore)
		row.AddCell().SetString(FormatStages(s.Stages))
	}

	propertySheet, err := f.AddSheet("By Property")
	if err != nil {
		return eris.Wrap(err, "deal: add property sheet")
	}
	pHeader := propertySheet.AddRow()
	for _, h := range []string{"Property", "Deals", "Active", "Furthest Stage", "Pipeline Value", "Stages"} {
		pHeader.AddCell().SetString(h)
	}
	for _, s := range GroupByProperty(deals) {
		row := propertySheet.AddRow()
		row.AddCell().SetString(firstNonEmpty(s.Address, s.PropertyID))
		row.AddCell().SetInt(s.DealCount)
		row.AddCell().SetInt(s.ActiveCount)
		row.AddCell().SetString(s.FurthestStage)
		row.AddCell().SetFloat(s.PipelineValue)
		row.AddCell().SetString(FormatStages(s.Stages))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "deal: save workbook")
	}
	return nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
