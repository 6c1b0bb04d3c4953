// Package table turns opportunities into display rows and renders them as an
// HTML fragment or an aligned plain-text table.
package table

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alanyoungcy/xchainarb/internal/domain"
	"github.com/alanyoungcy/xchainarb/internal/format"
)

// Column headers, shared by both renderers.
var Headers = []string{
	"Time",
	"Source Chain",
	"Target Chain",
	"Token Pair",
	"Source DEX",
	"Target DEX",
	"Source Price",
	"Target Price",
	"Profit %",
	"Est. Profit",
	"Required Amount",
	"Gas Est.",
}

const (
	timeLayout = "15:04:05"
	gasUnit    = " ETH"

	classPositive = "positive"
	classNegative = "negative"
)

//go:embed templates/*.html
var templateFS embed.FS

var fragment = template.Must(template.ParseFS(templateFS, "templates/table.html"))

// Row is one formatted table row.
type Row struct {
	ID              string
	Time            string
	SourceChain     string
	TargetChain     string
	Pair            string
	SourceDex       string
	TargetDex       string
	SourcePrice     string
	TargetPrice     string
	Profit          string
	ProfitClass     string
	EstimatedProfit string
	RequiredAmount  string
	Gas             string
}

// Cells returns the row values in header order.
func (r Row) Cells() []string {
	return []string{
		r.Time,
		r.SourceChain,
		r.TargetChain,
		r.Pair,
		r.SourceDex,
		r.TargetDex,
		r.SourcePrice,
		r.TargetPrice,
		r.Profit,
		r.EstimatedProfit,
		r.RequiredAmount,
		r.Gas,
	}
}

// Rows formats opps in order, with times in the local zone.
func Rows(opps []domain.ArbitrageOpportunity) []Row {
	return RowsIn(opps, time.Local)
}

// RowsIn formats opps in order, with times in loc.
func RowsIn(opps []domain.ArbitrageOpportunity, loc *time.Location) []Row {
	rows := make([]Row, 0, len(opps))
	for _, o := range opps {
		class := classNegative
		if o.Profitable() {
			class = classPositive
		}
		rows = append(rows, Row{
			ID:              o.ID,
			Time:            o.Time().In(loc).Format(timeLayout),
			SourceChain:     o.SourceChain,
			TargetChain:     o.TargetChain,
			Pair:            o.SourceToken.Symbol + "/" + o.TargetToken.Symbol,
			SourceDex:       o.SourceDex.Name,
			TargetDex:       o.TargetDex.Name,
			SourcePrice:     dollars(o.SourcePrice),
			TargetPrice:     dollars(o.TargetPrice),
			Profit:          format.Number(o.ProfitPercentage) + "%",
			ProfitClass:     class,
			EstimatedProfit: dollars(o.EstimatedProfit),
			RequiredAmount:  dollars(o.RequiredAmount),
			Gas:             format.Number(o.GasEstimate) + gasUnit,
		})
	}
	return rows
}

func dollars(x float64) string {
	return "$" + format.Number(x)
}

// RenderHTML writes the table fragment for opps.
func RenderHTML(w io.Writer, opps []domain.ArbitrageOpportunity) error {
	data := struct {
		Headers []string
		Rows    []Row
	}{Headers, Rows(opps)}

	if err := fragment.ExecuteTemplate(w, "table.html", data); err != nil {
		return fmt.Errorf("table: render html: %w", err)
	}
	return nil
}

// RenderText writes opps as a tab-aligned plain-text table.
func RenderText(w io.Writer, opps []domain.ArbitrageOpportunity) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(Headers, "\t"))
	for _, r := range Rows(opps) {
		fmt.Fprintln(tw, strings.Join(r.Cells(), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("table: render text: %w", err)
	}
	return nil
}
