// Package report turns a funnel analysis into locale-formatted rows ready
// for export or terminal display.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"insights/internal/funnel"
)

const DefaultLocale = "pt-BR"

var ErrUnsupportedLocale = errors.New("unsupported locale")

// Line is a labelled, already formatted value.
type Line struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Share string `json:"share,omitempty"`
}

// ComparisonLine is one actual-vs-ideal row.
type ComparisonLine struct {
	Label  string `json:"label"`
	Actual string `json:"actual"`
	Ideal  string `json:"ideal"`
	Status string `json:"status"`
}

type Report struct {
	Title       string           `json:"title"`
	Locale      string           `json:"locale"`
	Currency    string           `json:"currency"`
	Period      string           `json:"period,omitempty"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Summary     []Line           `json:"summary"`
	Comparison  []ComparisonLine `json:"comparison"`
	Breakdown   []Line           `json:"breakdown"`
	Finance     []Line           `json:"finance"`
	Messages    []string         `json:"messages"`
}

type Options struct {
	Title  string
	Locale string
	Now    time.Time
}

// formatter renders numbers for one locale.
type formatter struct {
	printer *message.Printer
	unit    currency.Unit
}

func newFormatter(locale string) (*formatter, language.Tag, error) {
	if strings.TrimSpace(locale) == "" {
		locale = DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, language.Und, fmt.Errorf("%w: %s", ErrUnsupportedLocale, locale)
	}
	unit, _ := currency.FromTag(tag)
	return &formatter{printer: message.NewPrinter(tag), unit: unit}, tag, nil
}

// Money rounds half away from zero to cents before formatting.
func (f *formatter) money(v float64) string {
	cents := decimal.NewFromFloat(v).Round(2)
	return f.unit.String() + " " + f.printer.Sprintf("%.2f", cents.InexactFloat64())
}

func (f *formatter) percent(v float64) string {
	return f.printer.Sprintf("%.2f%%", decimal.NewFromFloat(v).Round(2).InexactFloat64())
}

func (f *formatter) ratio(v float64) string {
	return f.printer.Sprintf("%.2fx", decimal.NewFromFloat(v).Round(2).InexactFloat64())
}

func (f *formatter) count(v int) string {
	return f.printer.Sprintf("%d", v)
}

// Build computes diagnostics for in and formats every section.
func Build(in funnel.Input, opts Options) (*Report, error) {
	f, tag, err := newFormatter(opts.Locale)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in = in.Normalize()

	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	title := opts.Title
	if title == "" {
		title = "Funnel report"
	}

	d := funnel.Calculate(in)
	r := &Report{
		Title:       title,
		Locale:      tag.String(),
		Currency:    f.unit.String(),
		GeneratedAt: now,
	}
	if p := in.Period(); p.Complete() {
		r.Period = p.String()
	}

	r.Summary = []Line{
		{Label: "Total revenue", Value: f.money(d.TotalRevenue)},
		{Label: "Ad spend", Value: f.money(in.AdSpend)},
		{Label: "Total sales", Value: f.count(funnel.TotalSales(in))},
		{Label: "ROI", Value: f.ratio(d.CurrentROI)},
		{Label: "Final conversion", Value: f.percent(d.FinalConversion)},
		{Label: "Cost per click", Value: f.money(d.CurrentCPC)},
		{Label: "Max cost per click", Value: f.money(d.MaxCPC)},
	}
	if in.MonthlyRevenue > 0 {
		r.Summary = append(r.Summary, Line{Label: "Monthly goal", Value: f.percent(d.MonthlyGoalProgress * 100)})
	}

	for _, row := range funnel.ComparisonRows(&in) {
		status := "on target"
		if row.Actual < row.Ideal {
			status = "below target"
		}
		r.Comparison = append(r.Comparison, ComparisonLine{
			Label:  row.Name,
			Actual: f.percent(row.Actual),
			Ideal:  f.percent(row.Ideal),
			Status: status,
		})
	}

	for _, item := range funnel.RevenueBreakdown(in) {
		r.Breakdown = append(r.Breakdown, Line{
			Label: item.Name,
			Value: f.money(item.Value),
			Share: f.percent(item.Percentage),
		})
	}

	fin := funnel.Finance(in)
	r.Finance = []Line{
		{Label: "Average order value", Value: f.money(fin.AverageOrderValue)},
		{Label: "Customer acquisition cost", Value: f.money(fin.CAC)},
		{Label: "Lifetime value", Value: f.money(fin.LTV)},
		{Label: "LTV to CAC", Value: f.ratio(fin.LTVToCAC)},
	}

	caser := cases.Title(tag)
	for _, m := range d.Messages {
		r.Messages = append(r.Messages, caser.String(string(m.Type))+": "+m.Message)
	}

	return r, nil
}

// WriteText renders r as aligned plain-text sections.
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "%s\n", r.Title)
	if r.Period != "" {
		fmt.Fprintf(tw, "Period:\t%s\n", r.Period)
	}
	fmt.Fprintf(tw, "Generated:\t%s\n\n", r.GeneratedAt.Format(time.RFC3339))

	for _, l := range r.Summary {
		fmt.Fprintf(tw, "%s\t%s\n", l.Label, l.Value)
	}

	if len(r.Comparison) > 0 {
		fmt.Fprintf(tw, "\nMETRIC\tACTUAL\tIDEAL\tSTATUS\n")
		for _, c := range r.Comparison {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Label, c.Actual, c.Ideal, c.Status)
		}
	}

	if len(r.Breakdown) > 0 {
		fmt.Fprintf(tw, "\nSOURCE\tREVENUE\tSHARE\n")
		for _, b := range r.Breakdown {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Label, b.Value, b.Share)
		}
	}

	fmt.Fprintf(tw, "\n")
	for _, l := range r.Finance {
		fmt.Fprintf(tw, "%s\t%s\n", l.Label, l.Value)
	}

	if len(r.Messages) > 0 {
		fmt.Fprintf(tw, "\n")
		for _, m := range r.Messages {
			fmt.Fprintf(tw, "- %s\n", m)
		}
	}

	return tw.Flush()
}
