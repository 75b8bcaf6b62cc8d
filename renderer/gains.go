// Package renderer formats costbasis reports as markdown.
package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
)

// GainsMarkdown renders a capital gains report, one table per term. Terms
// without sales are omitted.
func GainsMarkdown(report *costbasis.CapitalGainsReport, r date.Range, mode costbasis.ConsolidationMode) string {
	var b strings.Builder

	if r.From.IsZero() && r.To.IsZero() {
		fmt.Fprint(&b, "# Capital Gains Report\n\n")
	} else {
		fmt.Fprintf(&b, "# Capital Gains Report %s\n\n", r)
	}
	fmt.Fprintf(&b, "Consolidated by %s.\n\n", mode)

	if report.Len() == 0 {
		fmt.Fprint(&b, "No sales.\n")
		return b.String()
	}

	ConditionalBlock(&b, func(w io.Writer) bool { return termTable(w, "Short-Term", report.ShortTerm) })
	ConditionalBlock(&b, func(w io.Writer) bool { return termTable(w, "Long-Term", report.LongTerm) })
	ConditionalBlock(&b, func(w io.Writer) bool { return unknownTable(w, report.Unknown) })

	ConditionalBlock(&b, func(w io.Writer) bool {
		if len(report.ShortTerm)+len(report.LongTerm) == 0 {
			return false
		}
		fmt.Fprint(w, "## Summary\n\n")
		fmt.Fprintln(w, "| Term | Sales | Proceeds | Cost Basis | Gain |")
		fmt.Fprintln(w, "|:---|---:|---:|---:|---:|")
		summaryRows(w, "Short-Term", report.ShortTerm)
		summaryRows(w, "Long-Term", report.LongTerm)
		return true
	})
	return b.String()
}

func termTable(w io.Writer, title string, sales []costbasis.SecuritySale) bool {
	if len(sales) == 0 {
		return false
	}
	fmt.Fprintf(w, "## %s\n\n", title)
	fmt.Fprintln(w, "| Security | Account | Acquired | Sold | Units | Proceeds | Cost Basis | Gain |")
	fmt.Fprintln(w, "|:---|:---|:---|:---|---:|---:|---:|---:|")

	var proceeds, cost, gain totals
	for _, s := range sales {
		acquired := "various"
		if !s.IsVarious() {
			acquired = s.DateAcquired.String()
		}
		fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			escape(s.Security.Ticker),
			escape(s.Account.String()),
			acquired,
			s.DateSold,
			s.UnitsSold,
			s.Proceeds(),
			s.CostBasis,
			s.Gain().SignedString(),
		)
		proceeds.add(s.Proceeds())
		cost.add(s.CostBasis)
		gain.add(s.Gain())
	}
	for _, cur := range proceeds.currencies() {
		fmt.Fprintf(w, "| **Total** | | | | | **%s** | **%s** | **%s** |\n",
			proceeds.get(cur), cost.get(cur), gain.get(cur).SignedString())
	}
	fmt.Fprintln(w)
	return true
}

func unknownTable(w io.Writer, sales []costbasis.SecuritySale) bool {
	if len(sales) == 0 {
		return false
	}
	fmt.Fprint(w, "## Unknown Term\n\n")
	fmt.Fprintln(w, "Cost basis could not be determined for these sales.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Security | Account | Sold | Units | Proceeds | Reason |")
	fmt.Fprintln(w, "|:---|:---|:---|---:|---:|:---|")
	for _, s := range sales {
		reason := "-"
		if s.Err != nil {
			reason = s.Err.Error()
		}
		fmt.Fprintf(w, "| %s | %s | %s | %s | %s | %s |\n",
			escape(s.Security.Ticker),
			escape(s.Account.String()),
			s.DateSold,
			s.UnitsSold,
			s.Proceeds(),
			escape(reason),
		)
	}
	fmt.Fprintln(w)
	return true
}

func summaryRows(w io.Writer, term string, sales []costbasis.SecuritySale) {
	if len(sales) == 0 {
		return
	}
	var proceeds, cost, gain totals
	count := make(map[string]int)
	for _, s := range sales {
		proceeds.add(s.Proceeds())
		cost.add(s.CostBasis)
		gain.add(s.Gain())
		count[s.Proceeds().Currency()]++
	}
	for _, cur := range proceeds.currencies() {
		fmt.Fprintf(w, "| %s | %d | %s | %s | %s |\n",
			term, count[cur], proceeds.get(cur), cost.get(cur), gain.get(cur).SignedString())
	}
}
