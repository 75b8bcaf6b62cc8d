package renderer

import (
	"fmt"
	"iter"
	"strings"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
)

// TrendMarkdown renders a series of values as a table with one row per
// period: the first value of each period, and the very last value.
func TrendMarkdown(title string, points iter.Seq[costbasis.TrendValue], period date.Period) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)

	var rows []costbasis.TrendValue
	var last costbasis.TrendValue
	var bucket date.Date
	n := 0
	for p := range points {
		if n == 0 || p.Date.StartOf(period) != bucket {
			bucket = p.Date.StartOf(period)
			rows = append(rows, p)
		}
		last = p
		n++
	}
	if n == 0 {
		fmt.Fprint(&b, "No values.\n")
		return b.String()
	}
	if rows[len(rows)-1].Date != last.Date {
		rows = append(rows, last)
	}

	fmt.Fprintln(&b, "| Date | Value | Change | Last Transaction |")
	fmt.Fprintln(&b, "|:---|---:|---:|:---|")
	estimated := false
	for i, p := range rows {
		value := p.Value.String()
		if p.Estimated {
			value += " (est.)"
			estimated = true
		}
		change := "-"
		if i > 0 {
			change = p.Value.Sub(rows[i-1].Value).SignedString()
		}
		source := "-"
		if p.Source != nil {
			source = escape(p.Source.String())
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", p.Date, value, change, source)
	}
	if estimated {
		fmt.Fprint(&b, "\n(est.) some securities are valued at their cost basis for lack of a price.\n")
	}
	return b.String()
}
