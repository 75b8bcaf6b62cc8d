// Package txf writes capital gains reports in the Tax Exchange Format
// (TXF, version 042) understood by tax preparation software.
package txf

import (
	"bufio"
	"fmt"
	"io"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
)

const (
	version = "V042"
	program = "costbasis"
	// dateFormat is the layout of dates in TXF records.
	dateFormat = "01/02/2006"
	various    = "VARIOUS"
)

// Write writes the sales of a report as TXF detail records, unknown terms
// first, then short-term and long-term sales. on is the export date written
// in the header.
func Write(w io.Writer, report *costbasis.CapitalGainsReport, categories *Categories, on date.Date) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\nA%s\nD%s\n^\n", version, program, on.Format(dateFormat))
	for _, s := range report.All() {
		writeSale(bw, s, categories.ForTerm(s.Term))
	}
	return bw.Flush()
}

func writeSale(w io.Writer, s costbasis.SecuritySale, cat Category) {
	acquired := various
	if !s.DateAcquired.IsZero() {
		acquired = s.DateAcquired.Format(dateFormat)
	}
	cost := "0.00"
	if s.HasCostBasis() {
		cost = s.CostBasis.Decimal().StringFixed(2)
	}
	fmt.Fprintf(w, "TD\nN%d\nC1\nL1\nP%s %s\nD%s\nD%s\n$%s\n$%s\n^\n",
		cat.Code,
		s.UnitsSold,
		s.Security.Ticker,
		acquired,
		s.DateSold.Format(dateFormat),
		cost,
		s.Proceeds().Decimal().StringFixed(2),
	)
}
