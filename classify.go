package costbasis

// longTermDays is the holding period, in days, a sale must exceed to be a
// long-term gain.
const longTermDays = 365

// CapitalGainsReport holds the sales of a reporting window by gain term.
type CapitalGainsReport struct {
	Unknown   []SecuritySale
	ShortTerm []SecuritySale
	LongTerm  []SecuritySale
}

// All returns every sale of the report: unknown, then short-term, then long-term.
func (r *CapitalGainsReport) All() []SecuritySale {
	all := make([]SecuritySale, 0, len(r.Unknown)+len(r.ShortTerm)+len(r.LongTerm))
	all = append(all, r.Unknown...)
	all = append(all, r.ShortTerm...)
	return append(all, r.LongTerm...)
}

// Len returns the number of sales in the report.
func (r *CapitalGainsReport) Len() int { return len(r.Unknown) + len(r.ShortTerm) + len(r.LongTerm) }

// TermOf returns the gain term of a sale.
func TermOf(s SecuritySale) GainTerm {
	switch {
	case s.Err != nil:
		return Unknown
	case s.DaysHeld() > longTermDays:
		return LongTerm
	default:
		return ShortTerm
	}
}

// Classify sorts sales by gain term, setting each sale's Term, and keeps their
// relative order. Sales of tax-deferred accounts are dropped when
// ignoreTaxDeferred is set.
func Classify(sales []SecuritySale, ignoreTaxDeferred bool) *CapitalGainsReport {
	r := new(CapitalGainsReport)
	for _, s := range sales {
		if ignoreTaxDeferred && s.Account != nil && s.Account.TaxDeferred {
			continue
		}
		s.Term = TermOf(s)
		switch s.Term {
		case LongTerm:
			r.LongTerm = append(r.LongTerm, s)
		case ShortTerm:
			r.ShortTerm = append(r.ShortTerm, s)
		default:
			r.Unknown = append(r.Unknown, s)
		}
	}
	return r
}
