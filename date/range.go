package date

import (
	"fmt"
	"iter"
	"strings"
	"time"
)

// Period is a standard calendar period.
type Period int

const (
	Daily Period = iota
	Weekly
	Monthly
	Quarterly
	Yearly
)

func (p Period) String() string {
	switch p {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case Yearly:
		return "yearly"
	default:
		panic(fmt.Sprintf("unknown period %d", p))
	}
}

// ParsePeriod parses a period name, short names like "year" are accepted.
func ParsePeriod(p string) (Period, error) {
	switch strings.ToLower(p) {
	case "daily", "day":
		return Daily, nil
	case "weekly", "week":
		return Weekly, nil
	case "monthly", "month":
		return Monthly, nil
	case "quarterly", "quarter":
		return Quarterly, nil
	case "yearly", "year":
		return Yearly, nil
	default:
		return Daily, fmt.Errorf("unknown period %s", p)
	}
}

// StartOf returns the date of begining of a given period
func (d Date) StartOf(period Period) Date {
	switch period {
	case Daily:
		return d
	case Weekly:
		offset := int(d.Weekday() - time.Monday)
		if offset < 0 {
			offset += 7
		}
		return d.Add(-offset)
	case Monthly:
		return New(d.y, d.m, 1)
	case Quarterly:
		quarter := (d.m - 1) / 3
		return New(d.y, quarter*3+1, 1)
	case Yearly:
		return New(d.y, time.January, 1)
	default:
		panic("unknown period")
	}
}

// EndOf returns the date of end of a given period
func (d Date) EndOf(period Period) Date {
	switch period {
	case Daily:
		return d
	case Weekly:
		return d.StartOf(Weekly).Add(6)
	case Monthly:
		return New(d.y, d.m+1, 0)
	case Quarterly:
		quarter := (d.m - 1) / 3 // in [0..3]
		// last day is the day 0 of the month following the quarter.
		return New(d.y, quarter*3+3+1, 0)
	case Yearly:
		return New(d.y+1, time.January, 0)
	default:
		panic("unknown period")
	}
}

// Range represents a range of dates, boundaries included.
// A zero From or To leaves that side open.
type Range struct{ From, To Date }

// NewRange return a well known period
func NewRange(d Date, period Period) Range {
	return Range{From: d.StartOf(period), To: d.EndOf(period)}
}

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(day Date) bool {
	if !r.From.IsZero() && day.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && day.After(r.To) {
		return false
	}
	return true
}

// Days iterates over every day of the range, From and To included.
// Both boundaries must be set.
func (r Range) Days() iter.Seq[Date] {
	return func(yield func(Date) bool) {
		for day := r.From; !day.After(r.To); day = day.Add(1) {
			if !yield(day) {
				return
			}
		}
	}
}

func (r Range) String() string {
	switch {
	case r.From.IsZero() && r.To.IsZero():
		return "all"
	case r.From.IsZero():
		return "until " + r.To.String()
	case r.To.IsZero():
		return "since " + r.From.String()
	default:
		return fmt.Sprintf("%s to %s", r.From, r.To)
	}
}
