package cmd

import (
	"errors"

	"github.com/etnz/costbasis/date"
)

// parseRange computes the reporting range from the -period, -s and -d flags.
// An explicit start date replaces the period. An empty end defaults to today.
func parseRange(period, start, end string) (date.Range, error) {
	to := date.Today()
	if end != "" {
		d, err := date.Parse(end)
		if err != nil {
			return date.Range{}, err
		}
		to = d
	}
	if start != "" {
		from, err := date.Parse(start)
		if err != nil {
			return date.Range{}, err
		}
		if from.After(to) {
			return date.Range{}, errors.New("start date is after end date")
		}
		return date.Range{From: from, To: to}, nil
	}
	if period == "" || period == "all" {
		return date.Range{To: to}, nil
	}
	p, err := date.ParsePeriod(period)
	if err != nil {
		return date.Range{}, err
	}
	return date.NewRange(to, p), nil
}
