package txf

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/etnz/costbasis"
)

//go:embed categories.tsv
var categoriesTSV string

// Category is a tax category of the TXF format.
type Category struct {
	Code int
	Name string
}

// Categories is the table of tax categories. It is never modified once built.
type Categories struct {
	byCode map[int]Category
	byTerm map[costbasis.GainTerm]Category
}

// NewCategories builds the table of the categories known to this package.
func NewCategories() (*Categories, error) {
	return ParseCategories(strings.NewReader(categoriesTSV))
}

// ParseCategories builds a table from tab separated values: a header line,
// then one category per line with its code, the gain term it reports
// ("short", "long", "unknown" or empty) and its name.
func ParseCategories(r io.Reader) (*Categories, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = 3
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading tax categories: %w", err)
	}
	c := &Categories{
		byCode: make(map[int]Category),
		byTerm: make(map[costbasis.GainTerm]Category),
	}
	for i, rec := range records {
		if i == 0 {
			continue
		}
		code, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("tax category line %d: invalid code %q", i+1, rec[0])
		}
		cat := Category{Code: code, Name: rec[2]}
		c.byCode[code] = cat
		switch rec[1] {
		case "short":
			c.byTerm[costbasis.ShortTerm] = cat
		case "long":
			c.byTerm[costbasis.LongTerm] = cat
		case "unknown":
			c.byTerm[costbasis.Unknown] = cat
		case "":
		default:
			return nil, fmt.Errorf("tax category line %d: invalid term %q", i+1, rec[1])
		}
	}
	for _, term := range []costbasis.GainTerm{costbasis.Unknown, costbasis.ShortTerm, costbasis.LongTerm} {
		if _, ok := c.byTerm[term]; !ok {
			return nil, fmt.Errorf("no tax category for %s gains", term)
		}
	}
	return c, nil
}

// Lookup returns the category of a code.
func (c *Categories) Lookup(code int) (Category, bool) {
	cat, ok := c.byCode[code]
	return cat, ok
}

// ForTerm returns the category capital gains of a term are reported in.
func (c *Categories) ForTerm(term costbasis.GainTerm) Category { return c.byTerm[term] }
