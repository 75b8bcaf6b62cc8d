package renderer

import (
	"bytes"
	"io"
	"slices"
	"strings"

	"github.com/etnz/costbasis"
)

// ConditionalBlock let you fully write a block and decide at the end to print it or not.
// If the block function returns true, the content is printed to w, otherwise it is discarded.
func ConditionalBlock(w io.Writer, block func(io.Writer) bool) {
	bw := &bytes.Buffer{}
	if block(bw) {
		io.Copy(w, bw)
	}
}

// totals sums amounts per currency, since sales from accounts in different
// currencies cannot be added together.
type totals struct {
	order []string
	sums  map[string]costbasis.Money
}

func (t *totals) add(m costbasis.Money) {
	if t.sums == nil {
		t.sums = make(map[string]costbasis.Money)
	}
	cur := m.Currency()
	sum, ok := t.sums[cur]
	if !ok {
		t.order = append(t.order, cur)
		t.sums[cur] = m
		return
	}
	t.sums[cur] = sum.Add(m)
}

// currencies returns the currencies seen, sorted.
func (t *totals) currencies() []string {
	c := slices.Clone(t.order)
	slices.Sort(c)
	return c
}

func (t *totals) get(cur string) costbasis.Money { return t.sums[cur] }

// escape makes s safe to use in a table cell.
func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
