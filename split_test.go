package costbasis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTable_Add(t *testing.T) {
	st := NewSplitTable()
	require.NoError(t, st.Add(StockSplit{Security: "ACME", Date: day(2022, time.June, 1), Numerator: 2, Denominator: 1}))
	require.NoError(t, st.Add(StockSplit{Security: "ACME", Date: day(2020, time.June, 1), Numerator: 3, Denominator: 1}))
	require.NoError(t, st.Add(StockSplit{Security: "ACME", Date: day(2022, time.June, 1), Numerator: 4, Denominator: 1}))
	assert.ErrorIs(t, st.Add(StockSplit{Security: "ACME", Date: day(2023, time.June, 1), Numerator: 1, Denominator: -1}), ErrInvalidSplit)

	splits := st.Of("ACME")
	require.Len(t, splits, 2)
	assert.Equal(t, day(2020, time.June, 1), splits[0].Date)
	assert.Equal(t, int64(4), splits[1].Numerator, "same day replaces")
	assert.Equal(t, 2, st.Len())
	assert.Empty(t, st.Of("VTSAX"))
}

func TestSplitTable_Nil(t *testing.T) {
	var st *SplitTable
	assert.Equal(t, 0, st.Len())
	assert.Empty(t, st.Of("ACME"))
	assert.Equal(t, 0, st.cursor().remaining())
}

func TestSplitCursor(t *testing.T) {
	st := NewSplitTable()
	require.NoError(t, st.Add(StockSplit{Security: "B", Date: day(2020, time.June, 1), Numerator: 2, Denominator: 1}))
	require.NoError(t, st.Add(StockSplit{Security: "A", Date: day(2020, time.June, 1), Numerator: 2, Denominator: 1}))
	require.NoError(t, st.Add(StockSplit{Security: "A", Date: day(2021, time.June, 1), Numerator: 2, Denominator: 1}))

	c := st.cursor()
	assert.Equal(t, 3, c.remaining())
	assert.Empty(t, c.due(day(2020, time.May, 31)))

	due := c.due(day(2020, time.June, 1))
	require.Len(t, due, 2)
	assert.Equal(t, "A", due[0].Security)
	assert.Equal(t, "B", due[1].Security)
	assert.Equal(t, 1, c.remaining())

	assert.Empty(t, c.due(day(2020, time.June, 1)), "a split is handed out once")
	assert.Len(t, c.due(day(2030, time.January, 1)), 1)
	assert.Equal(t, 0, c.remaining())

	assert.Equal(t, 1, st.cursor("B").remaining())
}

func TestStockSplit_String(t *testing.T) {
	s := StockSplit{Security: "ACME", Date: day(2020, time.June, 1), Numerator: 3, Denominator: 2}
	assert.Equal(t, "ACME 3:2 on 2020-06-01", s.String())
}
