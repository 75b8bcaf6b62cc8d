package costbasis

import (
	"testing"
	"time"

	"github.com/etnz/costbasis/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	acme  = Security{Ticker: "ACME", Name: "Acme Corp", Type: Equity, Currency: "USD"}
	vtsax = Security{Ticker: "VTSAX", Name: "Total Stock Market", Type: MutualFund, Currency: "USD"}
)

func usd(v float64) Money { return M(v, "USD") }

func day(y int, m time.Month, d int) date.Date { return date.New(y, m, d) }

// assertQ checks a quantity against its expected value.
func assertQ(t *testing.T, want float64, got Quantity, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, Q(want).Equal(got), "want %v units, got %s %v", want, got, msgAndArgs)
}

// assertM checks a money amount against its expected value, ignoring the currency.
func assertM(t *testing.T, want float64, got Money, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, Q(want).Decimal().Equal(got.Decimal()), "want %v, got %s %v", want, got.Decimal(), msgAndArgs)
}

func sumUnits(sales []SecuritySale) Quantity {
	var total Quantity
	for _, s := range sales {
		total = total.Add(s.UnitsSold)
	}
	return total
}

func TestAccountHoldings_SellFIFO(t *testing.T) {
	h := NewAccountHoldings(&Account{Name: "brokerage"})
	_, err := h.Buy(acme, day(2019, time.January, 1), Q(20), usd(100))
	require.NoError(t, err)
	_, err = h.Buy(acme, day(2020, time.June, 1), Q(50), usd(400))
	require.NoError(t, err)

	sales, err := h.Sell(acme, day(2021, time.March, 1), Q(70), usd(1400))
	require.NoError(t, err)
	require.Len(t, sales, 2)

	assert.Equal(t, day(2019, time.January, 1), sales[0].DateAcquired)
	assertQ(t, 20, sales[0].UnitsSold)
	assertM(t, 100, sales[0].CostBasis)
	assertM(t, 20, sales[0].SalePricePerUnit)

	assert.Equal(t, day(2020, time.June, 1), sales[1].DateAcquired)
	assertQ(t, 50, sales[1].UnitsSold)
	assertM(t, 400, sales[1].CostBasis)

	assertQ(t, 0, h.Units("ACME"))
	assert.Empty(t, h.Lots("ACME"))
	assert.False(t, h.HasPending())
}

func TestAccountHoldings_PartialLot(t *testing.T) {
	h := NewAccountHoldings(&Account{Name: "brokerage"})
	_, err := h.Buy(acme, day(2020, time.January, 1), Q(10), usd(100))
	require.NoError(t, err)
	_, err = h.Buy(acme, day(2020, time.February, 1), Q(10), usd(200))
	require.NoError(t, err)

	sales, err := h.Sell(acme, day(2020, time.March, 1), Q(15), usd(450))
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assertQ(t, 10, sales[0].UnitsSold)
	assertQ(t, 5, sales[1].UnitsSold)
	assertM(t, 100, sales[1].CostBasis)

	lots := h.Lots("ACME")
	require.Len(t, lots, 1)
	assert.Equal(t, day(2020, time.February, 1), lots[0].Date)
	assertQ(t, 5, lots[0].UnitsRemaining)
	assertM(t, 20, lots[0].CostPerUnit)
	assertM(t, 200, lots[0].OriginalCost)
}

func TestAccountHoldings_Conservation(t *testing.T) {
	h := NewAccountHoldings(&Account{Name: "brokerage"})
	for i, units := range []float64{3, 7.5, 12, 0.25} {
		_, err := h.Buy(vtsax, day(2020, time.January, 1+i), Q(units), usd(units*10))
		require.NoError(t, err)
	}
	for _, units := range []float64{1, 8, 5.75, 30} {
		sales, err := h.Sell(vtsax, day(2021, time.January, 1), Q(units), usd(units*12))
		require.NoError(t, err)
		sales = append(sales, h.Finalize()...)
		assertQ(t, units, sumUnits(sales), "selling %v", units)
	}
}

func TestAccountHoldings_UnmatchedSale(t *testing.T) {
	h := NewAccountHoldings(&Account{Name: "brokerage"})
	_, err := h.Buy(acme, day(2020, time.January, 1), Q(5), usd(50))
	require.NoError(t, err)

	sales, err := h.Sell(acme, day(2020, time.June, 1), Q(8), usd(160))
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assertQ(t, 5, sales[0].UnitsSold)
	assert.True(t, h.HasPending())

	unknown := h.Finalize()
	require.Len(t, unknown, 1)
	assertQ(t, 3, unknown[0].UnitsSold)
	assert.ErrorIs(t, unknown[0].Err, ErrInsufficientLots)
	assert.Equal(t, Unknown, unknown[0].Term)
	assert.False(t, unknown[0].HasCostBasis())
	assertM(t, 60, unknown[0].Proceeds())
	assert.False(t, h.HasPending())
}

func TestAccountHoldings_PendingSaleResolvedByBuy(t *testing.T) {
	h := NewAccountHoldings(&Account{Name: "brokerage"})
	sales, err := h.Sell(acme, day(2020, time.March, 1), Q(10), usd(200))
	require.NoError(t, err)
	assert.Empty(t, sales)

	sales, err = h.Buy(acme, day(2020, time.March, 2), Q(4), usd(40))
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assertQ(t, 4, sales[0].UnitsSold)
	assertM(t, 20, sales[0].SalePricePerUnit)
	assert.Equal(t, day(2020, time.March, 1), sales[0].DateSold)
	assertQ(t, 0, h.Units("ACME"))

	sales, err = h.Buy(acme, day(2020, time.March, 3), Q(10), usd(110))
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assertQ(t, 6, sales[0].UnitsSold)
	assertM(t, 66, sales[0].CostBasis)
	assertQ(t, 4, h.Units("ACME"))
	assert.False(t, h.HasPending())
}

func TestAccountHoldings_InvalidQuantity(t *testing.T) {
	h := NewAccountHoldings(&Account{Name: "brokerage"})
	_, err := h.Buy(acme, day(2020, time.January, 1), Q(-1), usd(10))
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = h.Sell(acme, day(2020, time.January, 1), Q(-1), usd(10))
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	sales, err := h.Buy(acme, day(2020, time.January, 1), Q(0), usd(0))
	assert.NoError(t, err)
	assert.Empty(t, sales)
	assertQ(t, 0, h.Units("ACME"))
}

func TestAccountHoldings_Transfer(t *testing.T) {
	from := NewAccountHoldings(&Account{Name: "old broker"})
	to := NewAccountHoldings(&Account{Name: "new broker"})
	_, err := from.Buy(acme, day(2018, time.May, 1), Q(10), usd(150))
	require.NoError(t, err)

	sales, err := from.Transfer(acme, day(2020, time.January, 1), Q(10), usd(30), to)
	require.NoError(t, err)
	assert.Empty(t, sales)
	assertQ(t, 0, from.Units("ACME"))

	lots := to.Lots("ACME")
	require.Len(t, lots, 1)
	assert.Equal(t, day(2018, time.May, 1), lots[0].Date, "acquisition date survives the transfer")
	assertM(t, 150, lots[0].CostBasis())
}

func TestAccountHoldings_PendingTransfer(t *testing.T) {
	from := NewAccountHoldings(&Account{Name: "old broker"})
	to := NewAccountHoldings(&Account{Name: "new broker"})

	// units sold in the destination before their origin is known.
	_, err := to.Sell(acme, day(2020, time.January, 2), Q(6), usd(180))
	require.NoError(t, err)
	_, err = from.Transfer(acme, day(2020, time.January, 1), Q(10), usd(30), to)
	require.NoError(t, err)
	assert.True(t, from.HasPending())

	sales, err := from.Buy(acme, day(2017, time.March, 1), Q(10), usd(100))
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, to.Account, sales[0].Account)
	assert.Equal(t, day(2017, time.March, 1), sales[0].DateAcquired)
	assertQ(t, 6, sales[0].UnitsSold)
	assertM(t, 60, sales[0].CostBasis)

	assertQ(t, 4, to.Units("ACME"))
	assertQ(t, 0, from.Units("ACME"))
	assert.False(t, from.HasPending())
	assert.False(t, to.HasPending())
}

func TestAccountHoldings_UnresolvedTransfer(t *testing.T) {
	from := NewAccountHoldings(&Account{Name: "old broker"})
	to := NewAccountHoldings(&Account{Name: "new broker"})
	_, err := from.Transfer(acme, day(2020, time.January, 1), Q(10), usd(30), to)
	require.NoError(t, err)

	sales := from.Finalize()
	require.Len(t, sales, 1)
	assert.ErrorIs(t, sales[0].Err, ErrUnresolvedTransfer)
	assertQ(t, 10, sales[0].UnitsSold)
}

func TestAccountHoldings_SplitValueInvariance(t *testing.T) {
	h := NewAccountHoldings(&Account{Name: "brokerage"})
	_, err := h.Buy(acme, day(2020, time.January, 1), Q(100), usd(1000))
	require.NoError(t, err)

	require.NoError(t, h.ApplySplit(StockSplit{Security: "ACME", Date: day(2020, time.June, 1), Numerator: 2, Denominator: 1}))

	lots := h.Lots("ACME")
	require.Len(t, lots, 1)
	assertQ(t, 200, lots[0].UnitsRemaining)
	assertM(t, 5, lots[0].CostPerUnit)
	assertM(t, 1000, lots[0].CostBasis())
}

func TestAccountHoldings_SplitOnlyAdjustsOlderLots(t *testing.T) {
	h := NewAccountHoldings(&Account{Name: "brokerage"})
	_, err := h.Buy(acme, day(2020, time.January, 1), Q(10), usd(100))
	require.NoError(t, err)
	_, err = h.Buy(acme, day(2020, time.June, 1), Q(10), usd(60))
	require.NoError(t, err)

	require.NoError(t, h.ApplySplit(StockSplit{Security: "ACME", Date: day(2020, time.June, 1), Numerator: 2, Denominator: 1}))

	lots := h.Lots("ACME")
	require.Len(t, lots, 2)
	assertQ(t, 20, lots[0].UnitsRemaining)
	assertQ(t, 10, lots[1].UnitsRemaining, "bought on the split date")
}

func TestAccountHoldings_SplitCashInLieu(t *testing.T) {
	h := NewAccountHoldings(&Account{Name: "brokerage"})
	_, err := h.Buy(acme, day(2020, time.January, 1), Q(3), usd(30))
	require.NoError(t, err)

	require.NoError(t, h.ApplySplit(StockSplit{Security: "ACME", Date: day(2020, time.June, 1), Numerator: 3, Denominator: 2}))

	units := h.Units("ACME")
	assertQ(t, 4, units)
	assert.True(t, units.IsInteger())

	tests := []struct {
		name     string
		lots     []float64 // units bought, $10 each
		num, den int64
		want     float64
	}{
		{"reverse 1:3", []float64{3}, 1, 3, 1},
		{"4:3", []float64{3}, 4, 3, 4},
		{"reverse 1:3 over lots", []float64{1, 1, 1}, 1, 3, 1},
		{"10 shares 1:3", []float64{10}, 1, 3, 3},
		{"all in cash", []float64{1}, 1, 3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAccountHoldings(&Account{Name: "brokerage"})
			for i, u := range tt.lots {
				_, err := h.Buy(acme, day(2020, time.January, i+1), Q(u), usd(10*u))
				require.NoError(t, err)
			}
			require.NoError(t, h.ApplySplit(StockSplit{Security: "ACME", Date: day(2020, time.June, 1), Numerator: tt.num, Denominator: tt.den}))

			assertQ(t, tt.want, h.Units("ACME"))
			for _, l := range h.Lots("ACME") {
				assert.True(t, l.UnitsRemaining.IsPositive(), "lot of %s", l.Date)
			}
			if tt.want == 0 {
				assert.Empty(t, h.Lots("ACME"))
				return
			}

			// the whole position can be sold back.
			sales, err := h.Sell(acme, day(2020, time.July, 1), Q(tt.want), usd(100))
			require.NoError(t, err)
			assert.False(t, h.HasPending())
			assertQ(t, tt.want, sumUnits(sales))
			for _, s := range sales {
				assert.True(t, s.UnitsSold.IsPositive())
			}
		})
	}
}

func TestAccountHoldings_SplitKeepsCostBasis(t *testing.T) {
	h := NewAccountHoldings(&Account{Name: "brokerage"})
	_, err := h.Buy(acme, day(2020, time.January, 1), Q(3), usd(90))
	require.NoError(t, err)

	require.NoError(t, h.ApplySplit(StockSplit{Security: "ACME", Date: day(2020, time.June, 1), Numerator: 1, Denominator: 3}))

	lots := h.Lots("ACME")
	require.Len(t, lots, 1)
	assertQ(t, 1, lots[0].UnitsRemaining)
	assertM(t, 90, lots[0].CostPerUnit)
	assertM(t, 90, lots[0].CostBasis())
}

func TestAccountHoldings_SplitKeepsFundFractions(t *testing.T) {
	h := NewAccountHoldings(&Account{Name: "brokerage"})
	_, err := h.Buy(vtsax, day(2020, time.January, 1), Q(3), usd(30))
	require.NoError(t, err)

	require.NoError(t, h.ApplySplit(StockSplit{Security: "VTSAX", Date: day(2020, time.June, 1), Numerator: 3, Denominator: 2}))
	assertQ(t, 4.5, h.Units("VTSAX"))
}

func TestAccountHoldings_SplitAdjustsPendingSales(t *testing.T) {
	h := NewAccountHoldings(&Account{Name: "brokerage"})
	_, err := h.Sell(acme, day(2020, time.January, 10), Q(10), usd(200))
	require.NoError(t, err)

	require.NoError(t, h.ApplySplit(StockSplit{Security: "ACME", Date: day(2020, time.February, 1), Numerator: 2, Denominator: 1}))

	sales := h.Finalize()
	require.Len(t, sales, 1)
	assertQ(t, 20, sales[0].UnitsSold)
	assertM(t, 10, sales[0].SalePricePerUnit)
	assertM(t, 200, sales[0].Proceeds())
}

func TestAccountHoldings_InvalidSplit(t *testing.T) {
	h := NewAccountHoldings(&Account{Name: "brokerage"})
	_, err := h.Buy(acme, day(2020, time.January, 1), Q(3), usd(30))
	require.NoError(t, err)

	err = h.ApplySplit(StockSplit{Security: "ACME", Date: day(2020, time.June, 1), Numerator: 0, Denominator: 2})
	assert.ErrorIs(t, err, ErrInvalidSplit)
	assertQ(t, 3, h.Units("ACME"))
}

func TestAccountHoldings_Securities(t *testing.T) {
	h := NewAccountHoldings(&Account{Name: "brokerage"})
	_, err := h.Buy(vtsax, day(2020, time.January, 1), Q(1), usd(1))
	require.NoError(t, err)
	_, err = h.Buy(acme, day(2020, time.January, 1), Q(1), usd(1))
	require.NoError(t, err)

	var tickers []string
	for s := range h.Securities() {
		tickers = append(tickers, s.Ticker)
	}
	assert.Equal(t, []string{"ACME", "VTSAX"}, tickers)
}

func TestLotQueue_Prune(t *testing.T) {
	var q lotQueue
	q.push(Lot{Date: day(2020, time.January, 1), UnitsRemaining: Q(0)})
	q.push(Lot{Date: day(2020, time.January, 2), UnitsRemaining: Q(2)})
	q.push(Lot{Date: day(2020, time.January, 3), UnitsRemaining: Q(0)})

	var visited []date.Date
	short := q.take(Q(1), func(l Lot, taken Quantity) { visited = append(visited, l.Date) })
	assertQ(t, 0, short)
	assert.Equal(t, []date.Date{day(2020, time.January, 2)}, visited, "empty lots are never sold")

	q.prune()
	require.Len(t, q.live(), 1)
	assertQ(t, 1, q.units())
}
