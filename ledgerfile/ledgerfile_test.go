package ledgerfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
{"command":"account","name":"brokerage","currency":"USD","opening":1000}
{"command":"account","name":"ira","currency":"USD","taxDeferred":true}
{"command":"security","ticker":"ACME","name":"Acme Corp","type":"equity","currency":"USD"}
{"command":"security","ticker":"VTSAX","type":"fund","currency":"USD"}
# splits may be declared anywhere
{"command":"split","date":"2021-06-01","security":"ACME","numerator":2,"denominator":1}
{"command":"sell","date":"2021-07-01","account":"brokerage","security":"ACME","quantity":5,"amount":150}
{"command":"buy","date":"2020-01-02","account":"brokerage","security":"ACME","quantity":10,"amount":100}
{"command":"deposit","date":"2020-01-01","account":"brokerage","amount":500}
{"command":"transfer","date":"2022-01-03","from":"brokerage","to":"ira","security":"ACME","quantity":5}
{"command":"add","id":"gift","date":"2022-02-01","account":"ira","security":"VTSAX","quantity":2.5,"costBasis":250}
`

func TestDecode(t *testing.T) {
	b, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)

	require.Len(t, b.Accounts, 2)
	brokerage, ira := b.Account("brokerage"), b.Account("ira")
	require.NotNil(t, brokerage)
	assert.True(t, ira.TaxDeferred)
	assert.Equal(t, "1000", brokerage.OpeningBalance.Decimal().String())
	assert.Nil(t, b.Account("unknown"))

	assert.Equal(t, []string{"ACME", "VTSAX"}, b.Tickers())
	assert.Equal(t, costbasis.MutualFund, b.Securities["VTSAX"].Type)
	assert.Equal(t, 1, b.Splits.Len())

	require.Len(t, b.Transactions, 6)
	for i := 1; i < len(b.Transactions); i++ {
		assert.False(t, b.Transactions[i].Date.Before(b.Transactions[i-1].Date), "transactions are sorted")
	}

	deposit := b.Transactions[0]
	assert.Nil(t, deposit.Investment)
	assert.Equal(t, "500", deposit.Amount.Decimal().String())

	buy := b.Transactions[1]
	assert.Equal(t, costbasis.Buy, buy.Investment.Type)
	assert.Equal(t, "-100", buy.Amount.Decimal().String())
	assert.Equal(t, "10", buy.Investment.UnitPrice.Decimal().String())
	assert.NotEmpty(t, buy.ID)

	sell := b.Transactions[2]
	assert.Equal(t, costbasis.Sell, sell.Investment.Type)
	assert.Equal(t, "150", sell.Amount.Decimal().String())

	remove, add := b.Transactions[3], b.Transactions[4]
	assert.Equal(t, costbasis.Remove, remove.Investment.Type)
	assert.Equal(t, costbasis.Add, add.Investment.Type)
	assert.Equal(t, add.ID, remove.Transfer)
	assert.Equal(t, remove.ID, add.Transfer)
	assert.Equal(t, ira, add.Account)

	gift := b.Transactions[5]
	assert.Equal(t, "gift", gift.ID)
	assert.Equal(t, "250", gift.Investment.CostBasis.Decimal().String())

	assert.Len(t, b.TransactionsOf(ira), 2)
}

func TestDecode_Gains(t *testing.T) {
	b, err := Decode(strings.NewReader(sample))
	require.NoError(t, err)

	report, err := costbasis.CalculateGains(b.Transactions, b.Splits, costbasis.Options{})
	require.NoError(t, err)
	require.Len(t, report.LongTerm, 1)
	s := report.LongTerm[0]
	assert.Equal(t, date.New(2020, time.January, 2), s.DateAcquired)
	assert.Equal(t, "5", s.UnitsSold.String())
	assert.Equal(t, "25", s.CostBasis.Decimal().String())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name, input, want string
	}{
		{"bad json", `{"command":`, "line 1"},
		{"unknown command", `{"command":"frobnicate"}`, "unknown command"},
		{"unknown account", `{"command":"deposit","date":"2020-01-01","account":"x","amount":1}`, `unknown account "x"`},
		{"unknown security", "{\"command\":\"account\",\"name\":\"a\"}\n{\"command\":\"buy\",\"date\":\"2020-01-01\",\"account\":\"a\",\"security\":\"X\",\"quantity\":1}", `line 2: unknown security "X"`},
		{"negative quantity", "{\"command\":\"account\",\"name\":\"a\"}\n{\"command\":\"security\",\"ticker\":\"X\"}\n{\"command\":\"sell\",\"date\":\"2020-01-01\",\"account\":\"a\",\"security\":\"X\",\"quantity\":-1}", "quantity must be positive"},
		{"missing date", "{\"command\":\"account\",\"name\":\"a\"}\n{\"command\":\"deposit\",\"account\":\"a\",\"amount\":1}", "without a date"},
		{"invalid split", `{"command":"split","date":"2020-01-01","security":"X","numerator":0,"denominator":1}`, "invalid split ratio"},
		{"duplicate account", "{\"command\":\"account\",\"name\":\"a\"}\n{\"command\":\"account\",\"name\":\"a\"}", "declared twice"},
		{"security type", `{"command":"security","ticker":"X","type":"tulip"}`, "unknown security type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	b, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, b.Transactions, 6)

	_, err = Load(filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}
