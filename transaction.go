package costbasis

import (
	"fmt"

	"github.com/etnz/costbasis/date"
)

// Account is a cash or brokerage account whose transactions are replayed.
type Account struct {
	Name string
	// TaxDeferred accounts (retirement plans) can be excluded from gains reports.
	TaxDeferred    bool
	OpeningBalance Money
	Currency       string
}

func (a *Account) String() string {
	if a == nil {
		return "<none>"
	}
	return a.Name
}

// InvestmentType is the kind of operation an investment transaction performs
// on a security position.
type InvestmentType int

const (
	NoInvestment InvestmentType = iota
	Buy
	Sell
	Add    // units coming in without cash, possibly from another account
	Remove // units going out without cash, possibly to another account
	Dividend
	Reinvest
)

func (t InvestmentType) String() string {
	switch t {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	case Add:
		return "add"
	case Remove:
		return "remove"
	case Dividend:
		return "dividend"
	case Reinvest:
		return "reinvest"
	default:
		return "none"
	}
}

// ParseInvestmentType parses the name of an investment type.
func ParseInvestmentType(s string) (InvestmentType, error) {
	for t := NoInvestment; t <= Reinvest; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return NoInvestment, fmt.Errorf("unknown investment type %q", s)
}

// Acquires reports whether the type brings units into the account.
func (t InvestmentType) Acquires() bool { return t == Buy || t == Add || t == Reinvest }

// Disposes reports whether the type takes units out of the account.
func (t InvestmentType) Disposes() bool { return t == Sell || t == Remove }

// Investment holds the security part of a transaction.
type Investment struct {
	Type      InvestmentType
	Security  Security
	Units     Quantity
	UnitPrice Money
	// CostBasis is the original total cost of the units, when known. It is
	// mostly relevant for Add transactions.
	CostBasis Money
}

// Cost returns the total cost basis of the units acquired by the investment.
// cash is the signed cash amount of the transaction.
func (i *Investment) Cost(cash Money) Money {
	switch {
	case !i.CostBasis.IsZero():
		return i.CostBasis
	case !cash.IsZero():
		return cash.Abs()
	default:
		return i.UnitPrice.Mul(i.Units)
	}
}

// Proceeds returns the total proceeds of the units disposed of by the investment.
func (i *Investment) Proceeds(cash Money) Money {
	if !cash.IsZero() {
		return cash.Abs()
	}
	return i.UnitPrice.Mul(i.Units)
}

// Transaction is a dated movement of cash, possibly with an investment detail.
type Transaction struct {
	ID      string
	Account *Account
	Date    date.Date
	// Amount is the signed cash amount, negative when cash leaves the account.
	Amount     Money
	Investment *Investment
	// Transfer is the ID of the matching transaction on the other account,
	// empty when the transaction is not a transfer.
	Transfer string
	Memo     string
}

// IsTransfer reports whether the transaction is one side of an inter-account transfer.
func (t *Transaction) IsTransfer() bool { return t.Transfer != "" }

func (t *Transaction) String() string {
	if t.Investment == nil {
		return fmt.Sprintf("%s %s %s", t.Date, t.Account, t.Amount)
	}
	i := t.Investment
	return fmt.Sprintf("%s %s %s %s %s", t.Date, t.Account, i.Type, i.Units, i.Security.Ticker)
}
