// Package ledgerfile reads accounts, securities, splits and transactions from
// a JSONL file, one command per line.
//
//	{"command":"account","name":"brokerage","currency":"USD"}
//	{"command":"security","ticker":"ACME","type":"equity","currency":"USD"}
//	{"command":"buy","date":"2020-01-02","account":"brokerage","security":"ACME","quantity":10,"amount":100}
//	{"command":"split","date":"2021-06-01","security":"ACME","numerator":2,"denominator":1}
//	{"command":"transfer","date":"2022-01-03","from":"brokerage","to":"ira","security":"ACME","quantity":5}
//
// Amounts are written positive, the direction of the cash is given by the
// command.
package ledgerfile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Command names the kind of a line.
type Command string

const (
	CmdAccount  Command = "account"
	CmdSecurity Command = "security"
	CmdSplit    Command = "split"
	CmdBuy      Command = "buy"
	CmdSell     Command = "sell"
	CmdAdd      Command = "add"
	CmdRemove   Command = "remove"
	CmdTransfer Command = "transfer"
	CmdDividend Command = "dividend"
	CmdReinvest Command = "reinvest"
	CmdDeposit  Command = "deposit"
	CmdWithdraw Command = "withdraw"
)

// Book is the content of a ledger file.
type Book struct {
	Accounts   []*costbasis.Account // in declaration order
	Securities map[string]costbasis.Security
	Splits     *costbasis.SplitTable
	// Transactions of every account, sorted by date. Transactions of the same
	// day keep the order of the file.
	Transactions []*costbasis.Transaction

	accounts map[string]*costbasis.Account
}

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{
		Securities: make(map[string]costbasis.Security),
		Splits:     costbasis.NewSplitTable(),
		accounts:   make(map[string]*costbasis.Account),
	}
}

// Account returns the account of that name, or nil.
func (b *Book) Account(name string) *costbasis.Account { return b.accounts[name] }

// TransactionsOf returns the transactions of an account, sorted by date.
func (b *Book) TransactionsOf(a *costbasis.Account) []*costbasis.Transaction {
	var txs []*costbasis.Transaction
	for _, tx := range b.Transactions {
		if tx.Account == a {
			txs = append(txs, tx)
		}
	}
	return txs
}

// Tickers returns the tickers of the declared securities, sorted.
func (b *Book) Tickers() []string {
	tickers := make([]string, 0, len(b.Securities))
	for t := range b.Securities {
		tickers = append(tickers, t)
	}
	slices.Sort(tickers)
	return tickers
}

// line holds every field a command may use.
type line struct {
	Command Command   `json:"command"`
	ID      string    `json:"id"`
	Date    date.Date `json:"date"`
	Memo    string    `json:"memo"`

	// account
	Name        string          `json:"name"`
	Currency    string          `json:"currency"`
	TaxDeferred bool            `json:"taxDeferred"`
	Opening     decimal.Decimal `json:"opening"`

	// security
	Ticker string `json:"ticker"`
	Type   string `json:"type"`

	// split
	Numerator   int64 `json:"numerator"`
	Denominator int64 `json:"denominator"`

	// transactions
	Account   string          `json:"account"`
	Security  string          `json:"security"`
	Quantity  decimal.Decimal `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
	Price     decimal.Decimal `json:"price"`
	CostBasis decimal.Decimal `json:"costBasis"`
	Transfer  string          `json:"transfer"`
	From      string          `json:"from"`
	To        string          `json:"to"`
}

// Decode reads a book from a stream of JSONL data.
func Decode(r io.Reader) (*Book, error) {
	b := NewBook()
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 || lineBytes[0] == '#' {
			continue
		}
		var l line
		if err := json.Unmarshal(lineBytes, &l); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		if err := b.decode(l); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}
	slices.SortStableFunc(b.Transactions, func(x, y *costbasis.Transaction) int {
		return x.Date.Compare(y.Date)
	})
	return b, nil
}

// Load reads a book from a file.
func Load(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

func (b *Book) decode(l line) error {
	switch l.Command {
	case CmdAccount:
		return b.declareAccount(l)
	case CmdSecurity:
		return b.declareSecurity(l)
	case CmdSplit:
		return b.Splits.Add(costbasis.StockSplit{
			Security:    l.Security,
			Date:        l.Date,
			Numerator:   l.Numerator,
			Denominator: l.Denominator,
		})
	case CmdTransfer:
		return b.transfer(l)
	case CmdBuy, CmdSell, CmdAdd, CmdRemove, CmdDividend, CmdReinvest, CmdDeposit, CmdWithdraw:
		tx, err := b.transaction(l)
		if err != nil {
			return err
		}
		b.Transactions = append(b.Transactions, tx)
		return nil
	default:
		return fmt.Errorf("unknown command %q", l.Command)
	}
}

func (b *Book) declareAccount(l line) error {
	if l.Name == "" {
		return fmt.Errorf("account without a name")
	}
	if _, exists := b.accounts[l.Name]; exists {
		return fmt.Errorf("account %q declared twice", l.Name)
	}
	a := &costbasis.Account{
		Name:           l.Name,
		Currency:       l.Currency,
		TaxDeferred:    l.TaxDeferred,
		OpeningBalance: costbasis.M(l.Opening, l.Currency),
	}
	b.accounts[l.Name] = a
	b.Accounts = append(b.Accounts, a)
	return nil
}

func (b *Book) declareSecurity(l line) error {
	if l.Ticker == "" {
		return fmt.Errorf("security without a ticker")
	}
	t, err := costbasis.ParseSecurityType(l.Type)
	if err != nil {
		return err
	}
	b.Securities[l.Ticker] = costbasis.Security{
		Ticker:   l.Ticker,
		Name:     l.Name,
		Type:     t,
		Currency: l.Currency,
	}
	return nil
}

func (b *Book) account(name string) (*costbasis.Account, error) {
	a, ok := b.accounts[name]
	if !ok {
		return nil, fmt.Errorf("unknown account %q", name)
	}
	return a, nil
}

func (b *Book) security(ticker string) (costbasis.Security, error) {
	s, ok := b.Securities[ticker]
	if !ok {
		return costbasis.Security{}, fmt.Errorf("unknown security %q", ticker)
	}
	return s, nil
}

func (b *Book) transaction(l line) (*costbasis.Transaction, error) {
	if l.Date.IsZero() {
		return nil, fmt.Errorf("%s without a date", l.Command)
	}
	a, err := b.account(l.Account)
	if err != nil {
		return nil, err
	}
	id := l.ID
	if id == "" {
		id = uuid.NewString()
	}
	tx := &costbasis.Transaction{
		ID:       id,
		Account:  a,
		Date:     l.Date,
		Transfer: l.Transfer,
		Memo:     l.Memo,
	}
	amount := costbasis.M(l.Amount, a.Currency)
	switch l.Command {
	case CmdDeposit:
		tx.Amount = amount
		return tx, nil
	case CmdWithdraw:
		tx.Amount = amount.Neg()
		return tx, nil
	}

	sec, err := b.security(l.Security)
	if err != nil {
		return nil, err
	}
	var typ costbasis.InvestmentType
	switch l.Command {
	case CmdBuy:
		typ, tx.Amount = costbasis.Buy, amount.Neg()
	case CmdReinvest:
		typ = costbasis.Reinvest
	case CmdSell:
		typ, tx.Amount = costbasis.Sell, amount
	case CmdDividend:
		typ, tx.Amount = costbasis.Dividend, amount
	case CmdAdd:
		typ = costbasis.Add
	case CmdRemove:
		typ = costbasis.Remove
	}
	units := costbasis.Q(l.Quantity)
	if typ != costbasis.Dividend && !units.IsPositive() {
		return nil, fmt.Errorf("%s of %s: quantity must be positive, got %s", l.Command, sec.Ticker, units)
	}
	tx.Investment = &costbasis.Investment{
		Type:      typ,
		Security:  sec,
		Units:     units,
		UnitPrice: costbasis.M(l.Price, a.Currency),
		CostBasis: costbasis.M(l.CostBasis, a.Currency),
	}
	if tx.Investment.UnitPrice.IsZero() && !l.Amount.IsZero() && units.IsPositive() {
		tx.Investment.UnitPrice = amount.Div(units)
	}
	return tx, nil
}

// transfer decodes the shorthand for a Remove in one account linked to an
// Add in another one.
func (b *Book) transfer(l line) error {
	if l.Date.IsZero() {
		return fmt.Errorf("transfer without a date")
	}
	from, err := b.account(l.From)
	if err != nil {
		return err
	}
	to, err := b.account(l.To)
	if err != nil {
		return err
	}
	sec, err := b.security(l.Security)
	if err != nil {
		return err
	}
	units := costbasis.Q(l.Quantity)
	if !units.IsPositive() {
		return fmt.Errorf("transfer of %s: quantity must be positive, got %s", sec.Ticker, units)
	}
	out, in := uuid.NewString(), uuid.NewString()
	if l.ID != "" {
		out = l.ID
	}
	b.Transactions = append(b.Transactions,
		&costbasis.Transaction{
			ID:         out,
			Account:    from,
			Date:       l.Date,
			Investment: &costbasis.Investment{Type: costbasis.Remove, Security: sec, Units: units},
			Transfer:   in,
			Memo:       l.Memo,
		},
		&costbasis.Transaction{
			ID:         in,
			Account:    to,
			Date:       l.Date,
			Investment: &costbasis.Investment{Type: costbasis.Add, Security: sec, Units: units},
			Transfer:   out,
			Memo:       l.Memo,
		},
	)
	return nil
}
