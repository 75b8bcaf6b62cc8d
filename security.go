package costbasis

import (
	"fmt"
	"strings"
)

// SecurityType classifies securities. Only some types can be held in
// fractional units.
type SecurityType int

const (
	Equity SecurityType = iota
	MutualFund
	ETF
	Bond
	OptionContract
	Other
)

func (t SecurityType) String() string {
	switch t {
	case Equity:
		return "equity"
	case MutualFund:
		return "fund"
	case ETF:
		return "etf"
	case Bond:
		return "bond"
	case OptionContract:
		return "option"
	default:
		return "other"
	}
}

// HoldsWholeUnits reports whether a position in that type of security is
// always a whole number of units. Fractions created by a split of such a
// security are paid "cash in lieu".
func (t SecurityType) HoldsWholeUnits() bool { return t == Equity }

// ParseSecurityType parses the name of a security type.
func ParseSecurityType(s string) (SecurityType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equity", "stock", "":
		return Equity, nil
	case "fund", "mutualfund", "mutual-fund":
		return MutualFund, nil
	case "etf":
		return ETF, nil
	case "bond":
		return Bond, nil
	case "option":
		return OptionContract, nil
	case "other":
		return Other, nil
	default:
		return Other, fmt.Errorf("unknown security type %q", s)
	}
}

// Security identifies a traded security.
type Security struct {
	Ticker   string
	Name     string
	Type     SecurityType
	Currency string
}

func (s Security) String() string {
	if s.Name == "" {
		return s.Ticker
	}
	return s.Name + " (" + s.Ticker + ")"
}
