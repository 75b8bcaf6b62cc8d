package txf

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/etnz/costbasis"
	"github.com/etnz/costbasis/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCategories(t *testing.T) {
	c, err := NewCategories()
	require.NoError(t, err)
	assert.Equal(t, 321, c.ForTerm(costbasis.ShortTerm).Code)
	assert.Equal(t, 323, c.ForTerm(costbasis.LongTerm).Code)
	assert.Equal(t, 673, c.ForTerm(costbasis.Unknown).Code)

	cat, ok := c.Lookup(286)
	require.True(t, ok)
	assert.Equal(t, "Dividend income", cat.Name)
	_, ok = c.Lookup(999)
	assert.False(t, ok)
}

func TestParseCategories_Errors(t *testing.T) {
	for name, input := range map[string]string{
		"bad code":     "code\tterm\tname\nabc\tshort\tx\n",
		"bad term":     "code\tterm\tname\n1\tmedium\tx\n",
		"missing term": "code\tterm\tname\n1\tshort\tx\n2\tlong\ty\n",
		"bad fields":   "code\tterm\tname\n1\tshort\n",
	} {
		_, err := ParseCategories(strings.NewReader(input))
		assert.Error(t, err, name)
	}
}

func TestWrite(t *testing.T) {
	acme := costbasis.Security{Ticker: "ACME", Type: costbasis.Equity, Currency: "USD"}
	usd := func(v float64) costbasis.Money { return costbasis.M(v, "USD") }
	report := &costbasis.CapitalGainsReport{
		Unknown: []costbasis.SecuritySale{{
			Security: acme, DateSold: date.New(2023, time.March, 1), UnitsSold: costbasis.Q(2),
			SalePricePerUnit: usd(30), Term: costbasis.Unknown, Err: costbasis.ErrInsufficientLots,
		}},
		ShortTerm: []costbasis.SecuritySale{{
			Security: acme, DateAcquired: date.New(2023, time.January, 5), DateSold: date.New(2023, time.March, 1),
			UnitsSold: costbasis.Q(10), SalePricePerUnit: usd(30), CostBasis: usd(250.5), Term: costbasis.ShortTerm,
		}},
		LongTerm: []costbasis.SecuritySale{{
			Security: acme, DateSold: date.New(2023, time.March, 1),
			UnitsSold: costbasis.Q(1.5), SalePricePerUnit: usd(30), CostBasis: usd(12), Term: costbasis.LongTerm,
		}},
	}
	cats, err := NewCategories()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, report, cats, date.New(2024, time.February, 10)))

	want := `V042
Acostbasis
D02/10/2024
^
TD
N673
C1
L1
P2 ACME
DVARIOUS
D03/01/2023
$0.00
$60.00
^
TD
N321
C1
L1
P10 ACME
D01/05/2023
D03/01/2023
$250.50
$300.00
^
TD
N323
C1
L1
P1.5 ACME
DVARIOUS
D03/01/2023
$12.00
$45.00
^
`
	assert.Equal(t, want, buf.String())
}
