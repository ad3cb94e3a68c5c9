package chain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Unit describes how base units of a denomination map to the display currency.
type Unit struct {
	Denom    string // base denomination, e.g. "ncheq"
	Symbol   string // display currency, e.g. "CHEQ"
	Exponent int32  // number of base units per display unit, as a power of ten
}

// CHEQ is the native unit of the cheqd network: 1 CHEQ = 10^9 ncheq.
var CHEQ = Unit{Denom: "ncheq", Symbol: "CHEQ", Exponent: 9}

// ToDisplay converts an amount in base units to display units exactly.
func (u Unit) ToDisplay(base decimal.Decimal) decimal.Decimal {
	return base.Shift(-u.Exponent)
}

// Matches reports whether denom is this unit's base denomination. An empty
// denomination is assumed native.
func (u Unit) Matches(denom string) bool {
	return denom == "" || denom == u.Denom
}

// Value parses the coin amount when it is in this unit. It reports false for
// foreign denominations and for amounts that are not decimal integers.
func (u Unit) Value(c Coin) (decimal.Decimal, bool) {
	if !u.Matches(c.Denom) {
		return decimal.Zero, false
	}
	return parseBaseAmount(c.Amount)
}

// ParseCoins parses an event attribute value such as "1500ncheq" or
// "10uatom,1500ncheq". Entries that do not parse are skipped.
func ParseCoins(s string) []Coin {
	var coins []Coin
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		i := 0
		for i < len(part) && part[i] >= '0' && part[i] <= '9' {
			i++
		}
		if i == 0 || i == len(part) {
			continue
		}
		coins = append(coins, Coin{Amount: part[:i], Denom: part[i:]})
	}
	return coins
}

// SumDenom parses an attribute value and returns the total of the coins in
// the given denomination.
func SumDenom(s, denom string) (decimal.Decimal, bool) {
	total, found := decimal.Zero, false
	for _, c := range ParseCoins(s) {
		if c.Denom != denom {
			continue
		}
		v, ok := parseBaseAmount(c.Amount)
		if !ok {
			continue
		}
		total = total.Add(v)
		found = true
	}
	return total, found
}

func parseBaseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(s)
	if err != nil || v.IsNegative() {
		return decimal.Zero, false
	}
	return v, true
}
