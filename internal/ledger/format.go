package ledger

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatValue renders an exact decimal with at least one fractional digit,
// e.g. 5 -> "5.0", 0.001 -> "0.001".
func FormatValue(v decimal.Decimal) string {
	s := v.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func formatAmount(a *Amount) (value, currency string) {
	if a == nil {
		return "", ""
	}
	return FormatValue(a.Value), a.Currency
}
