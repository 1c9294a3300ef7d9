package fulfillment

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const currencySuffix = " so'm"

// FormatCurrency renders an amount as whole units grouped by thousands,
// e.g. 1234567 -> "1 234 567 so'm".
func FormatCurrency(amount decimal.Decimal) string {
	n := amount.IntPart()
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strconv.FormatInt(n, 10)

	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)

	return sign + strings.Join(groups, " ") + currencySuffix
}
