package core

import (
	"strconv"
	"strings"
)

// CurrencyPrefix is prepended when formatting amounts.
const CurrencyPrefix = "Ksh"

// FormatAmount renders minor units the way notifications print them.
func FormatAmount(minor int64) string {
	neg := minor < 0
	if neg {
		minor = -minor
	}
	whole := strconv.FormatInt(minor/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	frac := strconv.FormatInt(minor%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	out := CurrencyPrefix + b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}
