package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CURRENCY_CODES_SYMBOLS is a map of 3 digit ISO currency codes to their symbols
var CURRENCY_CODES_SYMBOLS = map[string]string{
	"brl": "R$",
	"usd": "$",
	"eur": "€",
	"gbp": "£",
	"ars": "AR$",
	"clp": "CLP$",
	"mxn": "MX$",
}

const DefaultCurrency = "brl"

// GetCurrencySymbol returns the symbol for a given currency code
// if the code is not found, it returns the code itself
func GetCurrencySymbol(code string) string {
	if symbol, ok := CURRENCY_CODES_SYMBOLS[strings.ToLower(code)]; ok {
		return symbol
	}
	return strings.ToUpper(code)
}

// FormatCurrency renders an amount for notification messages, e.g. "R$ 1.234,56".
// Real and euro amounts use the comma decimal mark; others use the dot.
func FormatCurrency(amount decimal.Decimal, code string) string {
	code = strings.ToLower(code)
	if code == "" {
		code = DefaultCurrency
	}

	thousands, decimalMark := ",", "."
	if code == "brl" || code == "eur" {
		thousands, decimalMark = ".", ","
	}

	fixed := amount.Abs().StringFixed(2)
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteString(thousands)
		}
		grouped.WriteRune(r)
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}

	return sign + GetCurrencySymbol(code) + " " + grouped.String() + decimalMark + fracPart
}
