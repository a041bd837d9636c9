// Package validation holds the request-level checks applied before any
// state access.
package validation

// MaxDescriptionLength bounds the free-text description on records.
const MaxDescriptionLength = 255

// SupportedCurrencies is the closed set of accepted currency codes. There is
// no conversion between them; every balance is tracked independently.
var SupportedCurrencies = []string{"USD", "EUR", "BTC", "ETH"}

func IsSupportedCurrency(code string) bool {
	for _, c := range SupportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}
