// Package normalize converts raw extracted tokens into typed values.
// Every function here is total: a token that cannot be normalized yields
// nil, never an error.
package normalize

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/WullieT22/invoice-ocr-mvp/internal/models"
)

// currencySymbols lists the symbols stripped from amounts, in the same
// priority order used for currency detection.
const currencySymbols = "£$€"

// dateFormats is the fixed priority list for date parsing. Ambiguous
// strings (e.g. "03/04/2024") resolve to the first format that parses, so
// day-first wins over month-first. Deterministic, not locale-aware.
var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"01-02-2006",
}

// Date parses raw against the fixed format priority list and returns the
// first valid calendar date, or nil if none match.
func Date(raw string) *models.Date {
	trimmed := strings.TrimSpace(raw)
	for _, format := range dateFormats {
		if t, err := time.Parse(format, trimmed); err == nil {
			return &models.Date{Time: t}
		}
	}
	return nil
}

// Amount parses a monetary string such as "£1,234.56". Thousands
// separators and a leading currency symbol are stripped before parsing.
// Returns nil on parse failure.
func Amount(raw string) *decimal.Decimal {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	cleaned = strings.TrimSpace(strings.TrimLeft(cleaned, currencySymbols))
	if cleaned == "" {
		return nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil
	}
	return &d
}

// DetectCurrency returns the currency implied by the first matching symbol
// anywhere in the text, checked in fixed priority order GBP, USD, EUR.
// Returns the empty Currency when no symbol is present.
func DetectCurrency(text string) models.Currency {
	switch {
	case strings.Contains(text, "£"):
		return models.CurrencyGBP
	case strings.Contains(text, "$"):
		return models.CurrencyUSD
	case strings.Contains(text, "€"):
		return models.CurrencyEUR
	default:
		return ""
	}
}
