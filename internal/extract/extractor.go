// Package extract implements the deterministic pattern-based invoice
// extractor. Extraction is a total function over raw text: fields that
// cannot be located or normalized are left absent, never errored.
package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/WullieT22/invoice-ocr-mvp/internal/models"
	"github.com/WullieT22/invoice-ocr-mvp/internal/normalize"
)

// Identifier rules are ordered by priority: the first pattern that matches
// anywhere in the text wins.
var invoiceNumberRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Invoice\s*(?:No|#|Number)\s*[:\s]*([A-Z0-9-]+)`),
	regexp.MustCompile(`(?i)Inv\s*#\s*([A-Z0-9-]+)`),
}

var poNumberRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)PO\s*(?:No|#|Number)?\s*[:\s]*([A-Z0-9-]+)`),
	regexp.MustCompile(`(?i)Purchase\s*Order\s*(?:No|#|Number)?\s*[:\s]*([A-Z0-9-]+)`),
}

var vendorRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Vendor\s*[:\s]+(.+)`),
	regexp.MustCompile(`(?i)From\s*[:\s]+(.+)`),
	regexp.MustCompile(`(?i)Supplier\s*[:\s]+(.+)`),
}

// Raw date-shaped tokens, tried in order when no labeled date parses:
// ISO, slash, dash.
var dateTokenRules = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`),
	regexp.MustCompile(`(\d{2}/\d{2}/\d{4})`),
	regexp.MustCompile(`(\d{2}-\d{2}-\d{4})`),
}

var (
	invoiceDateLabel = regexp.MustCompile(`(?i)invoice\s*date\s*[:\s]*([\w/-]+)`)
	dueDateLabel     = regexp.MustCompile(`(?i)due\s*date\s*[:\s]*([\w/-]+)`)
)

const amountToken = `([£$€]?\s*\d[\d,]*\.\d{2})`

// Labeled amounts use last-match-wins: documents restate totals near the
// bottom, so the final occurrence is the authoritative one. This is a
// deliberate inversion of the first-match-wins identifier policy.
var (
	subtotalLabel = regexp.MustCompile(`(?i)(?:subtotal)\s*[:\s]*` + amountToken)
	taxLabel      = regexp.MustCompile(`(?i)(?:tax)\s*[:\s]*` + amountToken)
	totalLabel    = regexp.MustCompile(`(?i)(?:total|amount\s*due|balance\s*due)\s*[:\s]*` + amountToken)
)

// lineItemPattern matches a full line shaped as
// "description  qty  unit-price  amount". Anchored: no partial matches.
var lineItemPattern = regexp.MustCompile(
	`^(?P<description>.+?)\s+(?P<qty>\d+(?:\.\d+)?)\s+(?P<unit>[£$€]?\s*\d[\d,]*\.\d{2})\s+(?P<amount>[£$€]?\s*\d[\d,]*\.\d{2})$`,
)

const maxVendorLen = 120

// Extract locates invoice metadata and line items in raw text and returns a
// fully-formed record with a completeness-based confidence score.
func Extract(text string) *models.InvoiceRecord {
	record := &models.InvoiceRecord{
		InvoiceNumber: firstMatch(invoiceNumberRules, text),
		PONumber:      firstMatch(poNumberRules, text),
		VendorName:    extractVendor(text),
		InvoiceDate:   extractDate(invoiceDateLabel, text),
		DueDate:       extractDate(dueDateLabel, text),
		Subtotal:      lastAmount(subtotalLabel, text),
		Tax:           lastAmount(taxLabel, text),
		Total:         lastAmount(totalLabel, text),
		Currency:      normalize.DetectCurrency(text),
		LineItems:     extractLineItems(text),
	}
	record.ExtractionConfidence = record.KeyFieldConfidence()
	return record
}

// firstMatch returns the first captured group from the first rule that
// matches anywhere in the text.
func firstMatch(rules []*regexp.Regexp, text string) *string {
	for _, rule := range rules {
		if m := rule.FindStringSubmatch(text); m != nil {
			value := strings.TrimSpace(m[1])
			return &value
		}
	}
	return nil
}

// lastAmount returns the normalized amount of the final label match, or nil
// when the label never appears or its final amount fails to parse.
func lastAmount(rule *regexp.Regexp, text string) *decimal.Decimal {
	matches := rule.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	return normalize.Amount(matches[len(matches)-1][1])
}

// extractVendor tries the labeled vendor rules, then falls back to the
// first non-blank line. The fallback keeps the field populated at the cost
// of being wrong when the first line is a document heading.
func extractVendor(text string) *string {
	if vendor := firstMatch(vendorRules, text); vendor != nil {
		return vendor
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if runes := []rune(line); len(runes) > maxVendorLen {
			line = string(runes[:maxVendorLen])
		}
		return &line
	}
	return nil
}

// extractDate looks for the labeled date first; if the label is absent or
// its token does not normalize, it scans the whole text for the first
// date-shaped token of each raw pattern in priority order.
func extractDate(label *regexp.Regexp, text string) *models.Date {
	if m := label.FindStringSubmatch(text); m != nil {
		if d := normalize.Date(m[1]); d != nil {
			return d
		}
	}
	for _, rule := range dateTokenRules {
		if m := rule.FindStringSubmatch(text); m != nil {
			if d := normalize.Date(m[1]); d != nil {
				return d
			}
		}
	}
	return nil
}

// extractLineItems scans line-by-line and accepts at most MaxLineItems
// fully-shaped rows.
func extractLineItems(text string) []models.LineItem {
	var items []models.LineItem
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := lineItemPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		items = append(items, models.LineItem{
			Description: strings.TrimSpace(m[1]),
			Quantity:    normalize.Amount(m[2]),
			UnitPrice:   normalize.Amount(m[3]),
			Amount:      normalize.Amount(m[4]),
		})
		if len(items) >= models.MaxLineItems {
			break
		}
	}
	return items
}
