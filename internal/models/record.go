package models

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// MaxLineItems caps how many line items a single record may carry.
const MaxLineItems = 25

// Currency is an ISO-4217-like currency code. The empty value means the
// currency could not be determined.
type Currency string

const (
	CurrencyGBP Currency = "GBP"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// MatchStatus is the outcome of reconciling an invoice against a PO.
type MatchStatus string

const (
	StatusMatched     MatchStatus = "matched"
	StatusNeedsReview MatchStatus = "needs_review"
	StatusPending     MatchStatus = "pending"
)

const dateLayout = "2006-01-02"

// Date is a calendar date. It serializes as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// MarshalJSON encodes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date: %s", s)
	}
	t, err := time.Parse(dateLayout, s[1:len(s)-1])
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// InvoiceRecord is the structured result of extracting one document.
// Every field except Currency, LineItems and ExtractionConfidence is
// optional: nil means the extractor found nothing, which is distinct from
// an empty string or a zero amount.
type InvoiceRecord struct {
	InvoiceNumber *string          `json:"invoice_number"`
	PONumber      *string          `json:"po_number"`
	VendorName    *string          `json:"vendor_name"`
	InvoiceDate   *Date            `json:"invoice_date"`
	DueDate       *Date            `json:"due_date"`
	Subtotal      *decimal.Decimal `json:"subtotal"`
	Tax           *decimal.Decimal `json:"tax"`
	Total         *decimal.Decimal `json:"total"`
	Currency      Currency         `json:"currency,omitempty"`
	LineItems     []LineItem       `json:"line_items"`

	// ExtractionConfidence is the rounded fraction of the five key fields
	// (invoice number, PO number, vendor, invoice date, total) present.
	// A completeness proxy, not a correctness score.
	ExtractionConfidence float64 `json:"extraction_confidence"`
}

// LineItem is a single extracted invoice line. No cross-field arithmetic is
// enforced; quantity x unit price need not equal amount.
type LineItem struct {
	Description string           `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	Amount      *decimal.Decimal `json:"amount"`
}

// PoRecord is a reference purchase order, read-only to this service.
type PoRecord struct {
	VendorName string          `json:"vendor_name"`
	Total      decimal.Decimal `json:"total"`
}

// MatchVerdict is the result of reconciling an InvoiceRecord against the
// PO store. PoRecord is set whenever the lookup succeeded, regardless of
// status, so a reviewer can inspect it.
type MatchVerdict struct {
	Status     MatchStatus `json:"status"`
	Message    string      `json:"message"`
	Confidence float64     `json:"confidence"`
	PoRecord   *PoRecord   `json:"po_record,omitempty"`
}

// keyFields are the five fields counted by the confidence rule.
func (r *InvoiceRecord) keyFields() []bool {
	return []bool{
		r.InvoiceNumber != nil && *r.InvoiceNumber != "",
		r.PONumber != nil && *r.PONumber != "",
		r.VendorName != nil && *r.VendorName != "",
		r.InvoiceDate != nil,
		r.Total != nil,
	}
}

// KeyFieldConfidence returns the fraction of key fields present, rounded to
// two decimals. Both the pattern extractor and the merger derive the final
// record's confidence from this.
func (r *InvoiceRecord) KeyFieldConfidence() float64 {
	fields := r.keyFields()
	found := 0
	for _, present := range fields {
		if present {
			found++
		}
	}
	return Round2(float64(found) / float64(len(fields)))
}

// Round2 rounds to 2 decimal places.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}
