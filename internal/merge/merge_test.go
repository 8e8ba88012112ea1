package merge

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WullieT22/invoice-ocr-mvp/internal/models"
)

func strp(s string) *string { return &s }

func amountp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func datep(year int, month time.Month, day int) *models.Date {
	d := models.NewDate(year, month, day)
	return &d
}

func fallbackRecord() *models.InvoiceRecord {
	return &models.InvoiceRecord{
		InvoiceNumber: strp("INV-1"),
		VendorName:    strp("Acme Supplies Ltd"),
		InvoiceDate:   datep(2024, time.January, 5),
		Total:         amountp("100.00"),
		Currency:      models.CurrencyGBP,
		LineItems: []models.LineItem{
			{Description: "Widget", Quantity: amountp("2"), Amount: amountp("100.00")},
		},
		ExtractionConfidence: 0.8,
	}
}

func TestEmptyPrimaryLeavesFallbackIntact(t *testing.T) {
	fallback := fallbackRecord()
	merged := Records(&models.InvoiceRecord{}, fallback)

	assert.Equal(t, fallback.InvoiceNumber, merged.InvoiceNumber)
	assert.Equal(t, fallback.VendorName, merged.VendorName)
	assert.Equal(t, fallback.InvoiceDate, merged.InvoiceDate)
	assert.Equal(t, fallback.Total, merged.Total)
	assert.Equal(t, fallback.Currency, merged.Currency)
	assert.Equal(t, fallback.LineItems, merged.LineItems)
	// Confidence is recomputed: 4 of 5 key fields present.
	assert.Equal(t, 0.8, merged.ExtractionConfidence)
}

func TestNilPrimary(t *testing.T) {
	merged := Records(nil, fallbackRecord())
	assert.Equal(t, strp("INV-1"), merged.InvoiceNumber)
}

func TestPresentPrimaryFieldsWin(t *testing.T) {
	primary := &models.InvoiceRecord{
		InvoiceNumber: strp("INV-LLM"),
		PONumber:      strp("PO-1001"),
		Total:         amountp("1250.00"),
	}
	merged := Records(primary, fallbackRecord())

	assert.Equal(t, "INV-LLM", *merged.InvoiceNumber)
	assert.Equal(t, "PO-1001", *merged.PONumber)
	assert.Equal(t, "1250", merged.Total.String())
	// Untouched fields keep the fallback values.
	assert.Equal(t, "Acme Supplies Ltd", *merged.VendorName)
	// All 5 key fields now present.
	assert.Equal(t, 1.0, merged.ExtractionConfidence)
}

func TestEmptyPrimaryStringDoesNotOverwrite(t *testing.T) {
	primary := &models.InvoiceRecord{VendorName: strp("")}
	merged := Records(primary, fallbackRecord())
	assert.Equal(t, "Acme Supplies Ltd", *merged.VendorName)
}

func TestEmptyPrimaryLineItemsPreserveFallback(t *testing.T) {
	primary := &models.InvoiceRecord{LineItems: []models.LineItem{}}
	merged := Records(primary, fallbackRecord())
	require.Len(t, merged.LineItems, 1)
	assert.Equal(t, "Widget", merged.LineItems[0].Description)
}

func TestNonEmptyPrimaryLineItemsReplace(t *testing.T) {
	primary := &models.InvoiceRecord{
		LineItems: []models.LineItem{
			{Description: "Gadget", Amount: amountp("50.00")},
			{Description: "Gizmo", Amount: amountp("75.00")},
		},
	}
	merged := Records(primary, fallbackRecord())
	require.Len(t, merged.LineItems, 2)
	assert.Equal(t, "Gadget", merged.LineItems[0].Description)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	fallback := fallbackRecord()
	primary := &models.InvoiceRecord{
		LineItems: []models.LineItem{{Description: "Gadget"}},
	}
	merged := Records(primary, fallback)
	merged.LineItems[0].Description = "changed"

	assert.Equal(t, "Widget", fallback.LineItems[0].Description)
	assert.Equal(t, "Gadget", primary.LineItems[0].Description)
}

func TestZeroTotalIsPresent(t *testing.T) {
	// A parsed zero is a valid amount, not absence.
	primary := &models.InvoiceRecord{Total: amountp("0.00")}
	merged := Records(primary, &models.InvoiceRecord{})
	require.NotNil(t, merged.Total)
	assert.Equal(t, 0.2, merged.ExtractionConfidence)
}
