package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayloadWellFormed(t *testing.T) {
	record := ParsePayload(`{
		"invoice_number": "INV-42",
		"po_number": "PO-1001",
		"vendor_name": "Acme Supplies",
		"invoice_date": "2024-01-05",
		"due_date": "2024-02-05",
		"subtotal": 1041.67,
		"tax": 208.33,
		"total": 1250.00,
		"currency": "GBP",
		"line_items": [
			{"description": "Widget", "quantity": 2, "unit_price": 10.0, "amount": 20.0}
		]
	}`)

	require.NotNil(t, record)
	assert.Equal(t, "INV-42", *record.InvoiceNumber)
	assert.Equal(t, "PO-1001", *record.PONumber)
	assert.Equal(t, "2024-01-05", record.InvoiceDate.String())
	assert.Equal(t, "1250", record.Total.String())
	assert.Equal(t, "GBP", string(record.Currency))
	require.Len(t, record.LineItems, 1)
	assert.Equal(t, "Widget", record.LineItems[0].Description)
	assert.Equal(t, "2", record.LineItems[0].Quantity.String())
	assert.Equal(t, 1.0, record.ExtractionConfidence)
}

func TestParsePayloadMalformedJSON(t *testing.T) {
	assert.Nil(t, ParsePayload("not json at all"))
	assert.Nil(t, ParsePayload(""))
	assert.Nil(t, ParsePayload(`["array", "not", "object"]`))
}

func TestParsePayloadStripsMarkdownFences(t *testing.T) {
	record := ParsePayload("```json\n{\"invoice_number\": \"INV-9\"}\n```")
	require.NotNil(t, record)
	assert.Equal(t, "INV-9", *record.InvoiceNumber)
}

func TestParsePayloadDropsWrongTypes(t *testing.T) {
	record := ParsePayload(`{
		"invoice_number": 42,
		"vendor_name": ["Acme"],
		"invoice_date": "someday",
		"total": {"amount": 10},
		"currency": "BTC",
		"line_items": "none"
	}`)

	require.NotNil(t, record)
	assert.Nil(t, record.InvoiceNumber)
	assert.Nil(t, record.VendorName)
	assert.Nil(t, record.InvoiceDate)
	assert.Nil(t, record.Total)
	assert.Empty(t, record.Currency)
	assert.Empty(t, record.LineItems)
	assert.Equal(t, 0.0, record.ExtractionConfidence)
}

func TestParsePayloadAcceptsNumericStrings(t *testing.T) {
	record := ParsePayload(`{"total": "1,250.00"}`)
	require.NotNil(t, record)
	require.NotNil(t, record.Total)
	assert.Equal(t, "1250", record.Total.String())
}

func TestParsePayloadDropsMalformedLineItems(t *testing.T) {
	record := ParsePayload(`{
		"line_items": [
			{"description": "ok", "amount": 5.0},
			"not an object",
			42,
			{"description": 99, "quantity": "3"}
		]
	}`)

	require.NotNil(t, record)
	require.Len(t, record.LineItems, 2)
	assert.Equal(t, "ok", record.LineItems[0].Description)
	// Wrong-typed description drops to empty; quantity string still parses.
	assert.Equal(t, "", record.LineItems[1].Description)
	assert.Equal(t, "3", record.LineItems[1].Quantity.String())
}

type stubProvider struct {
	response string
	err      error
}

func (s stubProvider) ExtractData(context.Context, string, string) (string, error) {
	return s.response, s.err
}

func TestExtractorProviderFailure(t *testing.T) {
	e := NewExtractor(stubProvider{err: errors.New("timeout")})
	record, err := e.Extract(context.Background(), "some text")
	assert.Nil(t, record)
	assert.Error(t, err)
}

func TestExtractorMalformedResponseIsAbsence(t *testing.T) {
	e := NewExtractor(stubProvider{response: "I could not find anything"})
	record, err := e.Extract(context.Background(), "some text")
	assert.Nil(t, record)
	assert.NoError(t, err)
}
