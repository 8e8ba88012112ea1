package llm

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/WullieT22/invoice-ocr-mvp/internal/models"
	"github.com/WullieT22/invoice-ocr-mvp/internal/normalize"
)

// rawPayload mirrors the §6-shaped external response with untyped fields,
// so every value can be checked before it reaches the trusted record type.
type rawPayload struct {
	InvoiceNumber interface{} `json:"invoice_number"`
	PONumber      interface{} `json:"po_number"`
	VendorName    interface{} `json:"vendor_name"`
	InvoiceDate   interface{} `json:"invoice_date"`
	DueDate       interface{} `json:"due_date"`
	Subtotal      interface{} `json:"subtotal"`
	Tax           interface{} `json:"tax"`
	Total         interface{} `json:"total"`
	Currency      interface{} `json:"currency"`
	LineItems     interface{} `json:"line_items"`
}

// ParsePayload validates an untrusted external response. Malformed
// top-level JSON yields nil; individual fields of the wrong type are
// dropped to absent rather than propagated.
func ParsePayload(response string) *models.InvoiceRecord {
	cleaned := stripFences(response)

	var raw rawPayload
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil
	}

	record := &models.InvoiceRecord{
		InvoiceNumber: asString(raw.InvoiceNumber),
		PONumber:      asString(raw.PONumber),
		VendorName:    asString(raw.VendorName),
		InvoiceDate:   asDate(raw.InvoiceDate),
		DueDate:       asDate(raw.DueDate),
		Subtotal:      asAmount(raw.Subtotal),
		Tax:           asAmount(raw.Tax),
		Total:         asAmount(raw.Total),
		Currency:      asCurrency(raw.Currency),
		LineItems:     asLineItems(raw.LineItems),
	}
	record.ExtractionConfidence = record.KeyFieldConfidence()
	return record
}

func asString(v interface{}) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// asAmount accepts JSON numbers and numeric strings (commas tolerated);
// anything else is absent.
func asAmount(v interface{}) *decimal.Decimal {
	switch val := v.(type) {
	case float64:
		d := decimal.NewFromFloat(val)
		return &d
	case string:
		return normalize.Amount(val)
	default:
		return nil
	}
}

func asDate(v interface{}) *models.Date {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return normalize.Date(s)
}

func asCurrency(v interface{}) models.Currency {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	switch models.Currency(strings.ToUpper(strings.TrimSpace(s))) {
	case models.CurrencyGBP:
		return models.CurrencyGBP
	case models.CurrencyUSD:
		return models.CurrencyUSD
	case models.CurrencyEUR:
		return models.CurrencyEUR
	default:
		return ""
	}
}

// asLineItems keeps only well-formed object entries, up to the record cap.
func asLineItems(v interface{}) []models.LineItem {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var items []models.LineItem
	for _, entry := range list {
		obj, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		item := models.LineItem{
			Quantity:  asAmount(obj["quantity"]),
			UnitPrice: asAmount(obj["unit_price"]),
			Amount:    asAmount(obj["amount"]),
		}
		if desc := asString(obj["description"]); desc != nil {
			item.Description = *desc
		}
		items = append(items, item)
		if len(items) >= models.MaxLineItems {
			break
		}
	}
	return items
}
