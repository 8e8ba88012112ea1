// Package merge reconciles two extraction results into one record.
package merge

import (
	"github.com/WullieT22/invoice-ocr-mvp/internal/models"
)

// Records combines a higher-trust primary record (typically from the LLM
// adapter) with the pattern extractor's fallback record. The result starts
// as a copy of fallback; every present primary field overwrites it. An
// empty primary line-item list means "no information", not "zero items",
// so it never clobbers the fallback's items. Confidence is recomputed for
// the merged record, never inherited from either source.
func Records(primary, fallback *models.InvoiceRecord) *models.InvoiceRecord {
	if fallback == nil {
		fallback = &models.InvoiceRecord{}
	}
	merged := *fallback
	merged.LineItems = append([]models.LineItem(nil), fallback.LineItems...)

	if primary != nil {
		if hasString(primary.InvoiceNumber) {
			merged.InvoiceNumber = primary.InvoiceNumber
		}
		if hasString(primary.PONumber) {
			merged.PONumber = primary.PONumber
		}
		if hasString(primary.VendorName) {
			merged.VendorName = primary.VendorName
		}
		if primary.InvoiceDate != nil {
			merged.InvoiceDate = primary.InvoiceDate
		}
		if primary.DueDate != nil {
			merged.DueDate = primary.DueDate
		}
		if primary.Subtotal != nil {
			merged.Subtotal = primary.Subtotal
		}
		if primary.Tax != nil {
			merged.Tax = primary.Tax
		}
		if primary.Total != nil {
			merged.Total = primary.Total
		}
		if primary.Currency != "" {
			merged.Currency = primary.Currency
		}
		if len(primary.LineItems) > 0 {
			merged.LineItems = append([]models.LineItem(nil), primary.LineItems...)
		}
	}

	merged.ExtractionConfidence = merged.KeyFieldConfidence()
	return &merged
}

func hasString(s *string) bool {
	return s != nil && *s != ""
}
