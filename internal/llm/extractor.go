// Package llm is the boundary adapter for an external text-understanding
// extraction service. The adapter sends truncated raw text out and
// validates the untrusted payload that comes back: a malformed or
// ill-typed payload can only narrow the resulting record, never corrupt
// it. Callers treat a nil record as "no external contribution" and proceed
// with the pattern extractor's output alone.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/WullieT22/invoice-ocr-mvp/internal/models"
)

// maxPromptChars bounds how much raw text is forwarded to the provider.
const maxPromptChars = 12000

const systemPrompt = "You extract invoice fields from OCR text. " +
	"Return a JSON object only, with keys: invoice_number, po_number, vendor_name, " +
	"invoice_date (YYYY-MM-DD), due_date (YYYY-MM-DD), subtotal, tax, total, currency (ISO), " +
	"line_items (array of objects with description, quantity, unit_price, amount). " +
	"Use null for unknowns and numbers for monetary fields."

// Extractor drives one Provider to produce a candidate invoice record.
type Extractor struct {
	provider Provider
}

// NewExtractor creates an extractor over the given provider.
func NewExtractor(provider Provider) *Extractor {
	return &Extractor{provider: provider}
}

// Extract forwards the raw text to the provider and returns the validated
// record. A provider failure returns an error; a response that is not
// valid JSON returns (nil, nil). In both cases the caller proceeds
// fallback-only.
func (e *Extractor) Extract(ctx context.Context, text string) (*models.InvoiceRecord, error) {
	truncated := text
	if len(truncated) > maxPromptChars {
		truncated = truncated[:maxPromptChars]
	}
	userPrompt := fmt.Sprintf("Extract invoice fields from this OCR text:\n\n%s", truncated)

	response, err := e.provider.ExtractData(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("external extraction failed: %w", err)
	}
	return ParsePayload(response), nil
}

// stripFences removes markdown code fences some providers wrap around JSON.
func stripFences(response string) string {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}
