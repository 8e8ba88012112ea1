// Package match reconciles extracted invoice records against a reference
// purchase-order store and produces a verdict.
package match

import (
	"context"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/shopspring/decimal"

	"github.com/WullieT22/invoice-ocr-mvp/internal/models"
)

// Fixed policy constants: verdicts at or above the threshold are matched;
// vendor and total scores carry equal weight.
const (
	matchThreshold = 0.70

	// unknownScore is the fixed penalty when a component cannot be
	// compared. Absence is not necessarily mismatch, so it is above zero.
	unknownScore = 0.4

	missingPOConfidence = 0.2
	unknownPOConfidence = 0.3
)

// POStore looks up a reference purchase order by its identifier.
// (nil, nil) means the PO does not exist; a non-nil error means the
// backing store itself failed.
type POStore interface {
	Lookup(ctx context.Context, poNumber string) (*models.PoRecord, error)
}

// Invoice scores the record against the PO store and returns one of three
// terminal verdicts: matched, needs_review or pending.
func Invoice(ctx context.Context, record *models.InvoiceRecord, store POStore) models.MatchVerdict {
	if record.PONumber == nil || *record.PONumber == "" {
		return models.MatchVerdict{
			Status:     models.StatusNeedsReview,
			Message:    "Missing PO number",
			Confidence: missingPOConfidence,
		}
	}

	poNumber := *record.PONumber
	po, err := store.Lookup(ctx, poNumber)
	if err != nil {
		// Store failure looks the same to the caller as an unresolved
		// identifier: it may resolve on a later attempt.
		return models.MatchVerdict{
			Status:     models.StatusPending,
			Message:    fmt.Sprintf("PO %s lookup failed, retry later", poNumber),
			Confidence: unknownPOConfidence,
		}
	}
	if po == nil {
		return models.MatchVerdict{
			Status:     models.StatusPending,
			Message:    fmt.Sprintf("PO %s not found in purchase order system", poNumber),
			Confidence: unknownPOConfidence,
		}
	}

	vendorScore := similarity(record.VendorName, po.VendorName)
	totalScore := totalScore(record.Total, po.Total)
	confidence := models.Round2((vendorScore + totalScore) / 2)

	verdict := models.MatchVerdict{
		Confidence: confidence,
		PoRecord:   po,
	}
	if confidence >= matchThreshold {
		verdict.Status = models.StatusMatched
		verdict.Message = "Matched to purchase order"
	} else {
		verdict.Status = models.StatusNeedsReview
		verdict.Message = "Possible match, verify totals/vendor"
	}
	return verdict
}

// similarity is the case-insensitive sequence-similarity ratio between the
// two vendor names, rounded to two decimals. Either name missing scores the
// fixed unknown penalty.
func similarity(left *string, right string) float64 {
	if left == nil || *left == "" || right == "" {
		return unknownScore
	}
	a := splitChars(strings.ToLower(*left))
	b := splitChars(strings.ToLower(right))
	return models.Round2(difflib.NewMatcher(a, b).Ratio())
}

// totalScore is max(0, 1 - |actual-expected|/expected), rounded to two
// decimals. An absent actual total or a zero expected total scores the
// fixed unknown penalty.
func totalScore(actual *decimal.Decimal, expected decimal.Decimal) float64 {
	if actual == nil || expected.IsZero() {
		return unknownScore
	}
	delta := actual.Sub(expected).Abs()
	score := models.Round2(1 - delta.Div(expected).InexactFloat64())
	if score < 0 {
		return 0
	}
	return score
}

func splitChars(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}
