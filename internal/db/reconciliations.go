package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Reconciliation is a persisted invoice processing result.
type Reconciliation struct {
	ID                   uuid.UUID  `json:"id"`
	InvoiceNumber        string     `json:"invoice_number,omitempty"`
	PONumber             string     `json:"po_number,omitempty"`
	VendorName           string     `json:"vendor_name,omitempty"`
	InvoiceDate          *time.Time `json:"invoice_date,omitempty"`
	DueDate              *time.Time `json:"due_date,omitempty"`
	Subtotal             float64    `json:"subtotal"`
	Tax                  float64    `json:"tax"`
	Total                float64    `json:"total"`
	Currency             string     `json:"currency,omitempty"`
	ExtractionConfidence float64    `json:"extraction_confidence"`
	MatchStatus          string     `json:"match_status"`
	MatchConfidence      float64    `json:"match_confidence"`
	MatchMessage         string     `json:"match_message,omitempty"`
	LineItemsJSON        string     `json:"line_items_json,omitempty"`
	RawTextPreview       string     `json:"raw_text_preview,omitempty"`
	ArchiveURL           string     `json:"archive_url,omitempty"`
	CreatedAt            *time.Time `json:"created_at,omitempty"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty"`
}

// SaveReconciliation inserts a processing result and returns its ID.
func SaveReconciliation(ctx context.Context, r *Reconciliation) (uuid.UUID, error) {
	if Pool == nil {
		return uuid.Nil, ErrNoDatabase
	}

	query := `
		INSERT INTO reconciliations (
			invoice_number, po_number, vendor_name, invoice_date, due_date,
			subtotal, tax, total, currency, extraction_confidence,
			match_status, match_confidence, match_message,
			line_items_json, raw_text_preview, archive_url
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`

	var id uuid.UUID
	err := Pool.QueryRow(ctx, query,
		r.InvoiceNumber, r.PONumber, r.VendorName, r.InvoiceDate, r.DueDate,
		r.Subtotal, r.Tax, r.Total, r.Currency, r.ExtractionConfidence,
		r.MatchStatus, r.MatchConfidence, r.MatchMessage,
		r.LineItemsJSON, r.RawTextPreview, r.ArchiveURL,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save reconciliation: %w", err)
	}

	return id, nil
}

// GetReconciliations returns the most recent reconciliations, newest first.
func GetReconciliations(ctx context.Context, limit int) ([]Reconciliation, error) {
	if Pool == nil {
		return nil, ErrNoDatabase
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id,
		       COALESCE(invoice_number, ''),
		       COALESCE(po_number, ''),
		       COALESCE(vendor_name, ''),
		       invoice_date, due_date,
		       COALESCE(subtotal, 0),
		       COALESCE(tax, 0),
		       COALESCE(total, 0),
		       COALESCE(currency, ''),
		       COALESCE(extraction_confidence, 0),
		       COALESCE(match_status, ''),
		       COALESCE(match_confidence, 0),
		       COALESCE(match_message, ''),
		       COALESCE(line_items_json, ''),
		       COALESCE(raw_text_preview, ''),
		       COALESCE(archive_url, ''),
		       created_at, updated_at
		FROM reconciliations
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reconciliations: %w", err)
	}
	defer rows.Close()

	var results []Reconciliation
	for rows.Next() {
		var r Reconciliation
		err := rows.Scan(
			&r.ID, &r.InvoiceNumber, &r.PONumber, &r.VendorName,
			&r.InvoiceDate, &r.DueDate,
			&r.Subtotal, &r.Tax, &r.Total, &r.Currency,
			&r.ExtractionConfidence,
			&r.MatchStatus, &r.MatchConfidence, &r.MatchMessage,
			&r.LineItemsJSON, &r.RawTextPreview, &r.ArchiveURL,
			&r.CreatedAt, &r.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reconciliation: %w", err)
		}
		results = append(results, r)
	}

	return results, rows.Err()
}

// GetReconciliationByID returns a single reconciliation or nil when absent.
func GetReconciliationByID(ctx context.Context, id uuid.UUID) (*Reconciliation, error) {
	if Pool == nil {
		return nil, ErrNoDatabase
	}

	query := `
		SELECT id,
		       COALESCE(invoice_number, ''),
		       COALESCE(po_number, ''),
		       COALESCE(vendor_name, ''),
		       invoice_date, due_date,
		       COALESCE(subtotal, 0),
		       COALESCE(tax, 0),
		       COALESCE(total, 0),
		       COALESCE(currency, ''),
		       COALESCE(extraction_confidence, 0),
		       COALESCE(match_status, ''),
		       COALESCE(match_confidence, 0),
		       COALESCE(match_message, ''),
		       COALESCE(line_items_json, ''),
		       COALESCE(raw_text_preview, ''),
		       COALESCE(archive_url, ''),
		       created_at, updated_at
		FROM reconciliations
		WHERE id = $1`

	var r Reconciliation
	err := Pool.QueryRow(ctx, query, id).Scan(
		&r.ID, &r.InvoiceNumber, &r.PONumber, &r.VendorName,
		&r.InvoiceDate, &r.DueDate,
		&r.Subtotal, &r.Tax, &r.Total, &r.Currency,
		&r.ExtractionConfidence,
		&r.MatchStatus, &r.MatchConfidence, &r.MatchMessage,
		&r.LineItemsJSON, &r.RawTextPreview, &r.ArchiveURL,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reconciliation: %w", err)
	}

	return &r, nil
}

// DeleteReconciliation removes a reconciliation. Returns false when no row matched.
func DeleteReconciliation(ctx context.Context, id uuid.UUID) (bool, error) {
	if Pool == nil {
		return false, ErrNoDatabase
	}

	tag, err := Pool.Exec(ctx, `DELETE FROM reconciliations WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete reconciliation: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// MonthlyStats aggregates reconciliation outcomes for one calendar month.
type MonthlyStats struct {
	Month       string  `json:"month"`
	Count       int     `json:"count"`
	Matched     int     `json:"matched"`
	NeedsReview int     `json:"needs_review"`
	Pending     int     `json:"pending"`
	TotalAmount float64 `json:"total_amount"`
}

// GetMonthlyStats returns per-month counts by match status plus summed totals.
func GetMonthlyStats(ctx context.Context) ([]MonthlyStats, error) {
	if Pool == nil {
		return nil, ErrNoDatabase
	}

	query := `
		SELECT TO_CHAR(DATE_TRUNC('month', created_at), 'YYYY-MM') AS month,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE match_status = 'matched'),
		       COUNT(*) FILTER (WHERE match_status = 'needs_review'),
		       COUNT(*) FILTER (WHERE match_status = 'pending'),
		       COALESCE(SUM(total), 0)
		FROM reconciliations
		GROUP BY DATE_TRUNC('month', created_at)
		ORDER BY DATE_TRUNC('month', created_at) DESC
		LIMIT 12`

	rows, err := Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	var stats []MonthlyStats
	for rows.Next() {
		var s MonthlyStats
		if err := rows.Scan(&s.Month, &s.Count, &s.Matched, &s.NeedsReview, &s.Pending, &s.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}
