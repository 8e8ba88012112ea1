package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/WullieT22/invoice-ocr-mvp/internal/models"
)

// POStore looks up purchase orders in Postgres. It satisfies match.POStore.
type POStore struct{}

// Lookup returns the purchase order for poNumber, or (nil, nil) when it
// does not exist.
func (POStore) Lookup(ctx context.Context, poNumber string) (*models.PoRecord, error) {
	if Pool == nil {
		return nil, ErrNoDatabase
	}

	query := `
		SELECT COALESCE(vendor_name, ''), COALESCE(total, 0)
		FROM purchase_orders
		WHERE po_number = $1`

	var (
		vendorName string
		total      decimal.Decimal
	)
	err := Pool.QueryRow(ctx, query, poNumber).Scan(&vendorName, &total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up purchase order: %w", err)
	}

	return &models.PoRecord{VendorName: vendorName, Total: total}, nil
}
