package match

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/WullieT22/invoice-ocr-mvp/internal/models"
)

// StaticStore is a fixed in-memory PO table. It backs the service when no
// database is configured and the tests; a real deployment substitutes a
// database-backed POStore without touching matcher logic.
type StaticStore struct {
	records map[string]models.PoRecord
}

// NewStaticStore builds a store over a copy of the given table.
func NewStaticStore(records map[string]models.PoRecord) *StaticStore {
	copied := make(map[string]models.PoRecord, len(records))
	for k, v := range records {
		copied[k] = v
	}
	return &StaticStore{records: copied}
}

// NewSeededStore returns a StaticStore preloaded with the demo reference
// purchase orders.
func NewSeededStore() *StaticStore {
	return NewStaticStore(map[string]models.PoRecord{
		"PO-1001":  {VendorName: "Acme Supplies", Total: decimal.NewFromFloat(1250.00)},
		"45001234": {VendorName: "Contoso Manufacturing", Total: decimal.NewFromFloat(489.50)},
		"PO-7788":  {VendorName: "Northwind Traders", Total: decimal.NewFromFloat(1049.99)},
	})
}

// Lookup implements POStore. It never fails.
func (s *StaticStore) Lookup(_ context.Context, poNumber string) (*models.PoRecord, error) {
	po, ok := s.records[poNumber]
	if !ok {
		return nil, nil
	}
	return &po, nil
}
