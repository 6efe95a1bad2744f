package catalog

import "context"

// ProductFilter narrows a catalog search. Non-empty conditions are OR-ed.
type ProductFilter struct {
	ItemID  int64  // exact item id, takes precedence when positive
	Digits  string // item id or barcode fragment
	Pattern string // LIKE pattern matched against the name
	Limit   int
}

// ProductRepository defines the interface for catalog persistence
type ProductRepository interface {
	// FindByItemID finds a product by its external item id
	FindByItemID(ctx context.Context, itemID int64) (*Product, error)

	// FindByBarcode finds the first product whose barcode field equals, or
	// contains as a list token, any of the candidates
	FindByBarcode(ctx context.Context, candidates []string) (*Product, error)

	// FindByBarcodePrefix returns up to limit products with a barcode
	// starting with prefix, ordered by item id
	FindByBarcodePrefix(ctx context.Context, prefix string, limit int) ([]Product, error)

	// Search returns products matching the filter, newest first; an empty filter lists the newest rows
	Search(ctx context.Context, filter ProductFilter) ([]Product, error)

	// Count returns the number of catalog rows
	Count(ctx context.Context) (int64, error)

	// DeleteAll removes every product and resets the id sequence
	DeleteAll(ctx context.Context) error

	// CreateBatch inserts products in batches of batchSize
	CreateBatch(ctx context.Context, products []Product, batchSize int) error

	// Reindex rebuilds the catalog lookup indexes
	Reindex(ctx context.Context) error
}
