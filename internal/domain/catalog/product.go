package catalog

import (
	"strconv"
	"strings"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
)

// Product is a catalog entry identified by the external item id.
// Products are only written by a catalog import, which replaces them wholesale.
type Product struct {
	ID     int64
	ItemID int64
	Name   string
	EAN    string // one or more normalized barcodes, comma separated
}

// NewProduct creates a product from a raw catalog row.
// The barcode field is normalized; a row without any usable barcode is rejected.
func NewProduct(itemID int64, name, rawEAN string) (*Product, error) {
	if itemID <= 0 {
		return nil, shared.NewValidationError("Item id must be positive")
	}
	ean := NormalizeBarcodeField(rawEAN)
	if ean == "" {
		return nil, shared.NewValidationError("Barcode is empty")
	}
	return &Product{
		ItemID: itemID,
		Name:   strings.TrimSpace(name),
		EAN:    ean,
	}, nil
}

// Barcodes returns the individual barcodes of the product
func (p *Product) Barcodes() []string {
	return SplitBarcodes(p.EAN)
}

// HasBarcode reports whether any barcode token equals code
func (p *Product) HasBarcode(code string) bool {
	for _, b := range p.Barcodes() {
		if Digits(b) == code {
			return true
		}
	}
	return false
}

// MatchesVariableWeight reports whether the product carries a variable-weight
// barcode (leading 2, at least 13 digits) beginning with prefix
func (p *Product) MatchesVariableWeight(prefix string) bool {
	for _, b := range p.Barcodes() {
		d := Digits(b)
		if IsVariableWeight(d) && strings.HasPrefix(d, prefix) {
			return true
		}
	}
	return false
}

// DisplayName returns the product name, or a placeholder built from the item id
func (p *Product) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return "ITEM " + strconv.FormatInt(p.ItemID, 10)
}
