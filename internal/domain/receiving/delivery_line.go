package receiving

import (
	"strconv"
	"strings"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/catalog"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
)

// DeliveryLine is one expected product entry of a delivery note
type DeliveryLine struct {
	ID          int64
	NoteID      int64
	ItemID      *int64 // nil when the code is not numeric
	Code        string
	Description string
	Expected    int
	Counted     int
	Shortage    int // legacy column, superseded by Delta at finalize time
}

// NewImportedLine builds a line from a listing row.
// Rows with an empty code, an empty description or a non-positive quantity are rejected.
func NewImportedLine(noteID int64, code, description string, expected, shortage int) (*DeliveryLine, error) {
	code = strings.TrimSpace(code)
	description = strings.TrimSpace(description)
	if code == "" {
		return nil, shared.NewValidationError("Line code cannot be empty")
	}
	if description == "" {
		return nil, shared.NewValidationError("Line description cannot be empty")
	}
	if expected <= 0 {
		return nil, shared.NewValidationError("Expected quantity must be positive")
	}
	return &DeliveryLine{
		NoteID:      noteID,
		ItemID:      ItemIDFromCode(code),
		Code:        code,
		Description: description,
		Expected:    expected,
		Shortage:    shortage,
	}, nil
}

// NewExtraLine builds a line for a product counted but not listed on the note
func NewExtraLine(noteID int64, product *catalog.Product) *DeliveryLine {
	itemID := product.ItemID
	return &DeliveryLine{
		NoteID:      noteID,
		ItemID:      &itemID,
		Code:        strconv.FormatInt(product.ItemID, 10),
		Description: product.DisplayName(),
	}
}

// ItemIDFromCode derives the catalog item id from a line code; zero yields nil
func ItemIDFromCode(code string) *int64 {
	n := int64(ParseQuantity(code))
	if n <= 0 {
		return nil
	}
	return &n
}

// Delta returns counted minus expected (negative = shortage, positive = overage)
func (l *DeliveryLine) Delta() int {
	return l.Counted - l.Expected
}

// IsExtra reports whether the line was not on the original listing
func (l *DeliveryLine) IsExtra() bool {
	return l.Expected == 0
}

// IsComplete reports whether the counted quantity matches the expected one
func (l *DeliveryLine) IsComplete() bool {
	return l.Counted == l.Expected
}

// Increment adds delta to the counted quantity; the result may not go below zero
func (l *DeliveryLine) Increment(delta int) error {
	return l.SetCounted(l.Counted + delta)
}

// SetCounted replaces the counted quantity; negative values are rejected
func (l *DeliveryLine) SetCounted(value int) error {
	if value < 0 {
		return shared.NewValidationError("Counted quantity cannot be negative")
	}
	l.Counted = value
	return nil
}
