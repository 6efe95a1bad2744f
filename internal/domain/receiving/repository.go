package receiving

import "context"

// DeliveryNoteRepository defines the interface for delivery note header persistence
type DeliveryNoteRepository interface {
	// FindByID finds a delivery note by ID
	FindByID(ctx context.Context, id int64) (*DeliveryNote, error)

	// FindByLabel finds a delivery note by its external label
	FindByLabel(ctx context.Context, label string) (*DeliveryNote, error)

	// ListActive lists non-archived notes, newest first, with line counters
	ListActive(ctx context.Context) ([]NoteOverview, error)

	// Create inserts a new note and sets its ID
	Create(ctx context.Context, note *DeliveryNote) error

	// Save updates the header fields of an existing note
	Save(ctx context.Context, note *DeliveryNote) error

	// Delete removes the note header
	Delete(ctx context.Context, id int64) error
}

// DeliveryLineRepository defines the interface for delivery line persistence
type DeliveryLineRepository interface {
	// FindByID finds a line by ID
	FindByID(ctx context.Context, id int64) (*DeliveryLine, error)

	// ListByNote returns the lines of a note in storage order
	ListByNote(ctx context.Context, noteID int64) ([]DeliveryLine, error)

	// FindByNoteAndItem finds the first line of a note that references itemID
	FindByNoteAndItem(ctx context.Context, noteID, itemID int64) (*DeliveryLine, error)

	// Create inserts a line and sets its ID
	Create(ctx context.Context, line *DeliveryLine) error

	// CreateBatch inserts several lines
	CreateBatch(ctx context.Context, lines []*DeliveryLine) error

	// UpdateCounted persists the counted quantity of a line
	UpdateCounted(ctx context.Context, id int64, counted int) error

	// DeleteByNote removes every line of a note
	DeleteByNote(ctx context.Context, noteID int64) error
}
