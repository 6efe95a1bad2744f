package bulk

import (
	"context"

	"github.com/google/uuid"
)

// ImportHistoryRepository defines the interface for import history persistence
type ImportHistoryRepository interface {
	// FindByID finds an import history by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ImportHistory, error)

	// ListRecent returns the newest import histories, optionally filtered by kind
	ListRecent(ctx context.Context, kind *ImportKind, limit int) ([]*ImportHistory, error)

	// Save saves an import history (create or update)
	Save(ctx context.Context, history *ImportHistory) error
}
