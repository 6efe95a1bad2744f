package migration

import (
	"fmt"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
)

// SchemaMigrationError reports the migration that could not be applied.
// Its transaction was rolled back; earlier versions stay applied.
type SchemaMigrationError struct {
	Version int
	Name    string
	Err     error
}

// Error implements the error interface
func (e *SchemaMigrationError) Error() string {
	return fmt.Sprintf("schema migration %03d_%s failed: %v", e.Version, e.Name, e.Err)
}

// Unwrap returns the underlying failure
func (e *SchemaMigrationError) Unwrap() error {
	return e.Err
}

// Is makes SchemaMigrationError match shared.ErrSchemaMigration
func (e *SchemaMigrationError) Is(target error) bool {
	return target == shared.ErrSchemaMigration
}
