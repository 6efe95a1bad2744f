package receiving

import (
	"context"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/receiving"
)

// TransactionScope provides transactional access to delivery note repositories.
// A listing import merges every label of the call inside one Execute call.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to delivery note repositories within a transaction.
// Lines are child entities of the note but have their own storage for counting updates.
type TransactionalRepositories interface {
	// NoteRepo returns the delivery note repository scoped to the current transaction
	NoteRepo() receiving.DeliveryNoteRepository
	// LineRepo returns the delivery line repository scoped to the current transaction
	LineRepo() receiving.DeliveryLineRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing with repository mocks.
type NoOpTransactionScope struct {
	noteRepo receiving.DeliveryNoteRepository
	lineRepo receiving.DeliveryLineRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(noteRepo receiving.DeliveryNoteRepository, lineRepo receiving.DeliveryLineRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{noteRepo: noteRepo, lineRepo: lineRepo}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// NoteRepo returns the delivery note repository
func (s *NoOpTransactionScope) NoteRepo() receiving.DeliveryNoteRepository {
	return s.noteRepo
}

// LineRepo returns the delivery line repository
func (s *NoOpTransactionScope) LineRepo() receiving.DeliveryLineRepository {
	return s.lineRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
