package ledger

import (
	"context"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/ledger"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/receiving"
)

// TransactionScope provides transactional access to the ledger and the notes it reads.
// Finalize, reversal, manual edits and clears each run inside one Execute call.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all ledger repositories within a transaction.
// All repositories returned share the same underlying database transaction.
//
//   - NoteRepo/LineRepo: read the lines being finalized and update or remove the note.
//   - BalanceRepo: aggregate balance per (group, code) of one book.
//   - MovementRepo: append-only movement history of one book.
type TransactionalRepositories interface {
	// NoteRepo returns the delivery note repository scoped to the current transaction
	NoteRepo() receiving.DeliveryNoteRepository
	// LineRepo returns the delivery line repository scoped to the current transaction
	LineRepo() receiving.DeliveryLineRepository
	// BalanceRepo returns the balance repository of book scoped to the current transaction
	BalanceRepo(book ledger.Book) ledger.BalanceRepository
	// MovementRepo returns the movement repository of book scoped to the current transaction
	MovementRepo(book ledger.Book) ledger.MovementRepository
}
