package ledger

import "context"

// BalanceRepository defines the interface for aggregate balance persistence
type BalanceRepository interface {
	// Find returns the balance for (group, code)
	Find(ctx context.Context, group, code string) (*Balance, error)

	// AddDelta adds b.Saldo to the stored balance, inserting the row when absent.
	// Description and timestamp are always overwritten.
	AddDelta(ctx context.Context, b Balance) error

	// Put stores the balance with an absolute value
	Put(ctx context.Context, b Balance) error

	// Delete removes the balance for (group, code)
	Delete(ctx context.Context, group, code string) error

	// DeleteZero removes the balance for (group, code) if it is exactly zero
	DeleteZero(ctx context.Context, group, code string) error

	// DeleteGroup removes every balance of a group
	DeleteGroup(ctx context.Context, group string) error

	// DeleteAll removes every balance
	DeleteAll(ctx context.Context) error

	// ListNonZero returns nonzero balances of a group, largest magnitude first
	ListNonZero(ctx context.Context, group string, limit int) ([]Balance, error)

	// Summarize aggregates nonzero balances per group
	Summarize(ctx context.Context) ([]GroupSummary, error)
}

// MovementRepository defines the interface for ledger movement persistence
type MovementRepository interface {
	// Append inserts a movement and sets its ID
	Append(ctx context.Context, m *Movement) error

	// ListByKey returns movements for (group, code), newest first
	ListByKey(ctx context.Context, group, code string, limit int) ([]Movement, error)

	// Nets sums movement deltas grouped by (group, code)
	Nets(ctx context.Context) ([]CodeNet, error)

	// NetsByNote sums the deltas of a note's movements grouped by (group, code)
	NetsByNote(ctx context.Context, noteID int64) ([]CodeNet, error)

	// Net returns the summed delta for (group, code)
	Net(ctx context.Context, group, code string) (int, error)

	// DeleteByNote removes the movements tied to a note
	DeleteByNote(ctx context.Context, noteID int64) error

	// DeleteGroup removes every movement of a group
	DeleteGroup(ctx context.Context, group string) error

	// DeleteAll removes every movement
	DeleteAll(ctx context.Context) error
}
