package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for transaction reads and persistence.
type Repository interface {
	// Create inserts a transaction record
	Create(ctx context.Context, tx *Transaction) error

	// GetByID retrieves a transaction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// ListByAccount retrieves transactions for an account, newest first
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Transaction, error)

	// RecentDebitTotal sums completed debit amounts on the account since the
	// given time. Used by the rolling daily-limit check.
	RecentDebitTotal(ctx context.Context, accountID uuid.UUID, since time.Time) (int64, error)
}
