package account

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for account reads and persistence.
// Balance mutation happens exclusively inside the ledger's atomic transfer,
// so there is no Debit/Credit here.
type Repository interface {
	// Create creates a new account
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// GetByNumber retrieves an account by its account number
	GetByNumber(ctx context.Context, number string) (*Account, error)

	// ListByUser retrieves all accounts owned by a user
	ListByUser(ctx context.Context, userID string) ([]*Account, error)

	// ListActiveByUser retrieves the user's active accounts only
	ListActiveByUser(ctx context.Context, userID string) ([]*Account, error)

	// Lock locks an account row for update (SELECT FOR UPDATE)
	Lock(ctx context.Context, id uuid.UUID) (*Account, error)

	// UpdateBalance writes a new balance for a locked account row
	UpdateBalance(ctx context.Context, id uuid.UUID, newBalance int64) error
}
