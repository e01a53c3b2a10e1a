package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lumenbank/transfers/internal/domain/account"
	"github.com/lumenbank/transfers/internal/domain/transaction"
)

// Recipient is the raw directory entry for a human-entered identifier,
// before a destination account has been chosen.
type Recipient struct {
	UserID            string
	DisplayName       string
	ContactIdentifier string
}

// RecipientDirectory resolves a free-text identifier (username, email or
// phone) to a recipient. Returns errors.ErrRecipientNotFound when no user
// matches.
type RecipientDirectory interface {
	FindByIdentifier(ctx context.Context, identifier string) (*Recipient, error)
}

// AccountSource provides authoritative account reads.
type AccountSource interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error)
	ListActiveAccounts(ctx context.Context, userID string) ([]*account.Account, error)
}

// HistorySource provides the recent-debit view used by the rolling
// daily-limit check. Implementations may lag the ledger; staleness within
// the window is tolerated by the documented approximation.
type HistorySource interface {
	RecentDebitTotal(ctx context.Context, accountID uuid.UUID, window time.Duration) (int64, error)
}

// MirrorWriter appends a completed transaction to the local mirror. Writes
// are best effort: the authoritative record already lives in the ledger.
type MirrorWriter interface {
	AppendTransaction(ctx context.Context, tx *transaction.Transaction) error
}
