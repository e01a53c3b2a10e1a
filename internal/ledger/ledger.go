package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Typed failures returned by any Service implementation. The contract is
// all-or-nothing: on any of these, no balance mutation and no transaction
// record was committed. The exception is ErrAmbiguous, where the outcome is unknown
// and the caller must re-check transaction history before resubmitting with
// a fresh idempotency key.
var (
	ErrNotFound          = errors.New("ledger: account not found")
	ErrPermissionDenied  = errors.New("ledger: permission denied")
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrInternal          = errors.New("ledger: internal error")
	ErrAmbiguous         = errors.New("ledger: outcome ambiguous, verify transaction history before retrying")
)

// TransferInput is the logical request shape of the atomic transfer
// operation. The idempotency key, when set, lets the ledger deduplicate
// retried requests without double-crediting.
type TransferInput struct {
	FromAccountID  uuid.UUID
	ToAccountID    uuid.UUID
	Amount         int64 // in cents
	Currency       string
	Description    string
	IdempotencyKey string
}

// TransferOutput is returned on success: the debit-side transaction ID and
// the post-transfer source balance.
type TransferOutput struct {
	TransactionID uuid.UUID
	FromBalance   int64 // in cents
}

// Service is the atomic transfer primitive. Implementations guarantee that
// either both balance mutations and both linked transaction records commit,
// or none do.
type Service interface {
	ProcessTransfer(ctx context.Context, in TransferInput) (*TransferOutput, error)
}
