package transaction

import (
	"time"

	"github.com/google/uuid"
	"github.com/lumenbank/transfers/internal/domain/errors"
)

// Direction indicates which side of a transfer a record sits on.
type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

// Category classifies the business operation that produced the record.
type Category string

const (
	CategoryTransfer         Category = "transfer"
	CategoryBillPayment      Category = "bill_payment"
	CategoryDeposit          Category = "deposit"
	CategoryGoalContribution Category = "goal_contribution"
	CategoryRefund           Category = "refund"
)

// Status represents the transaction status in the state machine.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Transaction is an immutable ledger record. The ledger creates exactly two
// linked records per completed transfer: a debit on the source account and a
// credit on the destination, sharing a TransferID and amount. Only the status
// may change after creation.
type Transaction struct {
	ID                 uuid.UUID
	AccountID          uuid.UUID
	UserID             string
	TransferID         *uuid.UUID
	Direction          Direction
	Category           Category
	Amount             int64 // in cents, always positive; Direction carries the sign
	Currency           string
	Description        string
	CounterpartyName   string
	CounterpartyNumber string
	Status             Status
	BalanceAfter       int64 // in cents, source-of-truth snapshot at commit time
	CreatedAt          time.Time
}

// New validates inputs and returns a completed transaction record.
func New(accountID uuid.UUID, userID string, direction Direction, category Category, amount int64, currency, description string) (*Transaction, error) {
	if amount <= 0 {
		return nil, errors.NewValidationError("amount", "must be greater than 0")
	}
	if len(currency) != 3 {
		return nil, errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	if direction != Debit && direction != Credit {
		return nil, errors.NewValidationError("direction", "must be debit or credit")
	}

	return &Transaction{
		ID:          uuid.New(),
		AccountID:   accountID,
		UserID:      userID,
		Direction:   direction,
		Category:    category,
		Amount:      amount,
		Currency:    currency,
		Description: description,
		Status:      StatusCompleted,
		CreatedAt:   time.Now(),
	}, nil
}

// CanTransitionTo checks if the transaction can transition to the given status.
func (t *Transaction) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusPending: {
			StatusProcessing,
			StatusCompleted,
			StatusCancelled,
		},
		StatusProcessing: {
			StatusCompleted,
			StatusFailed,
		},
		StatusCompleted: {}, // terminal; disputes are handled outside this core
		StatusFailed:    {},
		StatusCancelled: {},
	}

	allowed, exists := transitions[t.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo transitions the transaction to a new status.
func (t *Transaction) TransitionTo(newStatus Status) error {
	if !t.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(t.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}
	t.Status = newStatus
	return nil
}

// SignedAmount returns the balance effect of the record: negative for debits,
// positive for credits.
func (t *Transaction) SignedAmount() int64 {
	if t.Direction == Debit {
		return -t.Amount
	}
	return t.Amount
}
