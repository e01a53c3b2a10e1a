package account

import (
	"time"

	"github.com/google/uuid"
	"github.com/lumenbank/transfers/internal/domain/errors"
)

// AccountType classifies an account for display and product rules.
type AccountType string

const (
	TypeChecking   AccountType = "checking"
	TypeSavings    AccountType = "savings"
	TypeCredit     AccountType = "credit"
	TypeGoal       AccountType = "goal"
	TypeInvestment AccountType = "investment"
	TypeSpending   AccountType = "spending"
)

// Account is a customer account as seen by the transfer core. Balances are
// held in minor currency units (cents). The balance is mutated only by the
// ledger's atomic transfer operation, never directly by callers of this type.
type Account struct {
	ID          uuid.UUID
	UserID      string
	Number      string
	DisplayName string
	Type        AccountType
	Balance     int64 // in cents
	Currency    string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var validTypes = map[AccountType]bool{
	TypeChecking:   true,
	TypeSavings:    true,
	TypeCredit:     true,
	TypeGoal:       true,
	TypeInvestment: true,
	TypeSpending:   true,
}

// New validates its inputs at the boundary and returns a new active account.
// Missing or malformed fields are rejected here rather than defaulted.
func New(userID, number, displayName string, accountType AccountType, initialBalance int64, currency string) (*Account, error) {
	if userID == "" {
		return nil, errors.NewValidationError("user_id", "cannot be empty")
	}
	if number == "" {
		return nil, errors.NewValidationError("number", "cannot be empty")
	}
	if !validTypes[accountType] {
		return nil, errors.NewValidationError("type", "unknown account type")
	}
	if initialBalance < 0 {
		return nil, errors.NewValidationError("initial_balance", "cannot be negative")
	}
	if len(currency) != 3 {
		return nil, errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}

	now := time.Now()
	return &Account{
		ID:          uuid.New(),
		UserID:      userID,
		Number:      number,
		DisplayName: displayName,
		Type:        accountType,
		Balance:     initialBalance,
		Currency:    currency,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CanSettle reports whether the account may participate in a transfer.
func (a *Account) CanSettle() bool {
	return a != nil && a.Active
}

// Deactivate marks the account inactive. Inactive accounts cannot be the
// source or destination of a transfer.
func (a *Account) Deactivate() {
	a.Active = false
	a.UpdatedAt = time.Now()
}

// Activate marks the account active.
func (a *Account) Activate() {
	a.Active = true
	a.UpdatedAt = time.Now()
}
