package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/lumenbank/transfers/internal/domain/account"
)

func NewTestAccount(userID string, balanceCents int64, currency string) *account.Account {
	now := time.Now()
	return &account.Account{
		ID:          uuid.New(),
		UserID:      userID,
		Number:      "ACC-" + uuid.New().String()[:8],
		DisplayName: "Test Checking",
		Type:        account.TypeChecking,
		Balance:     balanceCents,
		Currency:    currency,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func NewInactiveAccount(userID string, balanceCents int64, currency string) *account.Account {
	a := NewTestAccount(userID, balanceCents, currency)
	a.Active = false
	return a
}
