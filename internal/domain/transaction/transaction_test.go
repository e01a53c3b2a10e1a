package transaction_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/lumenbank/transfers/internal/domain/errors"
	"github.com/lumenbank/transfers/internal/domain/transaction"
)

func TestNew_Success(t *testing.T) {
	tx, err := transaction.New(uuid.New(), "user-1", transaction.Debit, transaction.CategoryTransfer, 120_00, "USD", "lunch")
	require.NoError(t, err)

	assert.Equal(t, transaction.StatusCompleted, tx.Status)
	assert.Equal(t, int64(120_00), tx.Amount)
}

func TestNew_Validation(t *testing.T) {
	accountID := uuid.New()

	_, err := transaction.New(accountID, "user-1", transaction.Debit, transaction.CategoryTransfer, 0, "USD", "")
	assert.Error(t, err, "zero amount")

	_, err = transaction.New(accountID, "user-1", transaction.Debit, transaction.CategoryTransfer, -5, "USD", "")
	assert.Error(t, err, "negative amount")

	_, err = transaction.New(accountID, "user-1", transaction.Debit, transaction.CategoryTransfer, 100, "US", "")
	assert.Error(t, err, "bad currency")

	_, err = transaction.New(accountID, "user-1", transaction.Direction("sideways"), transaction.CategoryTransfer, 100, "USD", "")
	assert.Error(t, err, "bad direction")
}

func TestSignedAmount(t *testing.T) {
	debit := &transaction.Transaction{Direction: transaction.Debit, Amount: 100}
	credit := &transaction.Transaction{Direction: transaction.Credit, Amount: 100}

	assert.Equal(t, int64(-100), debit.SignedAmount())
	assert.Equal(t, int64(100), credit.SignedAmount())
}

func TestTransitionTo(t *testing.T) {
	tx := &transaction.Transaction{Status: transaction.StatusPending}

	require.NoError(t, tx.TransitionTo(transaction.StatusProcessing))
	require.NoError(t, tx.TransitionTo(transaction.StatusCompleted))

	// Completed is terminal.
	err := tx.TransitionTo(transaction.StatusFailed)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidStateTransition)
	assert.Equal(t, transaction.StatusCompleted, tx.Status)
}

func TestCanTransitionTo_Terminal(t *testing.T) {
	for _, s := range []transaction.Status{transaction.StatusCompleted, transaction.StatusFailed, transaction.StatusCancelled} {
		tx := &transaction.Transaction{Status: s}
		for _, next := range []transaction.Status{transaction.StatusPending, transaction.StatusProcessing, transaction.StatusCompleted, transaction.StatusFailed, transaction.StatusCancelled} {
			assert.False(t, tx.CanTransitionTo(next), "%s -> %s", s, next)
		}
	}
}
