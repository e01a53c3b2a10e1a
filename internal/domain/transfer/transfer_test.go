package transfer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumenbank/transfers/internal/domain/errors"
	"github.com/lumenbank/transfers/internal/domain/transfer"
)

// allowed is the full forward-only state machine, written out so a change
// to the transitions table has to be acknowledged here.
var allowed = map[transfer.AttemptState][]transfer.AttemptState{
	transfer.StateIdle:             {transfer.StateResolving, transfer.StateValidating},
	transfer.StateResolving:        {transfer.StateResolved, transfer.StateResolutionFailed},
	transfer.StateResolved:         {transfer.StateValidating, transfer.StateResolving},
	transfer.StateResolutionFailed: {},
	transfer.StateValidating:       {transfer.StateSubmitting, transfer.StateRejected, transfer.StateFailed},
	transfer.StateSubmitting:       {transfer.StateCompleted, transfer.StateFailed},
	transfer.StateRejected:         {},
	transfer.StateCompleted:        {},
	transfer.StateFailed:           {},
}

func contains(list []transfer.AttemptState, s transfer.AttemptState) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestCanTransition_Exhaustive(t *testing.T) {
	for _, from := range transfer.States() {
		for _, to := range transfer.States() {
			want := contains(allowed[from], to)
			got := transfer.CanTransition(from, to)
			assert.Equal(t, want, got, "transition %s -> %s", from, to)
		}
	}
}

func TestCanTransition_NoBackwardsFromSubmitting(t *testing.T) {
	// Once submitting, the attempt can only complete or fail; it can never
	// return to validation or resolution.
	assert.False(t, transfer.CanTransition(transfer.StateSubmitting, transfer.StateValidating))
	assert.False(t, transfer.CanTransition(transfer.StateSubmitting, transfer.StateResolving))
	assert.False(t, transfer.CanTransition(transfer.StateSubmitting, transfer.StateIdle))
}

func TestIsTerminal(t *testing.T) {
	terminal := []transfer.AttemptState{
		transfer.StateResolutionFailed,
		transfer.StateRejected,
		transfer.StateCompleted,
		transfer.StateFailed,
	}
	for _, s := range transfer.States() {
		assert.Equal(t, contains(terminal, s), transfer.IsTerminal(s), "state %s", s)
	}
}

func TestValidationResult_Err(t *testing.T) {
	tests := []struct {
		kind transfer.ValidationKind
		want error
	}{
		{transfer.Approved, nil},
		{transfer.InvalidAmount, errors.ErrInvalidAmount},
		{transfer.InsufficientFunds, errors.ErrInsufficientFunds},
		{transfer.DailyLimitExceeded, errors.ErrDailyLimitExceeded},
		{transfer.InvalidRecipient, errors.ErrInvalidRecipient},
	}

	for _, tt := range tests {
		got := transfer.ValidationResult{Kind: tt.kind}.Err()
		assert.ErrorIs(t, got, tt.want, "kind %s", tt.kind)
	}
}
