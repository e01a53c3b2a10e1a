package transfer

import (
	"github.com/google/uuid"
	"github.com/lumenbank/transfers/internal/domain/errors"
)

// Request describes one proposed peer-to-peer transfer. It is constructed per
// attempt and never persisted independently; the ledger owns the durable
// records. When IdempotencyKey is empty the orchestrator generates one per
// logical attempt so transport-level retries cannot double-credit.
type Request struct {
	SourceAccountID      uuid.UUID
	DestinationAccountID uuid.UUID
	Amount               int64 // in cents
	Currency             string
	Description          string
	IdempotencyKey       string
}

// RecipientIdentity is the resolved counterparty for a transfer, derived per
// search and discarded afterwards. DestinationAccountID is the first active
// account found for the recipient.
type RecipientIdentity struct {
	UserID               string
	DisplayName          string
	ContactIdentifier    string
	DestinationAccountID uuid.UUID
	DestinationNumber    string
}

// AttemptState is a phase of one transfer attempt. Transitions are strictly
// forward; a failed attempt is terminal and the caller starts over.
type AttemptState string

const (
	StateIdle             AttemptState = "idle"
	StateResolving        AttemptState = "resolving"
	StateResolved         AttemptState = "resolved"
	StateResolutionFailed AttemptState = "resolution_failed"
	StateValidating       AttemptState = "validating"
	StateSubmitting       AttemptState = "submitting"
	StateRejected         AttemptState = "rejected"
	StateCompleted        AttemptState = "completed"
	StateFailed           AttemptState = "failed"
)

// transitions is the full forward-only attempt state machine.
var transitions = map[AttemptState][]AttemptState{
	StateIdle:             {StateResolving, StateValidating},
	StateResolving:        {StateResolved, StateResolutionFailed},
	StateResolved:         {StateValidating, StateResolving},
	StateResolutionFailed: {},
	StateValidating:       {StateSubmitting, StateRejected, StateFailed},
	StateSubmitting:       {StateCompleted, StateFailed},
	StateRejected:         {},
	StateCompleted:        {},
	StateFailed:           {},
}

// CanTransition reports whether moving from one attempt state to another is
// permitted by the state machine.
func CanTransition(from, to AttemptState) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// States returns every attempt state. Used by transition-enumeration tests.
func States() []AttemptState {
	return []AttemptState{
		StateIdle, StateResolving, StateResolved, StateResolutionFailed,
		StateValidating, StateSubmitting, StateRejected, StateCompleted, StateFailed,
	}
}

// IsTerminal reports whether an attempt state admits no further transitions.
func IsTerminal(s AttemptState) bool {
	return len(transitions[s]) == 0
}

// ValidationKind is the outcome of the pre-ledger transfer validation.
type ValidationKind string

const (
	Approved           ValidationKind = "approved"
	InvalidAmount      ValidationKind = "invalid_amount"
	InsufficientFunds  ValidationKind = "insufficient_funds"
	DailyLimitExceeded ValidationKind = "daily_limit_exceeded"
	InvalidRecipient   ValidationKind = "invalid_recipient"
)

// ValidationResult carries the validation decision plus the context the UI
// needs to explain a rejection.
type ValidationResult struct {
	Kind ValidationKind

	// Available is the source balance, set for InsufficientFunds.
	Available int64
	// Limit is the daily ceiling, set for DailyLimitExceeded.
	Limit int64
	// WindowTotal is the trailing-24h debit sum including this attempt,
	// set when the rolling-window check rejected the transfer.
	WindowTotal int64
}

// Err maps a non-approved validation result to its domain error.
func (r ValidationResult) Err() error {
	switch r.Kind {
	case Approved:
		return nil
	case InvalidAmount:
		return errors.ErrInvalidAmount
	case InsufficientFunds:
		return errors.ErrInsufficientFunds
	case DailyLimitExceeded:
		return errors.ErrDailyLimitExceeded
	case InvalidRecipient:
		return errors.ErrInvalidRecipient
	default:
		return errors.ErrValidationFailed
	}
}
