package controller

import (
	"math"
	"time"

	"github.com/lumenbank/transfers/internal/application/transfer"
	"github.com/lumenbank/transfers/internal/domain/account"
	"github.com/lumenbank/transfers/internal/domain/transaction"
	domainTransfer "github.com/lumenbank/transfers/internal/domain/transfer"
)

// --- Request DTOs ---
// DTOs carry HTTP/JSON concerns (float64 amounts, string IDs, validation
// tags). Controllers convert to domain types before touching business logic.

// SubmitTransferRequest holds the input for submitting a transfer. Exactly
// one of destination_account_id or recipient is expected; when only a
// recipient identifier is given it is resolved first.
type SubmitTransferRequest struct {
	SourceAccountID      string  `json:"source_account_id" validate:"required,uuid"`
	DestinationAccountID string  `json:"destination_account_id,omitempty" validate:"omitempty,uuid"`
	Recipient            string  `json:"recipient,omitempty"`
	Amount               float64 `json:"amount" validate:"required,gt=0"`
	Currency             string  `json:"currency" validate:"required,len=3"`
	Description          string  `json:"description,omitempty" validate:"max=140"`
}

// --- Response DTOs ---

// TransferResponse represents a completed transfer submission.
type TransferResponse struct {
	TransactionID  string  `json:"transaction_id"`
	State          string  `json:"state"`
	NewBalance     float64 `json:"new_balance"`
	Currency       string  `json:"currency"`
	IdempotencyKey string  `json:"idempotency_key"`
	Warning        string  `json:"warning,omitempty"`
}

// RecipientResponse represents a resolved recipient.
type RecipientResponse struct {
	UserID               string `json:"user_id"`
	DisplayName          string `json:"display_name"`
	ContactIdentifier    string `json:"contact_identifier"`
	DestinationAccountID string `json:"destination_account_id"`
	DestinationNumber    string `json:"destination_number"`
}

// AttemptResponse represents the display state of a transfer attempt.
type AttemptResponse struct {
	State            string             `json:"state"`
	Recipient        *RecipientResponse `json:"recipient,omitempty"`
	PendingBalance   *float64           `json:"pending_balance,omitempty"`
	ConfirmedBalance *float64           `json:"confirmed_balance,omitempty"`
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Number      string    `json:"number"`
	DisplayName string    `json:"display_name"`
	Type        string    `json:"type"`
	Balance     float64   `json:"balance"`
	Currency    string    `json:"currency"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID                 string    `json:"id"`
	AccountID          string    `json:"account_id"`
	TransferID         *string   `json:"transfer_id,omitempty"`
	Direction          string    `json:"direction"`
	Category           string    `json:"category"`
	Amount             float64   `json:"amount"`
	Currency           string    `json:"currency"`
	Description        string    `json:"description,omitempty"`
	CounterpartyName   string    `json:"counterparty_name,omitempty"`
	CounterpartyNumber string    `json:"counterparty_number,omitempty"`
	Status             string    `json:"status"`
	BalanceAfter       float64   `json:"balance_after"`
	CreatedAt          time.Time `json:"created_at"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromAccount converts a domain account to API response.
func FromAccount(a *account.Account) *AccountResponse {
	return &AccountResponse{
		ID:          a.ID.String(),
		UserID:      a.UserID,
		Number:      a.Number,
		DisplayName: a.DisplayName,
		Type:        string(a.Type),
		Balance:     centsToFloat(a.Balance),
		Currency:    a.Currency,
		Active:      a.Active,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// FromTransaction converts a domain transaction to API response.
func FromTransaction(t *transaction.Transaction) *TransactionResponse {
	resp := &TransactionResponse{
		ID:                 t.ID.String(),
		AccountID:          t.AccountID.String(),
		Direction:          string(t.Direction),
		Category:           string(t.Category),
		Amount:             centsToFloat(t.Amount),
		Currency:           t.Currency,
		Description:        t.Description,
		CounterpartyName:   t.CounterpartyName,
		CounterpartyNumber: t.CounterpartyNumber,
		Status:             string(t.Status),
		BalanceAfter:       centsToFloat(t.BalanceAfter),
		CreatedAt:          t.CreatedAt,
	}
	if t.TransferID != nil {
		tid := t.TransferID.String()
		resp.TransferID = &tid
	}
	return resp
}

// FromRecipient converts a resolved recipient identity to API response.
func FromRecipient(id *domainTransfer.RecipientIdentity) *RecipientResponse {
	return &RecipientResponse{
		UserID:               id.UserID,
		DisplayName:          id.DisplayName,
		ContactIdentifier:    id.ContactIdentifier,
		DestinationAccountID: id.DestinationAccountID.String(),
		DestinationNumber:    id.DestinationNumber,
	}
}

// FromAttemptView converts the orchestrator's view to API response.
func FromAttemptView(v transfer.View) *AttemptResponse {
	resp := &AttemptResponse{State: string(v.State)}
	if v.Recipient != nil {
		resp.Recipient = FromRecipient(v.Recipient)
	}
	if v.PendingBalance != nil {
		f := centsToFloat(*v.PendingBalance)
		resp.PendingBalance = &f
	}
	if v.ConfirmedBalance != nil {
		f := centsToFloat(*v.ConfirmedBalance)
		resp.ConfirmedBalance = &f
	}
	return resp
}

// floatToCents converts a float dollar amount to cents. Rounded, not
// truncated: 0.29 must become 29, not 28.
func floatToCents(f float64) int64 {
	return int64(math.Round(f * 100))
}

// centsToFloat converts cents to a float dollar amount.
func centsToFloat(cents int64) float64 {
	return float64(cents) / 100.0
}
