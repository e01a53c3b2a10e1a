package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	transferApp "github.com/lumenbank/transfers/internal/application/transfer"
	"github.com/lumenbank/transfers/internal/domain/account"
	domainErrors "github.com/lumenbank/transfers/internal/domain/errors"
	"github.com/lumenbank/transfers/internal/domain/transaction"
	"github.com/lumenbank/transfers/internal/ledger"
)

// --- Recipient directory mock ---

// MockDirectory is an in-memory recipient directory.
type MockDirectory struct {
	mu      sync.Mutex
	entries map[string]*transferApp.Recipient

	FindByIdentifierFunc func(ctx context.Context, identifier string) (*transferApp.Recipient, error)
}

func NewMockDirectory() *MockDirectory {
	return &MockDirectory{entries: make(map[string]*transferApp.Recipient)}
}

func (m *MockDirectory) Add(identifier string, r *transferApp.Recipient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[identifier] = r
}

func (m *MockDirectory) FindByIdentifier(ctx context.Context, identifier string) (*transferApp.Recipient, error) {
	if m.FindByIdentifierFunc != nil {
		return m.FindByIdentifierFunc(ctx, identifier)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.entries[identifier]
	if !ok {
		return nil, domainErrors.ErrRecipientNotFound
	}
	return r, nil
}

// --- Account source mock ---

// MockAccountSource is an in-memory account store.
type MockAccountSource struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*account.Account

	GetAccountFunc         func(ctx context.Context, id uuid.UUID) (*account.Account, error)
	ListActiveAccountsFunc func(ctx context.Context, userID string) ([]*account.Account, error)
}

func NewMockAccountSource(accounts ...*account.Account) *MockAccountSource {
	m := &MockAccountSource{accounts: make(map[uuid.UUID]*account.Account)}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *MockAccountSource) Add(a *account.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
}

func (m *MockAccountSource) GetAccount(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	if m.GetAccountFunc != nil {
		return m.GetAccountFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, domainErrors.ErrAccountNotFound
	}
	return a, nil
}

func (m *MockAccountSource) ListActiveAccounts(ctx context.Context, userID string) ([]*account.Account, error) {
	if m.ListActiveAccountsFunc != nil {
		return m.ListActiveAccountsFunc(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*account.Account
	for _, a := range m.accounts {
		if a.UserID == userID && a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

// --- History source mock ---

// MockHistorySource returns a fixed recent-debit total and counts reads, so
// tests can prove when the window was (or was not) consulted.
type MockHistorySource struct {
	mu    sync.Mutex
	total int64
	calls int

	RecentDebitTotalFunc func(ctx context.Context, accountID uuid.UUID, window time.Duration) (int64, error)
}

func NewMockHistorySource(total int64) *MockHistorySource {
	return &MockHistorySource{total: total}
}

func (m *MockHistorySource) RecentDebitTotal(ctx context.Context, accountID uuid.UUID, window time.Duration) (int64, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.RecentDebitTotalFunc != nil {
		return m.RecentDebitTotalFunc(ctx, accountID, window)
	}
	return m.total, nil
}

func (m *MockHistorySource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Mirror writer mock ---

// MockMirror records appended transactions.
type MockMirror struct {
	mu      sync.Mutex
	entries []*transaction.Transaction

	AppendTransactionFunc func(ctx context.Context, tx *transaction.Transaction) error
}

func NewMockMirror() *MockMirror {
	return &MockMirror{}
}

func (m *MockMirror) AppendTransaction(ctx context.Context, tx *transaction.Transaction) error {
	if m.AppendTransactionFunc != nil {
		return m.AppendTransactionFunc(ctx, tx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, tx)
	return nil
}

func (m *MockMirror) Entries() []*transaction.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*transaction.Transaction, len(m.entries))
	copy(out, m.entries)
	return out
}

// --- Ledger mock ---

// MockLedger is an in-memory ledger honoring the idempotent-transfer
// contract: a repeated key replays the original outcome without moving
// funds again.
type MockLedger struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int64
	replays  map[string]*ledger.TransferOutput
	calls    int

	ProcessTransferFunc func(ctx context.Context, in ledger.TransferInput) (*ledger.TransferOutput, error)
}

func NewMockLedger() *MockLedger {
	return &MockLedger{
		balances: make(map[uuid.UUID]int64),
		replays:  make(map[string]*ledger.TransferOutput),
	}
}

// SetBalance seeds a source balance.
func (m *MockLedger) SetBalance(accountID uuid.UUID, cents int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[accountID] = cents
}

func (m *MockLedger) Balance(accountID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[accountID]
}

func (m *MockLedger) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockLedger) ProcessTransfer(ctx context.Context, in ledger.TransferInput) (*ledger.TransferOutput, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.ProcessTransferFunc != nil {
		return m.ProcessTransferFunc(ctx, in)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if in.IdempotencyKey != "" {
		if out, ok := m.replays[in.IdempotencyKey]; ok {
			return out, nil
		}
	}

	if m.balances[in.FromAccountID] < in.Amount {
		return nil, ledger.ErrInsufficientFunds
	}

	m.balances[in.FromAccountID] -= in.Amount
	m.balances[in.ToAccountID] += in.Amount

	out := &ledger.TransferOutput{
		TransactionID: uuid.New(),
		FromBalance:   m.balances[in.FromAccountID],
	}
	if in.IdempotencyKey != "" {
		m.replays[in.IdempotencyKey] = out
	}
	return out, nil
}
