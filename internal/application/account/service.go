package account

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domainAccount "github.com/lumenbank/transfers/internal/domain/account"
	"github.com/lumenbank/transfers/internal/domain/transaction"
)

// Service exposes account and transaction reads to the HTTP layer and to
// the transfer flow. It also satisfies the transfer orchestrator's account
// source and, via the authoritative transaction store, its history source.
type Service struct {
	accounts     domainAccount.Repository
	transactions transaction.Repository
	logger       zerolog.Logger
}

func NewService(accounts domainAccount.Repository, transactions transaction.Repository, logger zerolog.Logger) *Service {
	return &Service{
		accounts:     accounts,
		transactions: transactions,
		logger:       logger,
	}
}

// GetAccount returns the account by ID.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*domainAccount.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// ListAccounts returns every account owned by the user.
func (s *Service) ListAccounts(ctx context.Context, userID string) ([]*domainAccount.Account, error) {
	return s.accounts.ListByUser(ctx, userID)
}

// ListActiveAccounts returns the user's active accounts, in creation order.
func (s *Service) ListActiveAccounts(ctx context.Context, userID string) ([]*domainAccount.Account, error) {
	return s.accounts.ListActiveByUser(ctx, userID)
}

// ListTransactions pages through an account's transaction history, newest
// first.
func (s *Service) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error) {
	return s.transactions.ListByAccount(ctx, accountID, limit, offset)
}

// RecentDebitTotal sums completed debits inside the trailing window, read
// from the authoritative store.
func (s *Service) RecentDebitTotal(ctx context.Context, accountID uuid.UUID, window time.Duration) (int64, error) {
	return s.transactions.RecentDebitTotal(ctx, accountID, time.Now().Add(-window))
}
