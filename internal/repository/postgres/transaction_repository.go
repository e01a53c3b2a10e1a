package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/lumenbank/transfers/internal/domain/errors"
	"github.com/lumenbank/transfers/internal/domain/transaction"
)

const transactionColumns = `id, account_id, user_id, transfer_id, direction, category, amount, currency, description, counterparty_name, counterparty_number, status, balance_after, created_at`

// TransactionRepository implements transaction.Repository using PostgreSQL.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func (r *TransactionRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

func (r *TransactionRepository) scanTransaction(s scanner) (*transaction.Transaction, error) {
	t := &transaction.Transaction{}
	var (
		direction       string
		category        string
		status          string
		amountStr       string
		balanceAfterStr string
	)
	err := s.Scan(&t.ID, &t.AccountID, &t.UserID, &t.TransferID, &direction, &category, &amountStr, &t.Currency,
		&t.Description, &t.CounterpartyName, &t.CounterpartyNumber, &status, &balanceAfterStr, &t.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	t.Direction = transaction.Direction(direction)
	t.Category = transaction.Category(category)
	t.Status = transaction.Status(status)

	if t.Amount, err = numericStringToCents(amountStr); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if t.BalanceAfter, err = numericStringToCents(balanceAfterStr); err != nil {
		return nil, fmt.Errorf("parse balance_after: %w", err)
	}
	return t, nil
}

// Create inserts a transaction record.
func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO transactions (id, account_id, user_id, transfer_id, direction, category, amount, currency, description, counterparty_name, counterparty_number, status, balance_after, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		t.ID, t.AccountID, t.UserID, t.TransferID, string(t.Direction), string(t.Category),
		centsToNumericString(t.Amount), t.Currency, t.Description, t.CounterpartyName, t.CounterpartyNumber,
		string(t.Status), centsToNumericString(t.BalanceAfter), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return r.scanTransaction(r.db(ctx).QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

// ListByAccount retrieves transactions for an account, newest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*transaction.Transaction
	for rows.Next() {
		t, err := r.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// RecentDebitTotal sums completed debit amounts on the account since the
// given time.
func (r *TransactionRepository) RecentDebitTotal(ctx context.Context, accountID uuid.UUID, since time.Time) (int64, error) {
	var totalStr string
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions
		 WHERE account_id = $1 AND direction = 'debit' AND status = 'completed' AND created_at >= $2`,
		accountID, since,
	).Scan(&totalStr)
	if err != nil {
		return 0, fmt.Errorf("sum recent debits: %w", err)
	}
	return numericStringToCents(totalStr)
}
