package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/lumenbank/transfers/internal/domain/account"
	domainErrors "github.com/lumenbank/transfers/internal/domain/errors"
	"github.com/lumenbank/transfers/internal/domain/transaction"
	"github.com/lumenbank/transfers/internal/ledger"
)

// TransferEventPublisher receives the two transaction records of a committed
// transfer. Publishing happens after commit and is best effort.
type TransferEventPublisher interface {
	PublishTransferCompleted(ctx context.Context, records []*transaction.Transaction) error
}

// Ledger is the Postgres-native implementation of the atomic transfer
// contract, used when the service hosts its own ledger instead of calling
// the managed transfer function. One database transaction locks both
// accounts in deterministic order, mutates both balances and inserts the
// two linked transaction records, all or nothing.
type Ledger struct {
	accounts     *AccountRepository
	transactions *TransactionRepository
	txManager    *TxManager
	events       TransferEventPublisher
	logger       zerolog.Logger
}

// NewLedger creates the Postgres ledger. events may be nil.
func NewLedger(accounts *AccountRepository, transactions *TransactionRepository, txManager *TxManager, events TransferEventPublisher, logger zerolog.Logger) *Ledger {
	return &Ledger{
		accounts:     accounts,
		transactions: transactions,
		txManager:    txManager,
		events:       events,
		logger:       logger,
	}
}

func (l *Ledger) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, l.accounts.pool)
}

// ProcessTransfer implements ledger.Service.
func (l *Ledger) ProcessTransfer(ctx context.Context, in ledger.TransferInput) (*ledger.TransferOutput, error) {
	if in.Amount <= 0 {
		return nil, fmt.Errorf("non-positive amount: %w", ledger.ErrInternal)
	}
	if in.FromAccountID == in.ToAccountID {
		return nil, fmt.Errorf("source and destination are the same account: %w", ledger.ErrPermissionDenied)
	}

	var (
		out     *ledger.TransferOutput
		records []*transaction.Transaction
	)
	err := l.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// Replay: a repeated idempotency key returns the original outcome
		// without touching balances.
		if in.IdempotencyKey != "" {
			if replay, err := l.lookupReplay(txCtx, in.IdempotencyKey); err != nil {
				return err
			} else if replay != nil {
				out = replay
				return nil
			}
		}

		// Lock both accounts in UUID order to prevent deadlocks.
		ids := sortUUIDs(in.FromAccountID, in.ToAccountID)
		first, err := l.lock(txCtx, ids[0])
		if err != nil {
			return err
		}
		second, err := l.lock(txCtx, ids[1])
		if err != nil {
			return err
		}

		source, dest := first, second
		if source.ID != in.FromAccountID {
			source, dest = second, first
		}

		if !source.Active || !dest.Active {
			return fmt.Errorf("inactive account: %w", ledger.ErrPermissionDenied)
		}
		if source.Currency != in.Currency || dest.Currency != in.Currency {
			return fmt.Errorf("currency mismatch: %w", ledger.ErrPermissionDenied)
		}
		if source.Balance < in.Amount {
			return ledger.ErrInsufficientFunds
		}

		newSourceBalance := source.Balance - in.Amount
		newDestBalance := dest.Balance + in.Amount

		if err := l.accounts.UpdateBalance(txCtx, source.ID, newSourceBalance); err != nil {
			return err
		}
		if err := l.accounts.UpdateBalance(txCtx, dest.ID, newDestBalance); err != nil {
			return err
		}

		now := time.Now()
		debitID := uuid.New()

		debit := &transaction.Transaction{
			ID:                 debitID,
			AccountID:          source.ID,
			UserID:             source.UserID,
			TransferID:         &debitID,
			Direction:          transaction.Debit,
			Category:           transaction.CategoryTransfer,
			Amount:             in.Amount,
			Currency:           in.Currency,
			Description:        in.Description,
			CounterpartyName:   dest.DisplayName,
			CounterpartyNumber: dest.Number,
			Status:             transaction.StatusCompleted,
			BalanceAfter:       newSourceBalance,
			CreatedAt:          now,
		}
		credit := &transaction.Transaction{
			ID:                 uuid.New(),
			AccountID:          dest.ID,
			UserID:             dest.UserID,
			TransferID:         &debitID,
			Direction:          transaction.Credit,
			Category:           transaction.CategoryTransfer,
			Amount:             in.Amount,
			Currency:           in.Currency,
			Description:        in.Description,
			CounterpartyName:   source.DisplayName,
			CounterpartyNumber: source.Number,
			Status:             transaction.StatusCompleted,
			BalanceAfter:       newDestBalance,
			CreatedAt:          now,
		}

		if err := l.transactions.Create(txCtx, debit); err != nil {
			return err
		}
		if err := l.transactions.Create(txCtx, credit); err != nil {
			return err
		}

		if in.IdempotencyKey != "" {
			if err := l.recordReplay(txCtx, in.IdempotencyKey, debitID, newSourceBalance); err != nil {
				return err
			}
		}

		out = &ledger.TransferOutput{TransactionID: debitID, FromBalance: newSourceBalance}
		records = []*transaction.Transaction{debit, credit}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Replays leave records nil: the event already went out with the
	// original commit.
	if l.events != nil && records != nil {
		if err := l.events.PublishTransferCompleted(ctx, records); err != nil {
			l.logger.Warn().Err(err).
				Str("transaction_id", out.TransactionID.String()).
				Msg("failed to publish transfer event")
		}
	}

	l.logger.Info().
		Str("transaction_id", out.TransactionID.String()).
		Str("from_account", in.FromAccountID.String()).
		Str("to_account", in.ToAccountID.String()).
		Int64("amount_cents", in.Amount).
		Msg("transfer committed")

	return out, nil
}

func (l *Ledger) lock(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	a, err := l.accounts.Lock(ctx, id)
	if err != nil {
		if err == domainErrors.ErrAccountNotFound {
			return nil, fmt.Errorf("account %s: %w", id, ledger.ErrNotFound)
		}
		return nil, fmt.Errorf("lock account: %w", err)
	}
	return a, nil
}

func (l *Ledger) lookupReplay(ctx context.Context, key string) (*ledger.TransferOutput, error) {
	var (
		txID       uuid.UUID
		balanceStr string
	)
	err := l.db(ctx).QueryRow(ctx,
		`SELECT transaction_id, from_balance FROM transfer_idempotency WHERE key = $1`, key,
	).Scan(&txID, &balanceStr)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup idempotency key: %w", err)
	}
	cents, err := numericStringToCents(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("parse replayed balance: %w", err)
	}
	return &ledger.TransferOutput{TransactionID: txID, FromBalance: cents}, nil
}

func (l *Ledger) recordReplay(ctx context.Context, key string, txID uuid.UUID, fromBalance int64) error {
	_, err := l.db(ctx).Exec(ctx,
		`INSERT INTO transfer_idempotency (key, transaction_id, from_balance, created_at)
		 VALUES ($1, $2, $3, NOW())`,
		key, txID, centsToNumericString(fromBalance),
	)
	if err != nil {
		return fmt.Errorf("record idempotency key: %w", err)
	}
	return nil
}

// sortUUIDs returns two UUIDs in deterministic order (by string comparison).
func sortUUIDs(a, b uuid.UUID) [2]uuid.UUID {
	if a.String() < b.String() {
		return [2]uuid.UUID{a, b}
	}
	return [2]uuid.UUID{b, a}
}
