package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lumenbank/transfers/internal/domain/transaction"
	"github.com/lumenbank/transfers/internal/infrastructure/observability"
)

const keyPrefix = "mirror:txns:"

// Record is the wire form of a mirrored transaction.
type Record struct {
	ID                 string    `json:"id"`
	AccountID          string    `json:"account_id"`
	UserID             string    `json:"user_id"`
	TransferID         string    `json:"transfer_id,omitempty"`
	Direction          string    `json:"direction"`
	Category           string    `json:"category"`
	Amount             int64     `json:"amount_cents"`
	Currency           string    `json:"currency"`
	Description        string    `json:"description,omitempty"`
	CounterpartyName   string    `json:"counterparty_name,omitempty"`
	CounterpartyNumber string    `json:"counterparty_number,omitempty"`
	Status             string    `json:"status"`
	BalanceAfter       int64     `json:"balance_after_cents"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewRecord converts a domain transaction to its wire form.
func NewRecord(tx *transaction.Transaction) Record {
	r := Record{
		ID:                 tx.ID.String(),
		AccountID:          tx.AccountID.String(),
		UserID:             tx.UserID,
		Direction:          string(tx.Direction),
		Category:           string(tx.Category),
		Amount:             tx.Amount,
		Currency:           tx.Currency,
		Description:        tx.Description,
		CounterpartyName:   tx.CounterpartyName,
		CounterpartyNumber: tx.CounterpartyNumber,
		Status:             string(tx.Status),
		BalanceAfter:       tx.BalanceAfter,
		CreatedAt:          tx.CreatedAt,
	}
	if tx.TransferID != nil {
		r.TransferID = tx.TransferID.String()
	}
	return r
}

// Transaction converts the record back to its domain form.
func (r Record) Transaction() (*transaction.Transaction, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("parse transaction id: %w", err)
	}
	accountID, err := uuid.Parse(r.AccountID)
	if err != nil {
		return nil, fmt.Errorf("parse account id: %w", err)
	}

	tx := &transaction.Transaction{
		ID:                 id,
		AccountID:          accountID,
		UserID:             r.UserID,
		Direction:          transaction.Direction(r.Direction),
		Category:           transaction.Category(r.Category),
		Amount:             r.Amount,
		Currency:           r.Currency,
		Description:        r.Description,
		CounterpartyName:   r.CounterpartyName,
		CounterpartyNumber: r.CounterpartyNumber,
		Status:             transaction.Status(r.Status),
		BalanceAfter:       r.BalanceAfter,
		CreatedAt:          r.CreatedAt,
	}
	if r.TransferID != "" {
		transferID, err := uuid.Parse(r.TransferID)
		if err != nil {
			return nil, fmt.Errorf("parse transfer id: %w", err)
		}
		tx.TransferID = &transferID
	}
	return tx, nil
}

// Mirror is a Redis-backed, per-account copy of recent ledger activity. It
// is not authoritative: entries are capped, expire, and may lag the ledger.
type Mirror struct {
	client     *redis.Client
	ttl        time.Duration
	maxEntries int64
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// New creates a Mirror. metrics may be nil.
func New(client *redis.Client, ttl time.Duration, maxEntries int64, metrics *observability.Metrics, logger zerolog.Logger) *Mirror {
	return &Mirror{
		client:     client,
		ttl:        ttl,
		maxEntries: maxEntries,
		metrics:    metrics,
		logger:     logger,
	}
}

func accountKey(accountID uuid.UUID) string {
	return keyPrefix + accountID.String()
}

// AppendTransaction prepends a transaction to the account's mirror list,
// trims the list to its cap and refreshes the TTL.
func (m *Mirror) AppendTransaction(ctx context.Context, tx *transaction.Transaction) error {
	payload, err := json.Marshal(NewRecord(tx))
	if err != nil {
		return fmt.Errorf("marshal mirror record: %w", err)
	}

	key := accountKey(tx.AccountID)
	pipe := m.client.TxPipeline()
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, m.maxEntries-1)
	pipe.Expire(ctx, key, m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		m.countWrite("error")
		return fmt.Errorf("append mirror record: %w", err)
	}

	m.countWrite("ok")
	return nil
}

// ListRecent returns up to limit most-recent mirrored transactions for the
// account, newest first. Entries that fail to decode are skipped.
func (m *Mirror) ListRecent(ctx context.Context, accountID uuid.UUID, limit int64) ([]*transaction.Transaction, error) {
	if limit <= 0 || limit > m.maxEntries {
		limit = m.maxEntries
	}

	raw, err := m.client.LRange(ctx, accountKey(accountID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read mirror list: %w", err)
	}

	txns := make([]*transaction.Transaction, 0, len(raw))
	for _, item := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			m.logger.Warn().Err(err).Str("account_id", accountID.String()).Msg("skipping undecodable mirror entry")
			continue
		}
		tx, err := rec.Transaction()
		if err != nil {
			m.logger.Warn().Err(err).Str("account_id", accountID.String()).Msg("skipping malformed mirror entry")
			continue
		}
		txns = append(txns, tx)
	}
	return txns, nil
}

// RecentDebitTotal sums mirrored completed debits newer than the window. It
// only sees what the mirror retains, so the total can undercount; callers
// treat it as a floor, not an exact figure.
func (m *Mirror) RecentDebitTotal(ctx context.Context, accountID uuid.UUID, window time.Duration) (int64, error) {
	txns, err := m.ListRecent(ctx, accountID, m.maxEntries)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-window)
	var total int64
	for _, tx := range txns {
		if tx.Direction != transaction.Debit || tx.Status != transaction.StatusCompleted {
			continue
		}
		if tx.CreatedAt.Before(cutoff) {
			continue
		}
		total += tx.Amount
	}
	return total, nil
}

func (m *Mirror) countWrite(status string) {
	if m.metrics != nil {
		m.metrics.MirrorWrites.WithLabelValues(status).Inc()
	}
}
