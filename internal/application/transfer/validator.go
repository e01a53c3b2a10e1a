package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/lumenbank/transfers/internal/domain/account"
	domainTransfer "github.com/lumenbank/transfers/internal/domain/transfer"
)

// Policy holds the transfer limit constants.
type Policy struct {
	// DailyCeiling is the maximum amount permitted per day, as a single
	// transfer or as a rolling-window sum. In cents.
	DailyCeiling int64
	// FraudThreshold is the per-transaction amount above which the trailing
	// window is consulted. In cents.
	FraudThreshold int64
	// Window is the trailing period aggregated by the limit check.
	Window time.Duration
}

// DefaultPolicy returns the product limits: 10,000.00 ceiling, 5,000.00
// fraud-review threshold, 24h window.
func DefaultPolicy() Policy {
	return Policy{
		DailyCeiling:   10_000_00,
		FraudThreshold: 5_000_00,
		Window:         24 * time.Hour,
	}
}

// Validator decides, before the ledger is invoked, whether a proposed
// transfer should proceed. It is a pure decision function over the accounts
// given to it; the recent-history read is the one allowed side-effecting
// read, and it only happens above the fraud threshold.
type Validator struct {
	history HistorySource
	policy  Policy
}

// NewValidator creates a Validator over the given history source and policy.
func NewValidator(history HistorySource, policy Policy) *Validator {
	return &Validator{history: history, policy: policy}
}

// Validate checks recipient validity, amount, balance sufficiency and the
// two-tier daily limit. The returned error is reserved for history-source
// failures; business rejections come back as the result kind.
//
// Known approximation: transfers at or below the fraud threshold skip the
// rolling-window aggregation, so small transfers can cumulatively exceed
// the ceiling. The hard per-transfer ceiling is always enforced.
func (v *Validator) Validate(ctx context.Context, source, dest *account.Account, amount int64) (domainTransfer.ValidationResult, error) {
	if source == nil || dest == nil || !source.CanSettle() || !dest.CanSettle() || source.ID == dest.ID {
		return domainTransfer.ValidationResult{Kind: domainTransfer.InvalidRecipient}, nil
	}

	if amount <= 0 {
		return domainTransfer.ValidationResult{Kind: domainTransfer.InvalidAmount}, nil
	}

	if amount > source.Balance {
		return domainTransfer.ValidationResult{
			Kind:      domainTransfer.InsufficientFunds,
			Available: source.Balance,
		}, nil
	}

	if amount > v.policy.DailyCeiling {
		return domainTransfer.ValidationResult{
			Kind:  domainTransfer.DailyLimitExceeded,
			Limit: v.policy.DailyCeiling,
		}, nil
	}

	if amount > v.policy.FraudThreshold {
		recent, err := v.history.RecentDebitTotal(ctx, source.ID, v.policy.Window)
		if err != nil {
			return domainTransfer.ValidationResult{}, fmt.Errorf("read recent debits: %w", err)
		}
		if recent+amount > v.policy.DailyCeiling {
			return domainTransfer.ValidationResult{
				Kind:        domainTransfer.DailyLimitExceeded,
				Limit:       v.policy.DailyCeiling,
				WindowTotal: recent + amount,
			}, nil
		}
	}

	return domainTransfer.ValidationResult{Kind: domainTransfer.Approved}, nil
}
