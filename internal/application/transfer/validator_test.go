package transfer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	transferApp "github.com/lumenbank/transfers/internal/application/transfer"
	domainTransfer "github.com/lumenbank/transfers/internal/domain/transfer"
	"github.com/lumenbank/transfers/internal/testutil"
)

func newValidator(recentTotal int64) (*transferApp.Validator, *testutil.MockHistorySource) {
	history := testutil.NewMockHistorySource(recentTotal)
	return transferApp.NewValidator(history, transferApp.DefaultPolicy()), history
}

func TestValidate_Approved(t *testing.T) {
	ctx := context.Background()
	v, history := newValidator(0)

	source := testutil.NewTestAccount("user-1", 1_000_00, "USD")
	dest := testutil.NewTestAccount("user-2", 0, "USD")

	res, err := v.Validate(ctx, source, dest, 50_00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != domainTransfer.Approved {
		t.Errorf("expected approved, got %s", res.Kind)
	}
	if history.Calls() != 0 {
		t.Errorf("history consulted for a below-threshold amount: %d calls", history.Calls())
	}
}

func TestValidate_SelfTransfer(t *testing.T) {
	ctx := context.Background()
	v, _ := newValidator(0)

	source := testutil.NewTestAccount("user-1", 1_000_00, "USD")

	// Self transfer wins over every other rejection, including bad amounts.
	for _, amount := range []int64{50_00, 0, -5_00, 99_999_00} {
		res, err := v.Validate(ctx, source, source, amount)
		if err != nil {
			t.Fatalf("amount %d: unexpected error: %v", amount, err)
		}
		if res.Kind != domainTransfer.InvalidRecipient {
			t.Errorf("amount %d: expected invalid_recipient, got %s", amount, res.Kind)
		}
	}
}

func TestValidate_InactiveRecipient(t *testing.T) {
	ctx := context.Background()
	v, _ := newValidator(0)

	source := testutil.NewTestAccount("user-1", 1_000_00, "USD")
	dest := testutil.NewInactiveAccount("user-2", 0, "USD")

	res, err := v.Validate(ctx, source, dest, 50_00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != domainTransfer.InvalidRecipient {
		t.Errorf("expected invalid_recipient, got %s", res.Kind)
	}
}

func TestValidate_NonPositiveAmount(t *testing.T) {
	ctx := context.Background()
	v, _ := newValidator(0)

	source := testutil.NewTestAccount("user-1", 1_000_00, "USD")
	dest := testutil.NewTestAccount("user-2", 0, "USD")

	for _, amount := range []int64{0, -1, -100_00} {
		res, err := v.Validate(ctx, source, dest, amount)
		if err != nil {
			t.Fatalf("amount %d: unexpected error: %v", amount, err)
		}
		if res.Kind != domainTransfer.InvalidAmount {
			t.Errorf("amount %d: expected invalid_amount, got %s", amount, res.Kind)
		}
	}
}

func TestValidate_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	v, _ := newValidator(0)

	source := testutil.NewTestAccount("user-1", 30_00, "USD")
	dest := testutil.NewTestAccount("user-2", 0, "USD")

	res, err := v.Validate(ctx, source, dest, 30_01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != domainTransfer.InsufficientFunds {
		t.Fatalf("expected insufficient_funds, got %s", res.Kind)
	}
	if res.Available != 30_00 {
		t.Errorf("expected available 3000, got %d", res.Available)
	}
}

func TestValidate_HardCeiling(t *testing.T) {
	ctx := context.Background()
	v, history := newValidator(0)

	source := testutil.NewTestAccount("user-1", 100_000_00, "USD")
	dest := testutil.NewTestAccount("user-2", 0, "USD")

	// Exactly at the ceiling passes; one cent above fails without any
	// history read.
	res, err := v.Validate(ctx, source, dest, 10_000_00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != domainTransfer.Approved {
		t.Errorf("at-ceiling transfer: expected approved, got %s", res.Kind)
	}

	res, err = v.Validate(ctx, source, dest, 10_000_01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != domainTransfer.DailyLimitExceeded {
		t.Fatalf("above-ceiling transfer: expected daily_limit_exceeded, got %s", res.Kind)
	}
	if res.Limit != 10_000_00 {
		t.Errorf("expected limit 1000000, got %d", res.Limit)
	}

	// 10_000_01 exceeds the ceiling outright; only the 10_000_00 attempt
	// was above the fraud threshold and read history.
	if history.Calls() != 1 {
		t.Errorf("expected exactly 1 history read, got %d", history.Calls())
	}
}

func TestValidate_ThresholdBoundary(t *testing.T) {
	ctx := context.Background()
	v, history := newValidator(9_999_00)

	source := testutil.NewTestAccount("user-1", 100_000_00, "USD")
	dest := testutil.NewTestAccount("user-2", 0, "USD")

	// At the threshold the window is not consulted, so heavy recent
	// activity does not block the transfer. This is the documented
	// approximation, not a bug.
	res, err := v.Validate(ctx, source, dest, 5_000_00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != domainTransfer.Approved {
		t.Errorf("at-threshold transfer: expected approved, got %s", res.Kind)
	}
	if history.Calls() != 0 {
		t.Errorf("history consulted at the threshold: %d calls", history.Calls())
	}

	// One cent above the threshold triggers the window and rejects.
	res, err = v.Validate(ctx, source, dest, 5_000_01)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != domainTransfer.DailyLimitExceeded {
		t.Fatalf("expected daily_limit_exceeded, got %s", res.Kind)
	}
	if res.WindowTotal != 9_999_00+5_000_01 {
		t.Errorf("expected window total %d, got %d", 9_999_00+5_000_01, res.WindowTotal)
	}
	if history.Calls() != 1 {
		t.Errorf("expected 1 history read, got %d", history.Calls())
	}
}

func TestValidate_WindowAllowsWithinCeiling(t *testing.T) {
	ctx := context.Background()
	v, _ := newValidator(3_000_00)

	source := testutil.NewTestAccount("user-1", 100_000_00, "USD")
	dest := testutil.NewTestAccount("user-2", 0, "USD")

	// 3,000 recent + 6,000 now = 9,000, inside the 10,000 ceiling.
	res, err := v.Validate(ctx, source, dest, 6_000_00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != domainTransfer.Approved {
		t.Errorf("expected approved, got %s", res.Kind)
	}
}

func TestValidate_HistoryFailure(t *testing.T) {
	ctx := context.Background()
	history := testutil.NewMockHistorySource(0)
	historyErr := errors.New("history store unavailable")
	history.RecentDebitTotalFunc = func(context.Context, uuid.UUID, time.Duration) (int64, error) {
		return 0, historyErr
	}
	v := transferApp.NewValidator(history, transferApp.DefaultPolicy())

	source := testutil.NewTestAccount("user-1", 100_000_00, "USD")
	dest := testutil.NewTestAccount("user-2", 0, "USD")

	_, err := v.Validate(ctx, source, dest, 6_000_00)
	if !errors.Is(err, historyErr) {
		t.Fatalf("expected wrapped history error, got %v", err)
	}
}
