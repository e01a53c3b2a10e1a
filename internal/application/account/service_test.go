package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	accountApp "github.com/lumenbank/transfers/internal/application/account"
	domainAccount "github.com/lumenbank/transfers/internal/domain/account"
	"github.com/lumenbank/transfers/internal/domain/transaction"
)

type fakeTransactionRepo struct {
	transaction.Repository

	since time.Time
	total int64
}

func (f *fakeTransactionRepo) RecentDebitTotal(_ context.Context, _ uuid.UUID, since time.Time) (int64, error) {
	f.since = since
	return f.total, nil
}

type fakeAccountRepo struct {
	domainAccount.Repository
}

func TestRecentDebitTotal_WindowBecomesCutoff(t *testing.T) {
	txRepo := &fakeTransactionRepo{total: 4_200_00}
	svc := accountApp.NewService(&fakeAccountRepo{}, txRepo, zerolog.Nop())

	before := time.Now().Add(-24 * time.Hour)
	total, err := svc.RecentDebitTotal(context.Background(), uuid.New(), 24*time.Hour)
	after := time.Now().Add(-24 * time.Hour)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 4_200_00 {
		t.Errorf("expected total 420000, got %d", total)
	}
	if txRepo.since.Before(before) || txRepo.since.After(after) {
		t.Errorf("expected cutoff near now-24h, got %v", txRepo.since)
	}
}
