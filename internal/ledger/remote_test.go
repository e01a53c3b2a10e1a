package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*RemoteClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewRemoteClient(RemoteConfig{
		BaseURL:        srv.URL,
		CallTimeout:    2 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: 5 * time.Millisecond,
	}, zerolog.Nop())
	return client, srv
}

func testInput() TransferInput {
	return TransferInput{
		FromAccountID:  uuid.New(),
		ToAccountID:    uuid.New(),
		Amount:         120_00,
		Currency:       "BRL",
		Description:    "dinner split",
		IdempotencyKey: "idem-123",
	}
}

func TestRemoteClient_ProcessTransfer_Success(t *testing.T) {
	txID := uuid.New()
	var calls atomic.Int32

	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/processTransfer", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(12000), req["amount_cents"])
		assert.Equal(t, "BRL", req["currency"])
		assert.Equal(t, "idem-123", req["idempotency_key"])

		json.NewEncoder(w).Encode(map[string]any{
			"success":            true,
			"transaction_id":     txID.String(),
			"from_balance_cents": 380_00,
		})
	})

	out, err := client.ProcessTransfer(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, txID, out.TransactionID)
	assert.Equal(t, int64(380_00), out.FromBalance)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRemoteClient_ProcessTransfer_InsufficientFundsNotRetried(t *testing.T) {
	var calls atomic.Int32

	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error": map[string]string{
				"code":    "insufficient_funds",
				"message": "balance too low",
			},
		})
	})

	_, err := client.ProcessTransfer(context.Background(), testInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int32(1), calls.Load(), "business rejections must not be retried")
}

func TestRemoteClient_ProcessTransfer_NotFound(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   map[string]string{"code": "not_found", "message": "no such account"},
		})
	})

	_, err := client.ProcessTransfer(context.Background(), testInput())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoteClient_ProcessTransfer_RetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	txID := uuid.New()

	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]any{"success": false})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success":            true,
			"transaction_id":     txID.String(),
			"from_balance_cents": 100_00,
		})
	})

	out, err := client.ProcessTransfer(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, txID, out.TransactionID)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRemoteClient_ProcessTransfer_DeadlineIsAmbiguous(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.ProcessTransfer(ctx, testInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguous)
}

func TestRemoteClient_ProcessTransfer_MalformedResponse(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success":        true,
			"transaction_id": "not-a-uuid",
		})
	})

	_, err := client.ProcessTransfer(context.Background(), testInput())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAmbiguous)
	assert.False(t, errors.Is(err, ErrInsufficientFunds))
}

func TestDecodeFailure_UnknownCodeOn4xxIsUnrecoverable(t *testing.T) {
	err := decodeFailure(http.StatusBadRequest, processTransferResponse{
		Error: &struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}{Code: "weird", Message: "what"},
	})
	assert.ErrorIs(t, err, ErrInternal)
}
