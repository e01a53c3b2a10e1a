package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenbank/transfers/internal/repository/postgres"
)

type memoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]*postgres.IdempotencyEntry
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{entries: make(map[string]*postgres.IdempotencyEntry)}
}

func (s *memoryIdempotencyStore) Get(_ context.Context, key string) (*postgres.IdempotencyEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[key], nil
}

func (s *memoryIdempotencyStore) Set(_ context.Context, entry *postgres.IdempotencyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Key] = entry
	return nil
}

func idempotencyHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*calls++
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"transaction_id":"abc"}`))
	})
}

func TestIdempotency_NoKeyPassesThrough(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	h := Idempotency(store)(idempotencyHandler(&calls))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/transfers", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
	}

	assert.Equal(t, 2, calls, "requests without a key must each reach the handler")
	assert.Empty(t, store.entries)
}

func TestIdempotency_ReplaysStoredResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	h := Idempotency(store)(idempotencyHandler(&calls))

	first := httptest.NewRequest(http.MethodPost, "/transfers", nil)
	first.Header.Set("Idempotency-Key", "key-1")
	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, first)

	require.Equal(t, http.StatusCreated, w1.Code)
	require.Equal(t, 1, calls)
	assert.Empty(t, w1.Header().Get("X-Idempotency-Replayed"))

	second := httptest.NewRequest(http.MethodPost, "/transfers", nil)
	second.Header.Set("Idempotency-Key", "key-1")
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, second)

	assert.Equal(t, http.StatusCreated, w2.Code)
	assert.Equal(t, w1.Body.String(), w2.Body.String())
	assert.Equal(t, "true", w2.Header().Get("X-Idempotency-Replayed"))
	assert.Equal(t, 1, calls, "replay must not reach the handler")
}

func TestIdempotency_DistinctKeysAreIndependent(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	h := Idempotency(store)(idempotencyHandler(&calls))

	for _, key := range []string{"key-a", "key-b"} {
		req := httptest.NewRequest(http.MethodPost, "/transfers", nil)
		req.Header.Set("Idempotency-Key", key)
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 2, calls)
	assert.Len(t, store.entries, 2)
}

func TestIdempotency_ServerErrorsNotStored(t *testing.T) {
	store := newMemoryIdempotencyStore()
	h := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	req := httptest.NewRequest(http.MethodPost, "/transfers", nil)
	req.Header.Set("Idempotency-Key", "key-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Empty(t, store.entries, "5xx responses must not be replayable")
}

func TestIdempotency_ClientErrorsAreStored(t *testing.T) {
	store := newMemoryIdempotencyStore()
	h := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"code":"insufficient_funds"}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/transfers", nil)
	req.Header.Set("Idempotency-Key", "key-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, store.entries, 1)
	assert.Equal(t, http.StatusUnprocessableEntity, store.entries["key-1"].ResponseStatus)
}

func TestIdempotency_OversizedBodyNotStored(t *testing.T) {
	store := newMemoryIdempotencyStore()
	large := strings.Repeat("x", maxIdempotencyBodySize+1)
	h := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(large))
	}))

	req := httptest.NewRequest(http.MethodPost, "/transfers", nil)
	req.Header.Set("Idempotency-Key", "key-1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, len(large), w.Body.Len(), "the client still gets the full body")
	assert.Empty(t, store.entries)
}
