package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/lumenbank/transfers/internal/domain/errors"
	"github.com/lumenbank/transfers/internal/repository/postgres"
)

type fakeStore struct {
	method string
	arg    string
	entry  *postgres.DirectoryEntry
	err    error
}

func (f *fakeStore) FindByUsername(_ context.Context, username string) (*postgres.DirectoryEntry, error) {
	f.method, f.arg = "username", username
	return f.lookup()
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) (*postgres.DirectoryEntry, error) {
	f.method, f.arg = "email", email
	return f.lookup()
}

func (f *fakeStore) FindByPhone(_ context.Context, phone string) (*postgres.DirectoryEntry, error) {
	f.method, f.arg = "phone", phone
	return f.lookup()
}

func (f *fakeStore) lookup() (*postgres.DirectoryEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entry, nil
}

func entryFor(username, email string) *postgres.DirectoryEntry {
	return &postgres.DirectoryEntry{
		UserID:      "3f1c9a4e-0000-0000-0000-000000000002",
		DisplayName: "Maria Lima",
		Username:    username,
		Email:       email,
	}
}

func TestFindByIdentifier_Classification(t *testing.T) {
	tests := []struct {
		name       string
		identifier string
		wantMethod string
		wantArg    string
	}{
		{"plain username", "maria", "username", "maria"},
		{"username uppercased", "  Maria.Lima  ", "username", "maria.lima"},
		{"email", "Maria@Example.com", "email", "maria@example.com"},
		{"bare phone", "11987654321", "phone", "11987654321"},
		{"formatted phone", "+55 (11) 98765-4321", "phone", "5511987654321"},
		{"short digit run is a username", "1234", "username", "1234"},
		{"digits with letters is a username", "maria2024", "username", "maria2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{entry: entryFor("maria", "maria@example.com")}
			r := NewResolver(store)

			_, err := r.FindByIdentifier(context.Background(), tt.identifier)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMethod, store.method)
			assert.Equal(t, tt.wantArg, store.arg)
		})
	}
}

func TestFindByIdentifier_RecipientMapping(t *testing.T) {
	store := &fakeStore{entry: entryFor("maria", "maria@example.com")}
	r := NewResolver(store)

	rec, err := r.FindByIdentifier(context.Background(), "maria")
	require.NoError(t, err)
	assert.Equal(t, "3f1c9a4e-0000-0000-0000-000000000002", rec.UserID)
	assert.Equal(t, "Maria Lima", rec.DisplayName)
	assert.Equal(t, "maria", rec.ContactIdentifier)
}

func TestFindByIdentifier_ContactFallsBackToEmail(t *testing.T) {
	store := &fakeStore{entry: entryFor("", "maria@example.com")}
	r := NewResolver(store)

	rec, err := r.FindByIdentifier(context.Background(), "maria@example.com")
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", rec.ContactIdentifier)
}

func TestFindByIdentifier_Empty(t *testing.T) {
	store := &fakeStore{}
	r := NewResolver(store)

	_, err := r.FindByIdentifier(context.Background(), "   ")
	assert.ErrorIs(t, err, domainErrors.ErrRecipientNotFound)
	assert.Empty(t, store.method, "store must not be consulted for a blank identifier")
}

func TestFindByIdentifier_NotFoundPassesThrough(t *testing.T) {
	store := &fakeStore{err: domainErrors.ErrRecipientNotFound}
	r := NewResolver(store)

	_, err := r.FindByIdentifier(context.Background(), "ghost")
	assert.ErrorIs(t, err, domainErrors.ErrRecipientNotFound)
}

func TestLooksLikePhone(t *testing.T) {
	assert.True(t, looksLikePhone("11987654321"))
	assert.True(t, looksLikePhone("+55 11 98765-4321"))
	assert.False(t, looksLikePhone("1234"), "too few digits")
	assert.False(t, looksLikePhone("maria"))
	assert.False(t, looksLikePhone("123-abc-456"))
}
