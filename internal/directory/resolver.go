package directory

import (
	"context"
	"strings"
	"unicode"

	transferApp "github.com/lumenbank/transfers/internal/application/transfer"
	domainErrors "github.com/lumenbank/transfers/internal/domain/errors"
	"github.com/lumenbank/transfers/internal/repository/postgres"
)

// Store is the directory lookup surface the resolver needs.
type Store interface {
	FindByUsername(ctx context.Context, username string) (*postgres.DirectoryEntry, error)
	FindByEmail(ctx context.Context, email string) (*postgres.DirectoryEntry, error)
	FindByPhone(ctx context.Context, phone string) (*postgres.DirectoryEntry, error)
}

// Resolver maps a human-entered identifier to a recipient. The identifier
// kind is inferred: anything containing '@' is an email, a string of digits
// and phone punctuation is a phone number, everything else is a username.
type Resolver struct {
	store Store
}

// NewResolver creates a Resolver over the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// FindByIdentifier implements the recipient directory contract.
func (r *Resolver) FindByIdentifier(ctx context.Context, identifier string) (*transferApp.Recipient, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, domainErrors.ErrRecipientNotFound
	}

	var (
		entry *postgres.DirectoryEntry
		err   error
	)
	switch {
	case strings.Contains(identifier, "@"):
		entry, err = r.store.FindByEmail(ctx, strings.ToLower(identifier))
	case looksLikePhone(identifier):
		entry, err = r.store.FindByPhone(ctx, digitsOnly(identifier))
	default:
		entry, err = r.store.FindByUsername(ctx, strings.ToLower(identifier))
	}
	if err != nil {
		return nil, err
	}

	contact := entry.Username
	if contact == "" {
		contact = entry.Email
	}
	return &transferApp.Recipient{
		UserID:            entry.UserID,
		DisplayName:       entry.DisplayName,
		ContactIdentifier: contact,
	}, nil
}

// looksLikePhone reports whether the identifier is digits plus common phone
// punctuation, with at least a few digits.
func looksLikePhone(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' || r == '-' || r == '(' || r == ')' || r == ' ' || r == '.':
		default:
			return false
		}
	}
	return digits >= 5
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
