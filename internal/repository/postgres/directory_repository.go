package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/lumenbank/transfers/internal/domain/errors"
)

// DirectoryEntry is one row of the user directory.
type DirectoryEntry struct {
	UserID      string
	DisplayName string
	Username    string
	Email       string
	Phone       string
}

// DirectoryRepository looks up users by the identifiers customers type in.
type DirectoryRepository struct {
	pool *pgxpool.Pool
}

// NewDirectoryRepository creates a new DirectoryRepository.
func NewDirectoryRepository(pool *pgxpool.Pool) *DirectoryRepository {
	return &DirectoryRepository{pool: pool}
}

func (r *DirectoryRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// FindByUsername retrieves a user by username (already normalized).
func (r *DirectoryRepository) FindByUsername(ctx context.Context, username string) (*DirectoryEntry, error) {
	return r.find(ctx, `SELECT user_id, display_name, username, email, phone FROM user_directory WHERE username = $1`, username)
}

// FindByEmail retrieves a user by email (already normalized).
func (r *DirectoryRepository) FindByEmail(ctx context.Context, email string) (*DirectoryEntry, error) {
	return r.find(ctx, `SELECT user_id, display_name, username, email, phone FROM user_directory WHERE email = $1`, email)
}

// FindByPhone retrieves a user by phone digits (already normalized).
func (r *DirectoryRepository) FindByPhone(ctx context.Context, phone string) (*DirectoryEntry, error) {
	return r.find(ctx, `SELECT user_id, display_name, username, email, phone FROM user_directory WHERE phone = $1`, phone)
}

func (r *DirectoryRepository) find(ctx context.Context, sql string, arg any) (*DirectoryEntry, error) {
	e := &DirectoryEntry{}
	err := r.db(ctx).QueryRow(ctx, sql, arg).Scan(&e.UserID, &e.DisplayName, &e.Username, &e.Email, &e.Phone)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrRecipientNotFound
		}
		return nil, fmt.Errorf("find directory entry: %w", err)
	}
	return e, nil
}
