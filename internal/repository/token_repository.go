package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TokenRepo stores refresh tokens by their SHA-256 hash.  A token is live
// while it is neither revoked nor expired.
type TokenRepo struct {
	DB  *sql.DB
	Now func() time.Time
}

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db, Now: time.Now} }

const (
	insertRefreshSQL = `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`
	selectRefreshSQL = `SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash = ? LIMIT 1`
	// only live rows are touched so a second revoke of the same token
	// affects nothing
	revokeHashSQL = `UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ?`
	revokeUserSQL = `UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL`
)

func (r *TokenRepo) now() time.Time { return r.Now().UTC() }

// StoreRefresh records a new token for userID.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx, insertRefreshSQL, userID, tokenHash, exp.UTC())
	return mapErr(err)
}

// ValidateRefresh returns the owner of a live token, ErrNotFound otherwise.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, selectRefreshSQL, tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, mapErr(err)
	}
	if revokedAt.Valid || !r.now().Before(expiresAt) {
		return 0, ErrNotFound
	}
	return userID, nil
}

// RevokeByHash revokes one live token.  It returns ErrNotFound when the
// token was already spent, which makes rotation single-use even when two
// refreshes race.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	now := r.now()
	res, err := r.DB.ExecContext(ctx, revokeHashSQL, now, tokenHash, now)
	if err != nil {
		return mapErr(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeAllForUser revokes every live token of userID.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, revokeUserSQL, r.now(), userID)
	return mapErr(err)
}
