// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/volunteerhub/internal/models"
)

// SaveToken stores a token, replacing any previous token of the same
// purpose for the account.
func (r *Repository) SaveToken(ctx context.Context, token *models.AccountToken) error {
	now := r.timestamp()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO account_tokens (role, account_id, purpose, token_hash, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (role, account_id, purpose)
		 DO UPDATE SET token_hash = excluded.token_hash, expires_at = excluded.expires_at, created_at = excluded.created_at`,
		token.Role, token.AccountID, token.Purpose, token.TokenHash, token.ExpiresAt.UTC(), now)
	if err != nil {
		return wrapError(err)
	}
	token.CreatedAt = now
	return nil
}

// GetToken retrieves the outstanding token of an account for a purpose.
func (r *Repository) GetToken(ctx context.Context, role models.Role, accountID int64, purpose models.TokenPurpose) (*models.AccountToken, error) {
	var token models.AccountToken
	err := r.db.GetContext(ctx, &token,
		`SELECT * FROM account_tokens WHERE role = ? AND account_id = ? AND purpose = ?`,
		role, accountID, purpose)
	if err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// DeleteToken removes the token of an account for a purpose.
func (r *Repository) DeleteToken(ctx context.Context, role models.Role, accountID int64, purpose models.TokenPurpose) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM account_tokens WHERE role = ? AND account_id = ? AND purpose = ?`,
		role, accountID, purpose)
	return err
}

// DeleteExpiredTokens removes tokens that expired before now.
func (r *Repository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM account_tokens WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
