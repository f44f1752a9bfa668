// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// TokenPurpose separates the single-use tokens an account can hold.
type TokenPurpose string

const (
	PurposePasswordReset TokenPurpose = "password_reset"
	PurposeConfirmation  TokenPurpose = "confirmation"
)

// AccountToken stores the SHA256 hash of an out-of-band token. An account
// holds at most one token per purpose.
type AccountToken struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64        `db:"id"`
	Role      Role         `db:"role"`
	AccountID int64        `db:"account_id"`
	Purpose   TokenPurpose `db:"purpose"`
	TokenHash string       `db:"token_hash"`
	ExpiresAt time.Time    `db:"expires_at"`
	CreatedAt time.Time    `db:"created_at"`
}

// Expired reports whether the token is past its expiry at now.
func (t *AccountToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
