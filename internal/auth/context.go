// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth provides authentication context helpers.
package auth

import (
	"context"

	"codeberg.org/oliverandrich/volunteerhub/internal/ctxkeys"
	"codeberg.org/oliverandrich/volunteerhub/internal/models"
	"codeberg.org/oliverandrich/volunteerhub/internal/services/session"
)

// WithAccount stores the authenticated account and its session claims.
func WithAccount(ctx context.Context, acct models.Account, claims *session.Claims) context.Context {
	ctx = context.WithValue(ctx, ctxkeys.Account{}, acct)
	return context.WithValue(ctx, ctxkeys.Claims{}, claims)
}

// GetAccount returns the authenticated account from the context, or nil if not authenticated.
func GetAccount(ctx context.Context) models.Account {
	if acct, ok := ctx.Value(ctxkeys.Account{}).(models.Account); ok {
		return acct
	}
	return nil
}

// GetClaims returns the session claims of the authenticated account, or nil.
func GetClaims(ctx context.Context) *session.Claims {
	if claims, ok := ctx.Value(ctxkeys.Claims{}).(*session.Claims); ok {
		return claims
	}
	return nil
}

// IsAuthenticated returns true if the context has an authenticated account.
func IsAuthenticated(ctx context.Context) bool {
	return GetAccount(ctx) != nil
}
