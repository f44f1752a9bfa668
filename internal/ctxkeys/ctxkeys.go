// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package ctxkeys defines typed context keys used across packages.
package ctxkeys

// Account is the context key for the authenticated account.
type Account struct{}

// Claims is the context key for the validated session claims.
type Claims struct{}
