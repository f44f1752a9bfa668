// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package models holds the persisted entities: the three account kinds,
// account tokens and projects.
package models

import "time"

// Role identifies an account kind. The set is closed.
type Role string

const (
	RoleUser         Role = "user"
	RoleProjectOwner Role = "project_owner"
	RoleAdmin        Role = "admin"
)

// Roles lists every account kind.
var Roles = []Role{RoleUser, RoleProjectOwner, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleProjectOwner, RoleAdmin:
		return true
	}
	return false
}

// PathSegment returns the plural URL segment used for the role's routes.
func (r Role) PathSegment() string {
	return string(r) + "s"
}

// Account is the capability set shared by every account kind. Session
// issuing and the access guard work against this interface only.
type Account interface {
	AccountID() int64
	AccountRole() Role
	AccountEmail() string
	AccountName() string
	CredentialHash() string
	LastLogout() *time.Time
}

// Identity holds the columns common to every account table.
type Identity struct { //nolint:govet // fieldalignment: readability over optimization
	ID           int64      `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Name         string     `db:"name" json:"name"`
	PasswordHash string     `db:"password_hash" json:"-"`
	LastLogoutAt *time.Time `db:"last_logout_at" json:"-"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

func (i *Identity) AccountID() int64       { return i.ID }
func (i *Identity) AccountEmail() string   { return i.Email }
func (i *Identity) AccountName() string    { return i.Name }
func (i *Identity) CredentialHash() string { return i.PasswordHash }
func (i *Identity) LastLogout() *time.Time { return i.LastLogoutAt }

// Confirmation marks accounts that must confirm their email before login.
type Confirmation struct {
	ConfirmedAt *time.Time `db:"confirmed_at" json:"confirmedAt,omitempty"`
}

// IsConfirmed reports whether the account finished sign-up confirmation.
func (c *Confirmation) IsConfirmed() bool {
	return c.ConfirmedAt != nil
}

// Confirmable is implemented by account kinds that go through sign-up confirmation.
type Confirmable interface {
	Account
	IsConfirmed() bool
}
