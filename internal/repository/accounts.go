// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/volunteerhub/internal/models"
)

var accountTables = map[models.Role]string{
	models.RoleUser:         "users",
	models.RoleProjectOwner: "project_owners",
	models.RoleAdmin:        "admins",
}

func accountTable(role models.Role) (string, error) {
	table, ok := accountTables[role]
	if !ok {
		return "", fmt.Errorf("unknown role %q", role)
	}
	return table, nil
}

// GetAccountByID retrieves an account of the given kind by ID.
func (r *Repository) GetAccountByID(ctx context.Context, role models.Role, id int64) (models.Account, error) {
	table, err := accountTable(role)
	if err != nil {
		return nil, err
	}
	acct := models.NewAccount(role)
	if err := r.db.GetContext(ctx, acct, `SELECT * FROM `+table+` WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return acct, nil
}

// GetAccountByEmail retrieves an account of the given kind by email.
// Emails compare case-insensitively.
func (r *Repository) GetAccountByEmail(ctx context.Context, role models.Role, email string) (models.Account, error) {
	table, err := accountTable(role)
	if err != nil {
		return nil, err
	}
	acct := models.NewAccount(role)
	if err := r.db.GetContext(ctx, acct, `SELECT * FROM `+table+` WHERE email = ?`, email); err != nil {
		return nil, wrapError(err)
	}
	return acct, nil
}

// CreateUser creates a new user.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	now := r.timestamp()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, name, password_hash, confirmed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.Email, user.Name, user.PasswordHash, user.ConfirmedAt, now, now)
	if err != nil {
		return wrapError(err)
	}
	user.ID, err = res.LastInsertId()
	user.CreatedAt, user.UpdatedAt = now, now
	return err
}

// CreateProjectOwner creates a new project owner.
func (r *Repository) CreateProjectOwner(ctx context.Context, owner *models.ProjectOwner) error {
	now := r.timestamp()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO project_owners
		 (email, name, password_hash, confirmed_at, organisation, website, phone, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		owner.Email, owner.Name, owner.PasswordHash, owner.ConfirmedAt,
		owner.Organisation, owner.Website, owner.Phone, now, now)
	if err != nil {
		return wrapError(err)
	}
	owner.ID, err = res.LastInsertId()
	owner.CreatedAt, owner.UpdatedAt = now, now
	return err
}

// CreateAdmin creates a new admin.
func (r *Repository) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	now := r.timestamp()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (email, name, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		admin.Email, admin.Name, admin.PasswordHash, now, now)
	if err != nil {
		return wrapError(err)
	}
	admin.ID, err = res.LastInsertId()
	admin.CreatedAt, admin.UpdatedAt = now, now
	return err
}

// UpdatePassword stores a new password hash for an account.
func (r *Repository) UpdatePassword(ctx context.Context, role models.Role, id int64, passwordHash string) error {
	table, err := accountTable(role)
	if err != nil {
		return err
	}
	return r.execOne(ctx,
		`UPDATE `+table+` SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, r.timestamp(), id)
}

// SetLastLogout records the logout time of an account. The stored value has
// millisecond precision, so callers should truncate before comparing.
func (r *Repository) SetLastLogout(ctx context.Context, role models.Role, id int64, at time.Time) error {
	table, err := accountTable(role)
	if err != nil {
		return err
	}
	return r.execOne(ctx,
		`UPDATE `+table+` SET last_logout_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC().Truncate(time.Millisecond), r.timestamp(), id)
}

// MarkConfirmed sets the confirmation time of a user or project owner.
func (r *Repository) MarkConfirmed(ctx context.Context, role models.Role, id int64, at time.Time) error {
	if role == models.RoleAdmin {
		return fmt.Errorf("admins have no confirmation")
	}
	table, err := accountTable(role)
	if err != nil {
		return err
	}
	return r.execOne(ctx,
		`UPDATE `+table+` SET confirmed_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC().Truncate(time.Millisecond), r.timestamp(), id)
}

// CountAdmins returns the number of admins.
func (r *Repository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM admins`)
	return count, err
}

// execOne runs an update that must touch exactly one row.
func (r *Repository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
