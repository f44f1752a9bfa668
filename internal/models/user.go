// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

// User is a volunteer browsing projects.
type User struct {
	Identity
	Confirmation
}

func (u *User) AccountRole() Role { return RoleUser }

// ProjectOwner creates and manages projects.
type ProjectOwner struct { //nolint:govet // fieldalignment: readability over optimization
	Identity
	Confirmation
	Organisation string `db:"organisation" json:"organisation"`
	Website      string `db:"website" json:"website"`
	Phone        string `db:"phone" json:"phone"`
}

func (o *ProjectOwner) AccountRole() Role { return RoleProjectOwner }

// Admin reviews projects. Admins are created as seed data and never confirm.
type Admin struct {
	Identity
}

func (a *Admin) AccountRole() Role { return RoleAdmin }

// NewAccount returns an empty account value of the given kind, ready to be
// scanned into.
func NewAccount(role Role) Account {
	switch role {
	case RoleUser:
		return &User{}
	case RoleProjectOwner:
		return &ProjectOwner{}
	case RoleAdmin:
		return &Admin{}
	}
	return nil
}
