// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/volunteerhub/internal/models"
	"codeberg.org/oliverandrich/volunteerhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	db, repo := testutil.NewTestDB(t)

	assert.NotNil(t, repo)
	assert.Same(t, db, repo.DB())
}

func TestTimestampsAreUTCMilliseconds(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := &models.User{Identity: models.Identity{Email: "ts@example.com", Name: "TS", PasswordHash: "x"}}
	require.NoError(t, repo.CreateUser(ctx, user))

	assert.Equal(t, time.UTC, user.CreatedAt.Location())
	assert.True(t, user.CreatedAt.Equal(user.CreatedAt.Truncate(time.Millisecond)))

	stored, err := repo.GetAccountByID(ctx, models.RoleUser, user.ID)
	require.NoError(t, err)
	assert.True(t, stored.(*models.User).CreatedAt.Equal(user.CreatedAt))
}
