// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"strings"
	"testing"

	"codeberg.org/oliverandrich/volunteerhub/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordValidator(t *testing.T) {
	v := DefaultPasswordValidator()

	tests := []struct {
		name     string
		password string
		attrs    []string
		problem  string
	}{
		{"valid", "orange-kayak-sunrise", []string{"ada@example.com"}, ""},
		{"too short", "kayak", nil, "at least 10"},
		{"too long", strings.Repeat("x", MaxPasswordLength+1), nil, "at most 72"},
		{"numeric", "12345678901", nil, "entirely numeric"},
		{"common", "Password123", nil, "too common"},
		{"contains email local part", "margaret.hamilton!", []string{"margaret.hamilton@example.com"}, "too similar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := v.Validate(tt.password, tt.attrs...)
			if tt.problem == "" {
				assert.Empty(t, problems)
				return
			}
			require.NotEmpty(t, problems)
			assert.Contains(t, strings.Join(problems, "; "), tt.problem)
		})
	}
}

func TestPasswordValidator_Check(t *testing.T) {
	v := DefaultPasswordValidator()

	require.NoError(t, v.Check("password", "orange-kayak-sunrise"))

	err := v.Check("newPassword", "123")
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "newPassword")
}

func TestCommonPasswordsLoaded(t *testing.T) {
	assert.NotEmpty(t, commonPasswords)
	assert.True(t, isCommonPassword("QWERTY"))
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, similarity("abc", "abc"), 0.001)
	assert.InDelta(t, 0.0, similarity("", "abc"), 0.001)
	assert.Equal(t, 3, longestCommonSubsequence("abcdef", "axbxcx"))
}
