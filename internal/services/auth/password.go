// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"bufio"
	"embed"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"codeberg.org/oliverandrich/volunteerhub/internal/apperr"
)

//go:embed common_passwords.txt
var commonPasswordsFS embed.FS

var commonPasswords = loadCommonPasswords()

func loadCommonPasswords() map[string]struct{} {
	set := make(map[string]struct{})
	file, err := commonPasswordsFS.Open("common_passwords.txt")
	if err != nil {
		return set
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if password := strings.ToLower(strings.TrimSpace(scanner.Text())); password != "" {
			set[password] = struct{}{}
		}
	}
	return set
}

// MaxPasswordLength is the bcrypt input limit in bytes.
const MaxPasswordLength = 72

// PasswordValidator checks new passwords.
type PasswordValidator struct {
	MinLength            int
	CheckCommonPasswords bool
	CheckUserSimilarity  bool
}

// DefaultPasswordValidator returns the validator used for sign-up, password
// changes and resets.
func DefaultPasswordValidator() *PasswordValidator {
	return &PasswordValidator{
		MinLength:            10,
		CheckCommonPasswords: true,
		CheckUserSimilarity:  true,
	}
}

// Validate returns one message per failed rule. userAttributes are values
// the password must not resemble, such as the email address.
func (v *PasswordValidator) Validate(password string, userAttributes ...string) []string {
	var problems []string

	if utf8.RuneCountInString(password) < v.MinLength {
		problems = append(problems, fmt.Sprintf("must be at least %d characters long", v.MinLength))
	}
	if len(password) > MaxPasswordLength {
		problems = append(problems, fmt.Sprintf("must be at most %d bytes long", MaxPasswordLength))
	}
	if isEntirelyNumeric(password) {
		problems = append(problems, "cannot be entirely numeric")
	}
	if v.CheckCommonPasswords && isCommonPassword(password) {
		problems = append(problems, "is too common")
	}
	if v.CheckUserSimilarity && isSimilarToUserAttributes(password, userAttributes) {
		problems = append(problems, "is too similar to your personal information")
	}

	return problems
}

// Check validates password and reports failures as field errors on field.
func (v *PasswordValidator) Check(field, password string, userAttributes ...string) error {
	var fields apperr.Fields
	for _, msg := range v.Validate(password, userAttributes...) {
		fields.Add(field, msg)
	}
	return fields.Err()
}

func isEntirelyNumeric(password string) bool {
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(password) > 0
}

func isCommonPassword(password string) bool {
	_, exists := commonPasswords[strings.ToLower(password)]
	return exists
}

func isSimilarToUserAttributes(password string, attributes []string) bool {
	passwordLower := strings.ToLower(password)

	for _, attr := range attributes {
		attrLower := strings.ToLower(attr)
		if local, _, ok := strings.Cut(attrLower, "@"); ok {
			attrLower = local
		}
		if len(attrLower) < 3 {
			continue
		}
		if strings.Contains(passwordLower, attrLower) || strings.Contains(attrLower, passwordLower) {
			return true
		}
		if similarity(passwordLower, attrLower) > 0.7 {
			return true
		}
	}

	return false
}

func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	return float64(longestCommonSubsequence(a, b)) / float64(max(len(a), len(b)))
}

func longestCommonSubsequence(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
