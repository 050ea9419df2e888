// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"unicode"
)

const (
	minPasswordLen = 8
	// bcrypt ignores bytes beyond 72.
	maxPasswordBytes = 72
)

var userIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{1,62}[A-Za-z0-9]$`)

// ValidatePassword checks length and requires at least one letter and one digit.
func ValidatePassword(password string) error {
	if len([]rune(password)) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLen)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("password must not exceed %d bytes", maxPasswordBytes)
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		return fmt.Errorf("password must contain at least one letter")
	}
	if !hasDigit {
		return fmt.Errorf("password must contain at least one digit")
	}
	return nil
}

// ValidateUserID checks the login id chosen at registration: 3-64 characters of
// letters, digits, dot, dash or underscore, starting and ending alphanumeric.
func ValidateUserID(id string) error {
	if !userIDRegex.MatchString(id) {
		return fmt.Errorf("id must be 3-64 characters of letters, digits, '.', '-' or '_' and start and end with a letter or digit")
	}
	return nil
}
