// Package validation holds the input checks run before any remote call or
// state transition. Messages are meant to be shown to the shopper as-is.
package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password the identity service accepts.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Error is a failed input check.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func fail(field, message string) *Error {
	return &Error{Field: field, Message: message}
}

// IsEmail reports whether s looks like an e-mail address.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Blank reports whether s is empty after trimming whitespace.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Email checks that an address was supplied and is well formed.
func Email(email string) error {
	if Blank(email) {
		return fail("email", "Please enter your email address")
	}
	if !IsEmail(strings.TrimSpace(email)) {
		return fail("email", "Please enter a valid email address")
	}
	return nil
}

// Strength is a password strength score from 0 to 4.
type Strength struct {
	Score int    `json:"score"`
	Label string `json:"label"`
}

// PasswordStrength scores one point each for at least 8 characters, an
// ASCII uppercase letter, a digit and any character outside A-Z, a-z, 0-9.
func PasswordStrength(password string) Strength {
	if password == "" {
		return Strength{}
	}

	var upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case r < 'a' || r > 'z':
			special = true
		}
	}

	score := 0
	for _, ok := range []bool{utf8.RuneCountInString(password) >= 8, upper, digit, special} {
		if ok {
			score++
		}
	}

	label := "Weak password"
	switch {
	case score == 4:
		label = "Strong password"
	case score >= 2:
		label = "Moderate password"
	}
	return Strength{Score: score, Label: label}
}

// NewPassword checks a password and its confirmation for sign-up style forms.
// With requireStrength the score must be at least 2.
func NewPassword(password, confirm string, requireStrength bool) error {
	if password == "" {
		return fail("password", "Please enter a password")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fail("password", "Password must be at least 6 characters")
	}
	if requireStrength && PasswordStrength(password).Score < 2 {
		return fail("password", "Please use a stronger password for security")
	}
	if password != confirm {
		return fail("confirmPassword", "Passwords do not match")
	}
	return nil
}

// Code checks a 6-digit numeric one-time code.
func Code(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fail("code", "Please enter the verification code")
	}
	if len(code) != 6 {
		return fail("code", "Enter the 6-digit code sent to your email")
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return fail("code", "Enter the 6-digit code sent to your email")
		}
	}
	return nil
}

// Required fails with message when value is blank.
func Required(field, value, message string) error {
	if Blank(value) {
		return fail(field, message)
	}
	return nil
}
