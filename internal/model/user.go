// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"strings"
	"time"
	"unicode"
)

// User is the authenticated account.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// PasswordSpecials lists the characters that satisfy the special-character rule.
const PasswordSpecials = "!@#$%&*"

// Password rule violations.
var (
	ErrPasswordTooShort  = errors.New("password must be at least 8 characters")
	ErrPasswordNoDigit   = errors.New("password must contain a digit")
	ErrPasswordNoUpper   = errors.New("password must contain an upper-case letter")
	ErrPasswordNoSpecial = errors.New("password must contain one of " + PasswordSpecials)
	ErrEmailInvalid      = errors.New("invalid e-mail address")
)

// NormalizeEmail trims and lower-cases an e-mail address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail performs a shallow shape check; the server has the final word.
func ValidateEmail(email string) error {
	email = NormalizeEmail(email)
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at+1:], ".") {
		return ErrEmailInvalid
	}
	return nil
}

// ValidatePassword applies the account password rules.
func ValidatePassword(password string) error {
	if len([]rune(password)) < 8 {
		return ErrPasswordTooShort
	}
	var digit, upper, special bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsUpper(r):
			upper = true
		case strings.ContainsRune(PasswordSpecials, r):
			special = true
		}
	}
	switch {
	case !digit:
		return ErrPasswordNoDigit
	case !upper:
		return ErrPasswordNoUpper
	case !special:
		return ErrPasswordNoSpecial
	}
	return nil
}
