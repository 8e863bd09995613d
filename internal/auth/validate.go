package auth

import (
	"net/mail"
	"strings"
	"unicode"
)

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	_, err := mail.ParseAddress(email)
	return err == nil
}

func validateUsername(username string) error {
	if len(username) < 3 || len(username) > 32 {
		return validationErr("username must be between 3 and 32 characters")
	}
	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' && r != '.' {
			return validationErr("username may only contain letters, digits, '_', '-' and '.'")
		}
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return validationErr("password must be at least 8 characters long")
	}
	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	if !hasUpper {
		return validationErr("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return validationErr("password must contain at least one lowercase letter")
	}
	if !hasDigit {
		return validationErr("password must contain at least one number")
	}
	if !hasSpecial {
		return validationErr("password must contain at least one special character")
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
