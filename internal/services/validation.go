package services

import (
	"regexp"
	"strings"
)

const (
	minPasswordLength = 6
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return ValidationError("email", "email is required")
	}
	if !emailPattern.MatchString(email) {
		return ValidationError("email", "email is not valid")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ValidationError("password", "password must be at least 6 characters")
	}
	if len(password) > maxPasswordBytes {
		return ValidationError("password", "password must be at most 72 bytes")
	}
	return nil
}

func validateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError(field, field+" is required")
	}
	return nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases and collapses runs of non-alphanumerics into single hyphens.
func slugify(name string) string {
	slug := slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 48 {
		slug = strings.TrimRight(slug[:48], "-")
	}
	return slug
}
