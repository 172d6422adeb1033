package utils

import (
	"net/mail"
	"regexp"
	"strings"
)

var indianMobilePattern = regexp.MustCompile(`^(\+91)?[6-9]\d{9}$`)

func stripPhone(phone string) string {
	cleaned := strings.TrimSpace(phone)
	for _, r := range []string{" ", "-", "(", ")"} {
		cleaned = strings.ReplaceAll(cleaned, r, "")
	}
	return cleaned
}

// ValidateIndianMobile accepts a 10-digit number starting 6-9, optionally
// prefixed with +91. Spaces, dashes and parentheses are ignored.
func ValidateIndianMobile(phone string) bool {
	return indianMobilePattern.MatchString(stripPhone(phone))
}

// NormalizeIndianMobile returns the 10-digit subscriber number, or "" when
// the input is not a valid Indian mobile number.
func NormalizeIndianMobile(phone string) string {
	cleaned := stripPhone(phone)
	if !indianMobilePattern.MatchString(cleaned) {
		return ""
	}
	return strings.TrimPrefix(cleaned, "+91")
}

func ValidateEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
