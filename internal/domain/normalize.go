package domain

import "strings"

// NormalizeHumanName trims leading/trailing whitespace and collapses internal whitespace runs.
// It is used for displayName normalization.
func NormalizeHumanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeVoucherCode upper-cases a code and strips surrounding whitespace.
func NormalizeVoucherCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeEmail trims an email address and lower-cases it for comparison.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
