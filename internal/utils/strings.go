package utils

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	// Vietnamese mobile numbers: 0 or +84 prefix, 9 more digits.
	phonePattern = regexp.MustCompile(`^(0|\+84)[0-9]{9}$`)
)

// NormalizeSpace collapses repeated whitespace into a single space.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizePhone strips spaces, dots and dashes.
func NormalizePhone(s string) string {
	return strings.NewReplacer(" ", "", ".", "", "-", "", "\t", "").Replace(strings.TrimSpace(s))
}

func IsValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

func IsValidPhone(s string) bool {
	return phonePattern.MatchString(NormalizePhone(s))
}

// SafeFilenamePart keeps generated file names portable.
func SafeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "NA"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	s = replacer.Replace(s)
	if len(s) > 40 {
		s = s[:40]
	}
	return s
}
