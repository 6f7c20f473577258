// Package normalize canonicalizes extracted fact values. Every function is
// total: an unparseable input becomes the absent value, never an error, and
// normalizing already-normalized input is a no-op.
package normalize

import (
	"regexp"
	"strings"
)

var multiSpace = regexp.MustCompile(`\s+`)

// Text lowercases, collapses whitespace, and trims.
func Text(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return multiSpace.ReplaceAllString(strings.ToLower(s), " ")
}

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)

// Code uppercases and strips non-alphanumerics, so "d-0120" and "D0120"
// fingerprint identically.
func Code(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return nonAlphanumeric.ReplaceAllString(strings.ToUpper(s), "")
}
