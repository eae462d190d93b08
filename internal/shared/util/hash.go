// Package util holds small helpers for logging and file naming.
package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ShortHash is a stable 12-character digest for logging personal data
// (client addresses, email addresses) without writing it out. Input is
// trimmed and lowercased first so "Jane@Example.com " and
// "jane@example.com" hash alike.
func ShortHash(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:6])
}
