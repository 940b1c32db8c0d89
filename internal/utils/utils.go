package utils

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
)

// IsPasswordValid enforces password policy (≥8 chars, ≥1 special char)
func IsPasswordValid(p string) bool {
	if len(p) < 8 {
		return false
	}
	// regex: at least one non-alphanumeric character
	re := regexp.MustCompile(`[!@#\$%\^&\*\(\)\-_=\+\[\]\{\}\\|;:'",<>\./\?]`)
	return re.MatchString(p)
}

// NormalizeEmail lowercases the whole address. Lowering the local part too
// avoids case-variant duplicates in practice.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewPublicToken returns a high-entropy opaque token used as proof of
// ownership for guest sessions.
func NewPublicToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
