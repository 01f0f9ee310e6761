package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const inviteTokenBytes = 32

// GenerateInviteToken returns a new handoff invite token and its storage
// hash. Only the hash is persisted; the plaintext token is shown once to
// the requester.
func GenerateInviteToken() (token, hash string, err error) {
	raw := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate invite token: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(raw)
	return token, HashInviteToken(token), nil
}

// HashInviteToken returns the hex SHA-256 of a token, the form stored in
// and looked up from the handoffs table.
func HashInviteToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidInviteToken reports whether the string looks like a token we
// issued, rejecting junk before it reaches the database.
func ValidInviteToken(token string) bool {
	if len(token) != base64.RawURLEncoding.EncodedLen(inviteTokenBytes) {
		return false
	}
	return !strings.ContainsAny(token, "+/=")
}
