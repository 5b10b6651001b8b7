package util

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"

	"github.com/hashicorp/go-uuid"
)

// ChallengeByteLength is the raw size of every ceremony challenge.
const ChallengeByteLength = 64

// GenerateChallenge returns a fresh base64url-encoded ceremony challenge.
func GenerateChallenge() (string, error) {
	buf := make([]byte, ChallengeByteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateUserID returns an opaque server-side user identifier.
func GenerateUserID() (string, error) {
	return uuid.GenerateUUID()
}

// GenerateRequestID returns a short correlation id prefixed to every failed
// ceremony response so log lines can be matched to the envelope.
func GenerateRequestID() string {
	b, err := uuid.GenerateRandomBytes(5)
	if err != nil {
		return "0000000000"
	}
	return hex.EncodeToString(b)
}
