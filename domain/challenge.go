package domain

import "time"

// Ceremony paths a challenge can be issued for. A challenge issued for one
// path never satisfies a result call on the other.
const (
	PathAttestation = "attestation"
	PathAssertion   = "assertion"
)

// Challenge is the single-use record binding an issued challenge value to a
// user and ceremony path. It lives in redis, keyed by path and value, until
// consumed or expired.
type Challenge struct {
	Value            string    `json:"challenge"`
	Path             string    `json:"path"`
	UserID           string    `json:"user_id"`
	UserVerification string    `json:"user_verification,omitempty"`
	IssuedAt         time.Time `json:"issued_at"`
}
