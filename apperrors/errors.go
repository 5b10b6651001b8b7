package apperrors

import (
	"errors"
	"fmt"
)

// Ceremony failure kinds. The wire contract collapses all of them into one
// failed envelope; handlers log the concrete kind before responding.
var (
	ErrValidation              = errors.New("request is invalid")
	ErrNotFound                = errors.New("record is not found")
	ErrConflict                = errors.New("record already exists")
	ErrVerificationFailed      = errors.New("ceremony verification failed")
	ErrUntrustedAuthenticator  = errors.New("authenticator is not trusted")
	ErrAttestationTypeMismatch = errors.New("attestation type does not match")
	ErrIntegrityMismatch       = errors.New("metadata integrity hash does not match")
)

// Wrap annotates err with the failing operation, keeping the sentinel
// reachable through errors.Is.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// Kind names the taxonomy bucket for logging and audit events.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUntrustedAuthenticator):
		return "untrusted_authenticator"
	case errors.Is(err, ErrAttestationTypeMismatch):
		return "attestation_type_mismatch"
	case errors.Is(err, ErrIntegrityMismatch):
		return "integrity_mismatch"
	case errors.Is(err, ErrVerificationFailed):
		return "verification_failed"
	default:
		return "store_error"
	}
}
