package services

import (
	"bytes"

	"fido2_rp_ms/apperrors"
	"fido2_rp_ms/domain"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// ParsedAttestation carries the fields the orchestrator needs before the
// cryptographic verification runs: the client challenge to consume and the
// claimed authenticator model.
type ParsedAttestation struct {
	Challenge string
	AAGUID    []byte

	raw *protocol.ParsedCredentialCreationData
}

type ParsedAssertion struct {
	Challenge    string
	CredentialID []byte

	raw *protocol.ParsedCredentialAssertionData
}

// AttestationOutcome is what a positive attestation verification reports.
type AttestationOutcome struct {
	CredentialID     []byte
	PublicKey        []byte
	AAGUID           []byte
	SignCount        uint32
	AttestationTypes []string
}

type AssertionOutcome struct {
	CredentialID []byte
	SignCount    uint32
}

// ICeremonyVerifier wraps the opaque WebAuthn binary parsing and signature
// verification. The ceremony layer never touches COSE keys or certificate
// chains directly.
type ICeremonyVerifier interface {
	ParseAttestation(body []byte) (*ParsedAttestation, error)
	VerifyAttestation(user webauthn.User, challenge *domain.Challenge, parsed *ParsedAttestation) (*AttestationOutcome, error)
	ParseAssertion(body []byte) (*ParsedAssertion, error)
	VerifyAssertion(user webauthn.User, challenge *domain.Challenge, parsed *ParsedAssertion) (*AssertionOutcome, error)
}

type CeremonyVerifier struct {
	wa *webauthn.WebAuthn
}

func NewCeremonyVerifier(wa *webauthn.WebAuthn) ICeremonyVerifier {
	return &CeremonyVerifier{wa: wa}
}

func (v *CeremonyVerifier) ParseAttestation(body []byte) (*ParsedAttestation, error) {
	pcc, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap("parse attestation response", apperrors.ErrVerificationFailed)
	}
	return &ParsedAttestation{
		Challenge: pcc.Response.CollectedClientData.Challenge,
		AAGUID:    pcc.Response.AttestationObject.AuthData.AttData.AAGUID,
		raw:       pcc,
	}, nil
}

// VerifyAttestation rebuilds the ceremony session from the consumed
// challenge record; expiry is already enforced by the challenge TTL.
func (v *CeremonyVerifier) VerifyAttestation(user webauthn.User, challenge *domain.Challenge, parsed *ParsedAttestation) (*AttestationOutcome, error) {
	session := webauthn.SessionData{
		Challenge: challenge.Value,
		UserID:    user.WebAuthnID(),
	}

	cred, err := v.wa.CreateCredential(user, session, parsed.raw)
	if err != nil {
		return nil, apperrors.Wrap(err.Error(), apperrors.ErrVerificationFailed)
	}

	return &AttestationOutcome{
		CredentialID:     cred.ID,
		PublicKey:        cred.PublicKey,
		AAGUID:           cred.Authenticator.AAGUID,
		SignCount:        cred.Authenticator.SignCount,
		AttestationTypes: observedAttestationTypes(parsed.raw.Response.AttestationObject),
	}, nil
}

func (v *CeremonyVerifier) ParseAssertion(body []byte) (*ParsedAssertion, error) {
	pca, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap("parse assertion response", apperrors.ErrVerificationFailed)
	}
	return &ParsedAssertion{
		Challenge:    pca.Response.CollectedClientData.Challenge,
		CredentialID: pca.RawID,
		raw:          pca,
	}, nil
}

// VerifyAssertion enforces the stored user-verification requirement and the
// strict sign counter: a reported counter that is non-zero yet not greater
// than the stored one marks a cloned authenticator and fails the ceremony.
func (v *CeremonyVerifier) VerifyAssertion(user webauthn.User, challenge *domain.Challenge, parsed *ParsedAssertion) (*AssertionOutcome, error) {
	session := webauthn.SessionData{
		Challenge: challenge.Value,
		UserID:    user.WebAuthnID(),
	}
	if challenge.UserVerification == "required" {
		session.UserVerification = protocol.VerificationRequired
	}

	cred, err := v.wa.ValidateLogin(user, session, parsed.raw)
	if err != nil {
		return nil, apperrors.Wrap(err.Error(), apperrors.ErrVerificationFailed)
	}
	return assertionOutcome(cred)
}

// assertionOutcome rejects a credential flagged as cloned: a non-increasing
// counter on an authenticator that does count signatures means the private
// key answered a challenge it should already be past.
func assertionOutcome(cred *webauthn.Credential) (*AssertionOutcome, error) {
	if cred.Authenticator.CloneWarning {
		return nil, apperrors.Wrap("sign count did not increase", apperrors.ErrVerificationFailed)
	}
	return &AssertionOutcome{
		CredentialID: cred.ID,
		SignCount:    cred.Authenticator.SignCount,
	}, nil
}

// observedAttestationTypes classifies the attestation statement the way MDS
// records name them. Formats outside the table degrade to Self when no
// certificate chain is present.
func observedAttestationTypes(obj protocol.AttestationObject) []string {
	switch obj.Format {
	case "none":
		return []string{"None"}
	case "apple":
		return []string{"AnonCA"}
	case "tpm":
		return []string{"AttCA"}
	case "android-safetynet":
		return []string{"Basic"}
	default:
		if _, ok := obj.AttStatement["x5c"]; ok {
			return []string{"Basic"}
		}
		if _, ok := obj.AttStatement["ecdaa"]; ok {
			return []string{"ECDAA"}
		}
		return []string{"Self"}
	}
}
