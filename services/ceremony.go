package services

import (
	"encoding/base64"
	"encoding/json"

	"fido2_rp_ms/apperrors"
	"fido2_rp_ms/config"
	"fido2_rp_ms/domain"
	"fido2_rp_ms/dtos/request"
	"fido2_rp_ms/dtos/response"
	"fido2_rp_ms/repository"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/hashicorp/go-uuid"
	"gorm.io/gorm"
)

// CeremonyReceipt reports what a successful result call committed; the
// controller publishes it as an audit event.
type CeremonyReceipt struct {
	UserID       string
	Username     string
	CredentialID []byte
	SignCount    uint32
}

type ICeremonyService interface {
	AttestationOptions(req *request.AttestationOptionsRequest) (*response.AttestationOptionsResponse, error)
	AttestationResult(req *request.AttestationResultRequest, body []byte) (*CeremonyReceipt, error)
	AssertionOptions(req *request.AssertionOptionsRequest) (*response.AssertionOptionsResponse, error)
	AssertionResult(body []byte) (*CeremonyReceipt, error)
}

type CeremonyService struct {
	db         *gorm.DB
	rp         config.RelyingParty
	users      repository.IUserRepository
	creds      repository.ICredentialRepository
	challenges IChallengeService
	verifier   ICeremonyVerifier
	metadata   IMetadataService
}

func NewCeremonyService(
	db *gorm.DB,
	rp config.RelyingParty,
	users repository.IUserRepository,
	creds repository.ICredentialRepository,
	challenges IChallengeService,
	verifier ICeremonyVerifier,
	metadata IMetadataService,
) ICeremonyService {
	return &CeremonyService{
		db:         db,
		rp:         rp,
		users:      users,
		creds:      creds,
		challenges: challenges,
		verifier:   verifier,
		metadata:   metadata,
	}
}

// AttestationOptions resolves or lazily creates the user, issues an
// attestation-scoped challenge and returns the creation options. Already
// registered credentials go on the exclusion list so a device cannot
// re-register.
func (s *CeremonyService) AttestationOptions(req *request.AttestationOptionsRequest) (*response.AttestationOptionsResponse, error) {
	user, err := s.users.GetOrCreate(s.db, req.Username, req.DisplayName)
	if err != nil {
		return nil, err
	}

	existing, err := s.creds.ListByUser(s.db, user.UserID)
	if err != nil {
		return nil, err
	}

	value, err := s.challenges.Issue(user.UserID, domain.PathAttestation, "")
	if err != nil {
		return nil, err
	}
	challengeBytes, err := decodeChallengeValue(value)
	if err != nil {
		return nil, err
	}

	opts := protocol.PublicKeyCredentialCreationOptions{
		RelyingParty: protocol.RelyingPartyEntity{
			CredentialEntity: protocol.CredentialEntity{Name: s.rp.Name},
			ID:               s.rp.ID,
		},
		User: protocol.UserEntity{
			CredentialEntity: protocol.CredentialEntity{Name: req.Username},
			DisplayName:      req.DisplayName,
			ID:               protocol.URLEncodedBase64(user.UserID),
		},
		Challenge:              challengeBytes,
		Parameters:             s.credentialParameters(),
		Timeout:                s.timeoutMillis(),
		CredentialExcludeList:  credentialDescriptors(existing),
		AuthenticatorSelection: authenticatorSelection(req.AuthenticatorSelection),
		Attestation:            protocol.ConveyancePreference(req.Attestation),
		Extensions:             protocol.AuthenticationExtensions(req.Extensions),
	}

	return &response.AttestationOptionsResponse{
		PublicKeyCredentialCreationOptions: opts,
		ServerResponse:                     response.Ok(),
	}, nil
}

// AttestationResult runs the registration state machine: consume the
// attestation challenge, verify the response, evaluate metadata trust for
// attested authenticators, then commit the credential. A positive
// cryptographic result alone never commits.
func (s *CeremonyService) AttestationResult(req *request.AttestationResultRequest, body []byte) (*CeremonyReceipt, error) {
	parsed, err := s.verifier.ParseAttestation(body)
	if err != nil {
		return nil, err
	}

	challenge, err := s.challenges.Consume(parsed.Challenge, domain.PathAttestation)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByUserID(s.db, challenge.UserID)
	if err != nil {
		return nil, err
	}

	var entry *MetadataEntry
	attested := isAttestedAAGUID(parsed.AAGUID)
	if attested {
		aaguid, err := uuid.FormatUUID(parsed.AAGUID)
		if err != nil {
			return nil, apperrors.Wrap("format aaguid", err)
		}
		if entry, err = s.metadata.FindEntry(aaguid); err != nil {
			return nil, err
		}
	}

	outcome, err := s.verifier.VerifyAttestation(user, challenge, parsed)
	if err != nil {
		return nil, err
	}

	if attested {
		if err := s.metadata.VerifyEntry(entry, "sha256", outcome.AttestationTypes); err != nil {
			return nil, err
		}
	}

	transports, err := json.Marshal(req.Response.Transports)
	if err != nil {
		return nil, apperrors.Wrap("encode transports", err)
	}
	credential := &domain.Credential{
		UserID:       challenge.UserID,
		CredentialID: outcome.CredentialID,
		PublicKey:    outcome.PublicKey,
		SignCount:    outcome.SignCount,
		AAGUID:       outcome.AAGUID,
		Transports:   transports,
	}
	if err := s.creds.Save(s.db, credential); err != nil {
		return nil, err
	}

	return &CeremonyReceipt{
		UserID:       user.UserID,
		Username:     user.Username,
		CredentialID: outcome.CredentialID,
		SignCount:    outcome.SignCount,
	}, nil
}

// AssertionOptions requires an existing user and issues an assertion-scoped
// challenge, remembering the requested user-verification level for the
// result call.
func (s *CeremonyService) AssertionOptions(req *request.AssertionOptionsRequest) (*response.AssertionOptionsResponse, error) {
	user, err := s.users.GetByUsername(s.db, req.Username)
	if err != nil {
		return nil, err
	}

	credentials, err := s.creds.ListByUser(s.db, user.UserID)
	if err != nil {
		return nil, err
	}

	value, err := s.challenges.Issue(user.UserID, domain.PathAssertion, req.UserVerification)
	if err != nil {
		return nil, err
	}
	challengeBytes, err := decodeChallengeValue(value)
	if err != nil {
		return nil, err
	}

	opts := protocol.PublicKeyCredentialRequestOptions{
		Challenge:          challengeBytes,
		Timeout:            s.timeoutMillis(),
		RelyingPartyID:     s.rp.ID,
		AllowedCredentials: credentialDescriptors(credentials),
		UserVerification:   protocol.UserVerificationRequirement(req.UserVerification),
		Extensions:         protocol.AuthenticationExtensions(req.Extensions),
	}

	return &response.AssertionOptionsResponse{
		PublicKeyCredentialRequestOptions: opts,
		ServerResponse:                    response.Ok(),
	}, nil
}

// AssertionResult consumes the assertion challenge, scopes verification to
// the single credential identified by (credentialId, userId) and commits
// the verifier-reported sign count.
func (s *CeremonyService) AssertionResult(body []byte) (*CeremonyReceipt, error) {
	parsed, err := s.verifier.ParseAssertion(body)
	if err != nil {
		return nil, err
	}

	challenge, err := s.challenges.Consume(parsed.Challenge, domain.PathAssertion)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByUserID(s.db, challenge.UserID)
	if err != nil {
		return nil, err
	}

	credential, err := s.creds.Find(s.db, parsed.CredentialID, challenge.UserID)
	if err != nil {
		return nil, err
	}
	user.Credentials = []domain.Credential{*credential}

	outcome, err := s.verifier.VerifyAssertion(*user, challenge, parsed)
	if err != nil {
		return nil, err
	}

	if err := s.creds.UpdateSignCount(s.db, credential.CredentialID, challenge.UserID, outcome.SignCount); err != nil {
		return nil, err
	}

	return &CeremonyReceipt{
		UserID:       user.UserID,
		Username:     user.Username,
		CredentialID: outcome.CredentialID,
		SignCount:    outcome.SignCount,
	}, nil
}

func (s *CeremonyService) credentialParameters() []protocol.CredentialParameter {
	algs := s.rp.Algorithms
	if len(algs) == 0 {
		algs = []int64{int64(webauthncose.AlgES256)}
	}
	params := make([]protocol.CredentialParameter, len(algs))
	for i, alg := range algs {
		params[i] = protocol.CredentialParameter{
			Type:      protocol.PublicKeyCredentialType,
			Algorithm: webauthncose.COSEAlgorithmIdentifier(alg),
		}
	}
	return params
}

func (s *CeremonyService) timeoutMillis() int {
	seconds := s.rp.TimeoutInSeconds
	if seconds <= 0 {
		seconds = config.DefaultCeremonyTimeoutSecs
	}
	return seconds * 1000
}

func credentialDescriptors(credentials []domain.Credential) []protocol.CredentialDescriptor {
	descriptors := make([]protocol.CredentialDescriptor, len(credentials))
	for i, c := range credentials {
		descriptors[i] = protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: protocol.URLEncodedBase64(c.CredentialID),
			Transport:    c.TransportHints(),
		}
	}
	return descriptors
}

// authenticatorSelection mirrors the request with one override: a true
// requireResidentKey flag forces the resident-key policy to required.
func authenticatorSelection(sel *request.AuthenticatorSelection) protocol.AuthenticatorSelection {
	if sel == nil {
		return protocol.AuthenticatorSelection{}
	}
	out := protocol.AuthenticatorSelection{
		AuthenticatorAttachment: protocol.AuthenticatorAttachment(sel.AuthenticatorAttachment),
		RequireResidentKey:      sel.RequireResidentKey,
		ResidentKey:             protocol.ResidentKeyRequirement(sel.ResidentKey),
		UserVerification:        protocol.UserVerificationRequirement(sel.UserVerification),
	}
	if sel.RequireResidentKey != nil && *sel.RequireResidentKey {
		out.ResidentKey = protocol.ResidentKeyRequirementRequired
	}
	return out
}

func decodeChallengeValue(value string) (protocol.URLEncodedBase64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, apperrors.Wrap("decode challenge", err)
	}
	return protocol.URLEncodedBase64(raw), nil
}

// isAttestedAAGUID reports whether the authenticator identified itself.
// The all-zero sentinel means no attestation metadata applies.
func isAttestedAAGUID(aaguid []byte) bool {
	if len(aaguid) != 16 {
		return false
	}
	for _, b := range aaguid {
		if b != 0 {
			return true
		}
	}
	return false
}
