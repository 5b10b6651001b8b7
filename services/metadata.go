package services

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fido2_rp_ms/apperrors"

	"go.uber.org/zap"
)

// MDS registry codes for authenticator attestation types.
const (
	AttestationBasicFull      uint16 = 0x3E07
	AttestationBasicSurrogate uint16 = 0x3E08
	AttestationEcdaa          uint16 = 0x3E09
	AttestationAttCA          uint16 = 0x3E0A
)

var attestationTypeNames = map[uint16]string{
	AttestationBasicFull:      "basic_full",
	AttestationBasicSurrogate: "basic_surrogate",
	AttestationEcdaa:          "ecdaa",
	AttestationAttCA:          "attca",
}

// AttestationType accepts both representations seen in metadata feeds:
// MDS2 statements carry numeric registry codes, MDS3 carries canonical names.
type AttestationType struct {
	Code uint16
	Name string
}

func (a *AttestationType) UnmarshalJSON(data []byte) error {
	var code uint16
	if err := json.Unmarshal(data, &code); err == nil {
		a.Code = code
		a.Name = attestationTypeNames[code]
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("attestation type is neither registry code nor name: %s", data)
	}
	a.Name = name
	return nil
}

func (a AttestationType) MarshalJSON() ([]byte, error) {
	if a.Code != 0 {
		return json.Marshal(a.Code)
	}
	return json.Marshal(a.Name)
}

// Canonical returns the comparable form: the mapped name for known codes,
// the raw code for unknown ones.
func (a AttestationType) Canonical() string {
	if a.Name != "" {
		return a.Name
	}
	return strconv.Itoa(int(a.Code))
}

type StatusReport struct {
	Status        string `json:"status"`
	EffectiveDate string `json:"effectiveDate,omitempty"`
	URL           string `json:"url,omitempty"`
}

type MetadataStatement struct {
	Description      string            `json:"description,omitempty"`
	AttestationTypes []AttestationType `json:"attestationTypes,omitempty"`
}

// MetadataEntry is one authenticator model's record, merged from the local
// metadata directory or the remote metadata service. StatusReports are
// ordered most recent first. Hash and URL, when both present, point at the
// full metadata statement for integrity checking.
type MetadataEntry struct {
	Aaguid                 string             `json:"aaguid"`
	Hash                   string             `json:"hash,omitempty"`
	URL                    string             `json:"url,omitempty"`
	TimeOfLastStatusChange string             `json:"timeOfLastStatusChange,omitempty"`
	StatusReports          []StatusReport     `json:"statusReports,omitempty"`
	AttestationTypes       []AttestationType  `json:"attestationTypes,omitempty"`
	MetadataStatement      *MetadataStatement `json:"metadataStatement,omitempty"`
}

// EntryAttestationTypes prefers the flat MDS2 field and falls back to the
// embedded MDS3 statement.
func (e *MetadataEntry) EntryAttestationTypes() []AttestationType {
	if len(e.AttestationTypes) > 0 {
		return e.AttestationTypes
	}
	if e.MetadataStatement != nil {
		return e.MetadataStatement.AttestationTypes
	}
	return nil
}

// notAllowedStatus blocks registration when it is the newest status report.
// "SER_KEY_PHYSICAL_COMPROMISE" is the truncated spelling some deployed
// feeds carry; both spellings stay on the list.
var notAllowedStatus = []string{
	"NOT_FIDO_CERTIFIED",
	"USER_VERIFICATION_BYPASS",
	"ATTESTATION_KEY_COMPROMISE",
	"USER_KEY_REMOTE_COMPROMISE",
	"SER_KEY_PHYSICAL_COMPROMISE",
	"USER_KEY_PHYSICAL_COMPROMISE",
	"REVOKED",
}

type IMetadataService interface {
	FindEntry(aaguid string) (*MetadataEntry, error)
	VerifyEntry(entry *MetadataEntry, hashAlg string, observedTypes []string) error
}

type MetadataService struct {
	entries []MetadataEntry
	client  IMDSClient
	fetcher Fetcher
	logger  *zap.Logger
}

// NewMetadataService scans dir once and keeps the parsed entries for the
// process lifetime. Remote lookups go through client on demand.
func NewMetadataService(dir string, client IMDSClient, fetcher Fetcher, logger *zap.Logger) *MetadataService {
	return &MetadataService{
		entries: loadLocalEntries(dir, logger),
		client:  client,
		fetcher: fetcher,
		logger:  logger,
	}
}

func loadLocalEntries(dir string, logger *zap.Logger) []MetadataEntry {
	if dir == "" {
		return nil
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("metadata directory is not readable", zap.String("dir", dir), zap.Error(err))
		return nil
	}

	var entries []MetadataEntry
	for _, f := range files {
		if f.Name() == ".gitkeep" || f.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, f.Name()))
		if err != nil {
			logger.Warn("metadata file is not readable", zap.String("file", f.Name()), zap.Error(err))
			continue
		}
		var many []MetadataEntry
		if err := json.Unmarshal(data, &many); err == nil {
			entries = append(entries, many...)
			continue
		}
		var one MetadataEntry
		if err := json.Unmarshal(data, &one); err != nil {
			logger.Warn("metadata file is not JSON", zap.String("file", f.Name()))
			continue
		}
		entries = append(entries, one)
	}
	logger.Info("metadata entries loaded", zap.String("dir", dir), zap.Int("count", len(entries)))
	return entries
}

// FindEntry resolves an AAGUID against local entries first, then the remote
// metadata service. A nil entry means the authenticator model is simply not
// tracked, not that resolution failed.
func (s *MetadataService) FindEntry(aaguid string) (*MetadataEntry, error) {
	for i := range s.entries {
		if strings.EqualFold(s.entries[i].Aaguid, aaguid) {
			return &s.entries[i], nil
		}
	}
	if s.client == nil {
		return nil, nil
	}
	return s.client.FindByAAGUID(aaguid)
}

// VerifyEntry gates commit: status, attestation type and hash checks all
// run and the first failure blocks the ceremony. There is no advisory mode.
func (s *MetadataService) VerifyEntry(entry *MetadataEntry, hashAlg string, observedTypes []string) error {
	if entry == nil {
		return apperrors.Wrap("metadata entry is missing", apperrors.ErrUntrustedAuthenticator)
	}

	if len(entry.StatusReports) > 0 {
		latest := entry.StatusReports[0].Status
		for _, status := range notAllowedStatus {
			if latest == status {
				return apperrors.Wrap("authenticator status "+latest, apperrors.ErrUntrustedAuthenticator)
			}
		}
	}

	if entryTypes := entry.EntryAttestationTypes(); len(entryTypes) > 0 {
		if !anyAttestationTypeCompatible(entryTypes, observedTypes) {
			return apperrors.Wrap(
				fmt.Sprintf("expect %s, actual %s", canonicalNames(entryTypes), strings.Join(observedTypes, ",")),
				apperrors.ErrAttestationTypeMismatch,
			)
		}
	}

	if entry.Hash != "" && entry.URL != "" {
		if err := s.verifyStatementHash(entry, hashAlg); err != nil {
			return err
		}
	}

	return nil
}

func anyAttestationTypeCompatible(entryTypes []AttestationType, observedTypes []string) bool {
	for _, et := range entryTypes {
		for _, observed := range observedTypes {
			if attestationTypeCompatible(et.Canonical(), observed) {
				return true
			}
		}
	}
	return false
}

// attestationTypeCompatible relates an MDS entry type to a type observed in
// an attestation statement. Observed types outside the known set pass
// unconditionally.
func attestationTypeCompatible(entryType, observed string) bool {
	switch observed {
	case "Basic", "AttCA", "AnonCA":
		return entryType == "basic_full" || entryType == "anonca" || entryType == "attca"
	case "Self":
		return entryType == "basic_surrogate"
	default:
		return true
	}
}

func canonicalNames(types []AttestationType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Canonical()
	}
	return strings.Join(names, ",")
}

// verifyStatementHash re-downloads the metadata statement and compares its
// digest to the entry hash. The fetch is single attempt and fail-closed.
func (s *MetadataService) verifyStatementHash(entry *MetadataEntry, hashAlg string) error {
	body, err := s.fetcher.Get(entry.URL)
	if err != nil {
		return apperrors.Wrap("fetch metadata statement", apperrors.ErrIntegrityMismatch)
	}

	hasher, err := newHasher(hashAlg)
	if err != nil {
		return apperrors.Wrap("metadata hash", err)
	}
	hasher.Write(body)
	digest := base64.RawURLEncoding.EncodeToString(hasher.Sum(nil))

	if digest != strings.TrimRight(entry.Hash, "=") {
		return apperrors.Wrap("metadata statement for "+entry.Aaguid, apperrors.ErrIntegrityMismatch)
	}
	return nil
}

func newHasher(alg string) (hash.Hash, error) {
	switch strings.ToLower(alg) {
	case "", "sha256":
		return sha256.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "sha384":
		return sha512.New384(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", alg)
	}
}
