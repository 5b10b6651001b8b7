package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// ZeroAAGUID is reported by authenticators that carry no attestation
// metadata; credentials with it are never checked against the MDS.
var ZeroAAGUID = make([]byte, 16)

type Credential struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       string     `gorm:"size:100;not null;index;uniqueIndex:idx_credential_user" json:"user_id"`
	CredentialID []byte     `gorm:"not null;uniqueIndex:idx_credential_user" json:"credential_id"`
	PublicKey    []byte     `gorm:"not null" json:"public_key"`
	SignCount    uint32     `gorm:"not null" json:"sign_count"`
	AAGUID       []byte     `gorm:"not null" json:"aaguid"`
	Transports   []byte     `gorm:"type:json" json:"transports"`
	CreatedAt    *time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    *time.Time `gorm:"default:null" json:"updated_at"`
}

func (Credential) TableName() string {
	return "credentials"
}

func (c Credential) HasAttestationMetadata() bool {
	return len(c.AAGUID) == 16 && !bytes.Equal(c.AAGUID, ZeroAAGUID)
}

// TransportHints decodes the stored transports column. A corrupt column
// degrades to an empty hint list rather than failing the ceremony.
func (c Credential) TransportHints() []protocol.AuthenticatorTransport {
	var raw []string
	if err := json.Unmarshal(c.Transports, &raw); err != nil {
		return nil
	}
	hints := make([]protocol.AuthenticatorTransport, 0, len(raw))
	for _, t := range raw {
		hints = append(hints, protocol.AuthenticatorTransport(t))
	}
	return hints
}

func (c Credential) ToWebAuthn() webauthn.Credential {
	return webauthn.Credential{
		ID:        c.CredentialID,
		PublicKey: c.PublicKey,
		Transport: c.TransportHints(),
		Authenticator: webauthn.Authenticator{
			AAGUID:    c.AAGUID,
			SignCount: c.SignCount,
		},
	}
}
