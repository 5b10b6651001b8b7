package domain

import (
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

type User struct {
	Id          uint         `gorm:"primaryKey" json:"id"`
	CreatedAt   *time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   *time.Time   `gorm:"default:null" json:"updated_at"`
	UserID      string       `gorm:"size:100;not null;uniqueIndex" json:"user_id"`
	Username    string       `gorm:"size:100;not null;uniqueIndex" json:"username"`
	DisplayName string       `gorm:"size:200;not null" json:"display_name"`
	Credentials []Credential `gorm:"foreignKey:UserID;references:UserID" json:"credentials"`
}

func (u User) WebAuthnID() []byte {
	return []byte(u.UserID)
}

func (u User) WebAuthnName() string {
	return u.Username
}

func (u User) WebAuthnDisplayName() string {
	return u.DisplayName
}

func (u User) WebAuthnCredentials() []webauthn.Credential {
	var creds []webauthn.Credential
	for _, c := range u.Credentials {
		creds = append(creds, c.ToWebAuthn())
	}
	return creds
}
