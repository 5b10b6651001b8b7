package config

import "github.com/go-webauthn/webauthn/webauthn"

func InitWebAuthn(rp RelyingParty) *webauthn.WebAuthn {
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: rp.Name,
		RPID:          rp.ID,
		RPOrigins:     []string{rp.Origin},
	})
	if err != nil {
		panic(err)
	}
	return wa
}
