package request

// Request bodies follow the FIDO2 conformance server API. Field syntax is
// checked by the validation middleware before any ceremony logic runs.

type AuthenticatorSelection struct {
	AuthenticatorAttachment string `json:"authenticatorAttachment,omitempty" validate:"omitempty,oneof=cross-platform platform"`
	RequireResidentKey      *bool  `json:"requireResidentKey,omitempty"`
	ResidentKey             string `json:"residentKey,omitempty" validate:"omitempty,oneof=required preferred discouraged"`
	UserVerification        string `json:"userVerification,omitempty" validate:"omitempty,oneof=required preferred discouraged"`
}

type AttestationOptionsRequest struct {
	Username               string                  `json:"username" validate:"required"`
	DisplayName            string                  `json:"displayName" validate:"required"`
	AuthenticatorSelection *AuthenticatorSelection `json:"authenticatorSelection,omitempty"`
	Attestation            string                  `json:"attestation" validate:"required,oneof=none indirect direct enterprise"`
	Extensions             map[string]interface{}  `json:"extensions,omitempty"`
}

type AttestationResultResponse struct {
	ClientDataJSON    string   `json:"clientDataJSON" validate:"required,base64url"`
	AttestationObject string   `json:"attestationObject" validate:"required,base64url"`
	Transports        []string `json:"transports,omitempty"`
}

type AttestationResultRequest struct {
	ID       string                    `json:"id" validate:"required,base64url"`
	RawID    string                    `json:"rawId,omitempty" validate:"omitempty,base64url"`
	Response AttestationResultResponse `json:"response" validate:"required"`
	Type     string                    `json:"type" validate:"required,eq=public-key"`
}

type AssertionOptionsRequest struct {
	Username         string                 `json:"username" validate:"required"`
	UserVerification string                 `json:"userVerification,omitempty" validate:"omitempty,oneof=required preferred discouraged"`
	Extensions       map[string]interface{} `json:"extensions,omitempty"`
}

type AssertionResultResponse struct {
	ClientDataJSON    string `json:"clientDataJSON" validate:"required,base64url"`
	AuthenticatorData string `json:"authenticatorData" validate:"required,base64url"`
	Signature         string `json:"signature" validate:"required,base64url"`
	UserHandle        string `json:"userHandle,omitempty" validate:"omitempty,base64url"`
}

type AssertionResultRequest struct {
	ID       string                  `json:"id" validate:"required,base64url"`
	RawID    string                  `json:"rawId,omitempty" validate:"omitempty,base64url"`
	Response AssertionResultResponse `json:"response" validate:"required"`
	Type     string                  `json:"type" validate:"required,eq=public-key"`
}
