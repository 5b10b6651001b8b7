package response

import "github.com/go-webauthn/webauthn/protocol"

const (
	StatusOk     = "ok"
	StatusFailed = "failed"
)

// ServerResponse is the envelope every ceremony endpoint returns. Failures
// carry a correlation-id-prefixed message and never discriminate the
// internal error kind.
type ServerResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage"`
}

func Ok() ServerResponse {
	return ServerResponse{Status: StatusOk}
}

func Failed(requestID, message string) ServerResponse {
	return ServerResponse{
		Status:       StatusFailed,
		ErrorMessage: requestID + " " + message,
	}
}

type AttestationOptionsResponse struct {
	protocol.PublicKeyCredentialCreationOptions
	ServerResponse
}

type AssertionOptionsResponse struct {
	protocol.PublicKeyCredentialRequestOptions
	ServerResponse
}
