package controller

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"fido2_rp_ms/apperrors"
	"fido2_rp_ms/dtos/request"
	"fido2_rp_ms/dtos/response"
	"fido2_rp_ms/middleware"
	"fido2_rp_ms/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCeremonyService struct {
	receipt *services.CeremonyReceipt
	err     error
}

func (f *fakeCeremonyService) AttestationOptions(*request.AttestationOptionsRequest) (*response.AttestationOptionsResponse, error) {
	return nil, f.err
}

func (f *fakeCeremonyService) AttestationResult(*request.AttestationResultRequest, []byte) (*services.CeremonyReceipt, error) {
	return f.receipt, f.err
}

func (f *fakeCeremonyService) AssertionOptions(*request.AssertionOptionsRequest) (*response.AssertionOptionsResponse, error) {
	return nil, f.err
}

func (f *fakeCeremonyService) AssertionResult([]byte) (*services.CeremonyReceipt, error) {
	return f.receipt, f.err
}

type capturingPublisher struct {
	events []*services.CeremonyEvent
}

func (p *capturingPublisher) Publish(event *services.CeremonyEvent) {
	p.events = append(p.events, event)
}

func (p *capturingPublisher) Close() error { return nil }

func setupCeremonyApp(service services.ICeremonyService, publisher services.IEventPublisher) *fiber.App {
	middleware.InitValidator()
	cc := NewCeremonyController(service, publisher, zap.NewNop())
	app := fiber.New()
	app.Post("/attestation/result",
		middleware.ValidateBody[request.AttestationResultRequest](),
		cc.AttestationResult)
	app.Post("/assertion/result",
		middleware.ValidateBody[request.AssertionResultRequest](),
		cc.AssertionResult)
	return app
}

const attestationResultBody = `{
	"id": "oKEFok4",
	"type": "public-key",
	"response": {
		"clientDataJSON": "eyJ0eXBlIjoid2ViYXV0aG4uY3JlYXRlIn0",
		"attestationObject": "oKEFok4"
	}
}`

func postBody(t *testing.T, app *fiber.App, path, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestAttestationResult_PublishesCompletionEvent(t *testing.T) {
	publisher := &capturingPublisher{}
	service := &fakeCeremonyService{
		receipt: &services.CeremonyReceipt{
			UserID:       "9d3bf9f7-1c55-4e2a-a013-1d8a4f2b6a11",
			Username:     "alice",
			CredentialID: []byte{0xA1, 0xB2},
			SignCount:    1,
		},
	}
	app := setupCeremonyApp(service, publisher)

	status, body := postBody(t, app, "/attestation/result", attestationResultBody)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, `"status":"ok"`)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, services.EventRegistrationCompleted, event.Event)
	assert.Equal(t, "alice", event.Username)
	assert.Equal(t, "obI", event.CredentialID)
	assert.NotEmpty(t, event.RequestID)
	assert.Empty(t, event.ErrorKind)
}

func TestAttestationResult_PublishesFailureEventWithKind(t *testing.T) {
	publisher := &capturingPublisher{}
	service := &fakeCeremonyService{
		err: apperrors.Wrap("metadata entry is missing", apperrors.ErrUntrustedAuthenticator),
	}
	app := setupCeremonyApp(service, publisher)

	status, body := postBody(t, app, "/attestation/result", attestationResultBody)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, `"status":"failed"`)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, services.EventRegistrationFailed, event.Event)
	assert.Equal(t, "untrusted_authenticator", event.ErrorKind)
	assert.Empty(t, event.CredentialID)
}

func TestAssertionResult_PublishesCompletionEvent(t *testing.T) {
	publisher := &capturingPublisher{}
	service := &fakeCeremonyService{
		receipt: &services.CeremonyReceipt{
			UserID:       "9d3bf9f7-1c55-4e2a-a013-1d8a4f2b6a11",
			Username:     "alice",
			CredentialID: []byte{0xA1, 0xB2},
			SignCount:    6,
		},
	}
	app := setupCeremonyApp(service, publisher)

	body := `{
		"id": "obI",
		"type": "public-key",
		"response": {
			"clientDataJSON": "eyJ0eXBlIjoid2ViYXV0aG4uZ2V0In0",
			"authenticatorData": "SZYN5YgOjGh0NBcPZHZgW4_krrmihjLHmVzzuoMdl2M",
			"signature": "MEUCIQDKJ7-Dq9Kb"
		}
	}`
	status, _ := postBody(t, app, "/assertion/result", body)

	assert.Equal(t, fiber.StatusOK, status)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, services.EventAuthenticationCompleted, publisher.events[0].Event)
	assert.Equal(t, "obI", publisher.events[0].CredentialID)
}
