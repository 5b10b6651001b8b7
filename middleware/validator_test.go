package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"fido2_rp_ms/dtos/request"
	"fido2_rp_ms/dtos/response"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupValidatedApp() *fiber.App {
	InitValidator()
	app := fiber.New()
	app.Post("/attestation/options",
		ValidateBody[request.AttestationOptionsRequest](),
		func(c *fiber.Ctx) error {
			body := c.Locals("body").(*request.AttestationOptionsRequest)
			return c.JSON(fiber.Map{"username": body.Username})
		})
	app.Post("/assertion/result",
		ValidateBody[request.AssertionResultRequest](),
		func(c *fiber.Ctx) error {
			return c.JSON(response.Ok())
		})
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, string) {
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

func TestValidateBody_AcceptsValidOptionsRequest(t *testing.T) {
	app := setupValidatedApp()

	status, body := postJSON(t, app, "/attestation/options",
		`{"username":"alice","displayName":"Alice Doe","attestation":"none"}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, body, "alice")
}

func TestValidateBody_RejectsMissingUsername(t *testing.T) {
	app := setupValidatedApp()

	status, body := postJSON(t, app, "/attestation/options",
		`{"displayName":"Alice Doe","attestation":"none"}`)

	assert.Equal(t, fiber.StatusBadRequest, status)

	var envelope response.ServerResponse
	require.NoError(t, json.Unmarshal([]byte(body), &envelope))
	assert.Equal(t, response.StatusFailed, envelope.Status)
	assert.Contains(t, envelope.ErrorMessage, "Username is required")
}

func TestValidateBody_RejectsUnknownAttestationPreference(t *testing.T) {
	app := setupValidatedApp()

	status, body := postJSON(t, app, "/attestation/options",
		`{"username":"alice","displayName":"Alice Doe","attestation":"weird"}`)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "must be one of")
}

func TestValidateBody_RejectsMalformedJSON(t *testing.T) {
	app := setupValidatedApp()

	status, body := postJSON(t, app, "/attestation/options", `{"username":`)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "invalid request body")
}

func TestValidateBody_Base64URLRule(t *testing.T) {
	app := setupValidatedApp()

	valid := `{
		"id": "opQ2QGf1GJ3fXggZDqGx",
		"type": "public-key",
		"response": {
			"clientDataJSON": "eyJ0eXBlIjoid2ViYXV0aG4uZ2V0In0",
			"authenticatorData": "SZYN5YgOjGh0NBcPZHZgW4_krrmihjLHmVzzuoMdl2M",
			"signature": "MEUCIQDKJ7-Dq9Kb"
		}
	}`
	status, _ := postJSON(t, app, "/assertion/result", valid)
	assert.Equal(t, fiber.StatusOK, status)

	invalid := `{
		"id": "not+base64url/chars==",
		"type": "public-key",
		"response": {
			"clientDataJSON": "eyJ0eXBlIjoid2ViYXV0aG4uZ2V0In0",
			"authenticatorData": "SZYN5YgOjGh0NBcPZHZgW4_krrmihjLHmVzzuoMdl2M",
			"signature": "MEUCIQDKJ7-Dq9Kb"
		}
	}`
	status, body := postJSON(t, app, "/assertion/result", invalid)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "base64url")
}
