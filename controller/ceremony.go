package controller

import (
	"encoding/base64"
	"time"

	"fido2_rp_ms/apperrors"
	"fido2_rp_ms/dtos/request"
	"fido2_rp_ms/dtos/response"
	"fido2_rp_ms/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ICeremonyController interface {
	AttestationOptions(c *fiber.Ctx) error
	AttestationResult(c *fiber.Ctx) error
	AssertionOptions(c *fiber.Ctx) error
	AssertionResult(c *fiber.Ctx) error
	Hello(c *fiber.Ctx) error
}

type CeremonyController struct {
	service services.ICeremonyService
	events  services.IEventPublisher
	logger  *zap.Logger
}

func NewCeremonyController(service services.ICeremonyService, events services.IEventPublisher, logger *zap.Logger) ICeremonyController {
	return &CeremonyController{service: service, events: events, logger: logger}
}

// AttestationOptions handles the first half of a registration ceremony.
func (cc *CeremonyController) AttestationOptions(c *fiber.Ctx) error {
	body := c.Locals("body").(*request.AttestationOptionsRequest)
	requestID := c.Locals("requestId").(string)

	options, err := cc.service.AttestationOptions(body)
	if err != nil {
		return cc.fail(c, requestID, "attestation options", err)
	}
	return c.JSON(options)
}

// AttestationResult handles the second half of a registration ceremony and
// commits the credential when every check passes.
func (cc *CeremonyController) AttestationResult(c *fiber.Ctx) error {
	body := c.Locals("body").(*request.AttestationResultRequest)
	requestID := c.Locals("requestId").(string)

	receipt, err := cc.service.AttestationResult(body, c.Body())
	if err != nil {
		cc.publish(services.EventRegistrationFailed, requestID, nil, err)
		return cc.fail(c, requestID, "attestation result", err)
	}
	cc.publish(services.EventRegistrationCompleted, requestID, receipt, nil)
	return c.JSON(response.Ok())
}

// AssertionOptions handles the first half of an authentication ceremony.
func (cc *CeremonyController) AssertionOptions(c *fiber.Ctx) error {
	body := c.Locals("body").(*request.AssertionOptionsRequest)
	requestID := c.Locals("requestId").(string)

	options, err := cc.service.AssertionOptions(body)
	if err != nil {
		return cc.fail(c, requestID, "assertion options", err)
	}
	return c.JSON(options)
}

// AssertionResult handles the second half of an authentication ceremony.
func (cc *CeremonyController) AssertionResult(c *fiber.Ctx) error {
	requestID := c.Locals("requestId").(string)

	receipt, err := cc.service.AssertionResult(c.Body())
	if err != nil {
		cc.publish(services.EventAuthenticationFailed, requestID, nil, err)
		return cc.fail(c, requestID, "assertion result", err)
	}
	cc.publish(services.EventAuthenticationCompleted, requestID, receipt, nil)
	return c.JSON(response.Ok())
}

func (cc *CeremonyController) Hello(c *fiber.Ctx) error {
	return c.JSON(response.Ok())
}

func (cc *CeremonyController) fail(c *fiber.Ctx, requestID, op string, err error) error {
	kind := apperrors.Kind(err)
	cc.logger.Warn(op+" failed",
		zap.String("requestId", requestID),
		zap.String("kind", kind),
		zap.Error(err))

	status := fiber.StatusBadRequest
	if kind == "store_error" {
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(response.Failed(requestID, err.Error()))
}

func (cc *CeremonyController) publish(event, requestID string, receipt *services.CeremonyReceipt, err error) {
	e := &services.CeremonyEvent{
		Event:      event,
		RequestID:  requestID,
		OccurredAt: time.Now().UTC(),
	}
	if receipt != nil {
		e.UserID = receipt.UserID
		e.Username = receipt.Username
		e.CredentialID = base64.RawURLEncoding.EncodeToString(receipt.CredentialID)
	}
	if err != nil {
		e.ErrorKind = apperrors.Kind(err)
	}
	cc.events.Publish(e)
}
