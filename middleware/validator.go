package middleware

import (
	"regexp"
	"strings"

	"fido2_rp_ms/dtos/response"
	"fido2_rp_ms/util"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var Validate *validator.Validate

var base64urlPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// InitValidator initializes validator and custom rules
func InitValidator() {
	Validate = validator.New()

	// Unpadded base64url, the encoding WebAuthn uses on the wire
	Validate.RegisterValidation("base64url", func(fl validator.FieldLevel) bool {
		return base64urlPattern.MatchString(fl.Field().String())
	})
}

func translateValidationErrors(err validator.ValidationErrors) string {
	messages := make([]string, 0, len(err))
	for _, e := range err {
		field := e.Field()
		switch e.Tag() {
		case "required":
			messages = append(messages, field+" is required")
		case "base64url":
			messages = append(messages, field+" must be base64url encoded")
		case "oneof":
			messages = append(messages, field+" must be one of: "+e.Param())
		case "eq":
			messages = append(messages, field+" must equal "+e.Param())
		default:
			messages = append(messages, field+" is invalid")
		}
	}
	return strings.Join(messages, "; ")
}

// ValidateBody is Fiber middleware that parses and validates the request
// body, storing the typed struct in locals for the controller. Malformed
// bodies never reach ceremony logic.
func ValidateBody[T any]() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := util.GenerateRequestID()
		var body T

		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(response.Failed(requestID, "invalid request body"))
		}

		if err := Validate.Struct(&body); err != nil {
			if errs, ok := err.(validator.ValidationErrors); ok {
				return c.Status(fiber.StatusBadRequest).
					JSON(response.Failed(requestID, translateValidationErrors(errs)))
			}
			return c.Status(fiber.StatusBadRequest).
				JSON(response.Failed(requestID, err.Error()))
		}

		c.Locals("body", &body)
		c.Locals("requestId", requestID)
		return c.Next()
	}
}
