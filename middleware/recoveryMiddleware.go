package middleware

import (
	"log"
	"runtime/debug"

	"fido2_rp_ms/dtos/response"
	"fido2_rp_ms/util"

	"github.com/gofiber/fiber/v2"
)

func RecoveryMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				msg := "Caught panic: %v, Stack Trace: %s"
				log.Printf(msg, r, string(debug.Stack()))

				requestID := util.GenerateRequestID()
				err = c.Status(fiber.StatusInternalServerError).
					JSON(response.Failed(requestID, "internal server error"))
			}
		}()
		return c.Next()
	}
}
