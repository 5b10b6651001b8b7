package middleware

import (
	"time"

	"fido2_rp_ms/dtos/response"
	"fido2_rp_ms/util"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// GlobalRateLimiter returns a pre-configured limiter middleware
func GlobalRateLimiter() fiber.Handler {
	return RouteRateLimiter(60, 30*time.Second)
}

// RouteRateLimiter allows you to set custom limits per route
func RouteRateLimiter(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		LimitReached: func(c *fiber.Ctx) error {
			requestID := util.GenerateRequestID()
			return c.Status(fiber.StatusTooManyRequests).
				JSON(response.Failed(requestID, "too many requests"))
		},
	})
}
