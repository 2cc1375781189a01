package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/openmkt/campaignkit/utils"
)

// RequestID propagates the client's X-Request-ID header or assigns a fresh
// one. The id is echoed on the response and stored for audit logging.
func RequestID() fiber.Handler {
	return func(c fiber.Ctx) error {
		requestID := c.Get(utils.RequestIDKey)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Locals("request_id", requestID)
		c.Set(utils.RequestIDKey, requestID)

		return c.Next()
	}
}

// GetRequestIDFromContext extracts the request id set by RequestID
func GetRequestIDFromContext(c fiber.Ctx) string {
	if id, ok := c.Locals("request_id").(string); ok {
		return id
	}
	return ""
}
