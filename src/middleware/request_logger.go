package middleware

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger tags every request with a correlation ID and logs it on
// completion. A client-supplied X-Request-ID is honored, otherwise one is
// generated. Logging can be switched off with REQUEST_LOGGING_DISABLED=1;
// the request ID header is set either way.
func RequestLogger() fiber.Handler {
	disabled := os.Getenv("REQUEST_LOGGING_DISABLED") == "1"
	shouldLog := !disabled && zerolog.GlobalLevel() <= zerolog.InfoLevel

	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDHeader, requestID)
		c.Locals("request_id", requestID)

		if !shouldLog {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		log.Info().
			Str("request_id", requestID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Str("ip", c.IP()).
			Int("status", c.Response().StatusCode()).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Int("bytes_in", len(c.Body())).
			Int("bytes_out", len(c.Response().Body())).
			Msg("HTTP request")

		return err
	}
}
