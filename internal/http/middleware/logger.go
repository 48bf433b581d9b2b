package middleware

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger logs each HTTP request as one JSON object per line on stdout.
// Fields: ts, request_id, actor_id (when authenticated), method, path,
// status, latency (milliseconds).
func Logger() fiber.Handler {
	return LoggerWithWriter(os.Stdout, time.UTC)
}

// LoggerWithWriter is Logger with an injectable destination and timezone.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	enc := json.NewEncoder(w)

	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Process request
		err := c.Next()

		// Collect fields after the handler executed to capture the final status
		entry := map[string]any{
			"ts":      start.In(loc).Format(time.RFC3339Nano),
			"method":  c.Method(),
			"path":    c.Path(),
			"status":  c.Response().StatusCode(),
			"latency": float64(time.Since(start).Milliseconds()),
		}
		if rid, ok := c.Locals(RequestIDLocalKey).(string); ok {
			entry["request_id"] = rid
		}
		if actor, ok := c.Locals(ActorLocalKey).(string); ok {
			entry["actor_id"] = actor
		}

		_ = enc.Encode(entry)

		return err
	}
}
