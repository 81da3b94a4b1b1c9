package httpclient

import (
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Config configures a per-call HTTP client.
type Config struct {
	// Timeout bounds connection establishment, the wait for response
	// headers, and each idle period while reading or writing.
	// Default: 30s. Must be > 0.
	Timeout time.Duration

	// UserAgent is the User-Agent header value.
	// Required. Must be non-empty.
	UserAgent string

	// Logger receives request logs. Default: slog.Default().
	Logger *slog.Logger

	// Instrument wraps the transport with OpenTelemetry client spans.
	// Default: true.
	Instrument bool

	// TracerProvider is used when Instrument is set. Default: the global
	// provider.
	TracerProvider trace.TracerProvider
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:    30 * time.Second,
		UserAgent:  "dataimport-http-client/1.0",
		Instrument: true,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user_agent is required and must be non-empty")
	}

	return nil
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
