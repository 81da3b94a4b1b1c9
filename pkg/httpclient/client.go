package httpclient

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// New creates a new single-use HTTP client with the given configuration.
// The client includes:
//   - One timeout for dial, response headers and connection idle time
//   - No keep-alives and no idle pool
//   - Request logging with sanitized URLs
//   - User-Agent and request ID injection
//   - OpenTelemetry client spans (when cfg.Instrument is set)
//
// Callers must call CloseIdleConnections when done with the client.
// Returns an error if the configuration is invalid.
func New(cfg Config) (*http.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: cfg.Timeout}

	baseTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},

		// One exchange per client
		DisableKeepAlives:   true,
		MaxIdleConnsPerHost: -1,

		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &idleTimeoutConn{Conn: conn, timeout: cfg.Timeout}, nil
		},
		TLSHandshakeTimeout:   cfg.Timeout,
		ResponseHeaderTimeout: cfg.Timeout,
		IdleConnTimeout:       cfg.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	// Layer 1: logging, User-Agent and request ID
	var transport http.RoundTripper = newLoggingTransport(baseTransport, cfg.UserAgent, cfg.logger())

	// Layer 2: client spans and trace context injection
	if cfg.Instrument {
		opts := []otelhttp.Option{}
		if cfg.TracerProvider != nil {
			opts = append(opts, otelhttp.WithTracerProvider(cfg.TracerProvider))
		}
		transport = otelhttp.NewTransport(transport, opts...)
	}

	return &http.Client{
		Transport: transport,
	}, nil
}

// idleTimeoutConn pushes the connection deadline forward before every
// read and write, turning the timeout into an idle timeout.
type idleTimeoutConn struct {
	net.Conn
	timeout time.Duration
}

func (c *idleTimeoutConn) Read(b []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *idleTimeoutConn) Write(b []byte) (int, error) {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}
