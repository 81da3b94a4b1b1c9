// Package httpclient builds the short-lived HTTP clients used for outbound
// Okapi calls.
//
// Every client is meant for a single exchange. Keep-alives are disabled
// and callers release the client with CloseIdleConnections once the
// response body has been read, so no connection outlives its call.
//
// The client factory composes transport layers:
//   - A base transport with one timeout for dialing, waiting for response
//     headers, and every read or write on the connection
//   - Request logging with sanitized URLs and redacted credential headers
//   - User-Agent and Okapi request ID injection
//   - OpenTelemetry client spans with W3C trace context propagation
//
// # Usage
//
//	cfg := httpclient.DefaultConfig()
//	cfg.Timeout = params.Timeout()
//	client, err := httpclient.New(cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.CloseIdleConnections()
//
// # Observability
//
// All requests emit structured logs via log/slog:
//   - Debug level: the outgoing header set with credentials redacted
//   - Debug level: completed requests below 400
//   - Warn level: 4xx/5xx responses and transport errors
//   - Fields: method, url (sanitized), status, duration_ms, error
//
// There is no retry and no connection pooling; see the rest package for
// how responses are classified.
package httpclient
