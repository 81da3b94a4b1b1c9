package httpclient

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/goleak"
)

func TestNew_ValidConfig(t *testing.T) {
	client, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if client == nil {
		t.Fatal("expected non-nil client")
	}
	if client.Timeout != 0 {
		t.Errorf("expected no total timeout, got %v", client.Timeout)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 0

	client, err := New(cfg)
	if err == nil {
		t.Fatal("expected error for invalid config")
	}
	if client != nil {
		t.Error("expected nil client on error")
	}
}

func baseTransport(t *testing.T, client *http.Client) *http.Transport {
	t.Helper()

	rt := client.Transport
	if _, ok := rt.(*otelhttp.Transport); ok {
		t.Fatal("expected uninstrumented client")
	}
	lt, ok := rt.(*loggingTransport)
	if !ok {
		t.Fatalf("expected *loggingTransport, got %T", rt)
	}
	tr, ok := lt.base.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", lt.base)
	}
	return tr
}

func TestNew_SingleUseTransport(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Instrument = false
	cfg.Timeout = 7 * time.Second

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	tr := baseTransport(t, client)
	if !tr.DisableKeepAlives {
		t.Error("expected keep-alives disabled")
	}
	if tr.MaxIdleConnsPerHost >= 0 {
		t.Errorf("expected idle pool disabled, got %d", tr.MaxIdleConnsPerHost)
	}
	if tr.ResponseHeaderTimeout != 7*time.Second {
		t.Errorf("expected response header timeout 7s, got %v", tr.ResponseHeaderTimeout)
	}
	if tr.IdleConnTimeout != 7*time.Second {
		t.Errorf("expected idle timeout 7s, got %v", tr.IdleConnTimeout)
	}
}

func TestNew_Instrumented(t *testing.T) {
	client, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	if _, ok := client.Transport.(*otelhttp.Transport); !ok {
		t.Errorf("expected *otelhttp.Transport, got %T", client.Transport)
	}
}

func TestNew_SetsUserAgent(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.UserAgent = "dataimport-test/1.0"
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.CloseIdleConnections()

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	if got != "dataimport-test/1.0" {
		t.Errorf("expected User-Agent %q, got %q", "dataimport-test/1.0", got)
	}
}

func TestNew_ResponseHeaderTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.CloseIdleConnections()

	_, err = client.Get(server.URL)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		if !strings.Contains(err.Error(), "timeout") {
			t.Errorf("expected timeout error, got %v", err)
		}
	}
}

func TestNew_IdleReadTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "10")
		_, _ = w.Write([]byte("12345"))
		w.(http.Flusher).Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	cfg := DefaultConfig()
	cfg.Instrument = false
	cfg.Timeout = 100 * time.Millisecond
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer client.CloseIdleConnections()

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("headers should arrive before the timeout: %v", err)
	}
	defer resp.Body.Close()

	_, err = io.ReadAll(resp.Body)
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Errorf("expected idle read timeout, got %v", err)
	}
}

func TestNew_ReleasesConnections(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	for i := 0; i < 3; i++ {
		client, err := New(DefaultConfig())
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		resp, err := client.Get(server.URL)
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		client.CloseIdleConnections()
	}
}
