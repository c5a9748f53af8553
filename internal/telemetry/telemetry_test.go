package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stellarlinkco/datadog-mcp/internal/config"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu    sync.Mutex
	paths []string
}

func (c *collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.paths = append(c.paths, r.URL.Path)
	c.mu.Unlock()
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.WriteHeader(http.StatusOK)
}

func (c *collector) received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.paths...)
}

func TestSetupDisabled(t *testing.T) {
	p, err := Setup(context.Background(), config.TelemetryConfig{})
	require.NoError(t, err)
	if p.Enabled() {
		t.Fatal("provider should be disabled without an endpoint")
	}

	_, span := p.Tracer().Start(context.Background(), "tool.execute")
	if span.SpanContext().IsValid() {
		t.Fatal("no-op tracer should produce invalid span contexts")
	}
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestSetupExportsSpans(t *testing.T) {
	tests := []struct {
		name     string
		endpoint func(srvURL string) string
		insecure bool
	}{
		{name: "url", endpoint: func(u string) string { return u }},
		{name: "url with trailing slash", endpoint: func(u string) string { return u + "/" }},
		{name: "url with traces path", endpoint: func(u string) string { return u + "/v1/traces" }},
		{name: "host and port", endpoint: func(u string) string { return strings.TrimPrefix(u, "http://") }, insecure: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &collector{}
			srv := httptest.NewServer(c)
			defer srv.Close()

			p, err := Setup(context.Background(), config.TelemetryConfig{
				Endpoint:    tt.endpoint(srv.URL),
				Insecure:    tt.insecure,
				ServiceName: "datadog-mcp-test",
			})
			require.NoError(t, err)
			if !p.Enabled() {
				t.Fatal("provider should be enabled")
			}

			_, span := p.Tracer().Start(context.Background(), "tool.execute")
			if !span.SpanContext().IsValid() {
				t.Fatal("sdk tracer should produce valid span contexts")
			}
			span.End()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			require.NoError(t, p.Shutdown(ctx))
			require.Equal(t, []string{"/v1/traces"}, c.received())
		})
	}
}

func TestSetupRejectsBadEndpointURL(t *testing.T) {
	_, err := Setup(context.Background(), config.TelemetryConfig{Endpoint: "http://"})
	if err == nil || !strings.Contains(err.Error(), "invalid endpoint") {
		t.Fatalf("expected invalid endpoint error, got %v", err)
	}
}
