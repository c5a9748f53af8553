// Package datadog builds authenticated Datadog v2 API clients from config.
package datadog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	ddclient "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV1"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
	"github.com/stellarlinkco/datadog-mcp/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 30 * time.Second

// Server index 1 of the generated client is "{protocol}://{name}", which is
// what a base URL override maps onto.
const customServerIndex = 1

// Client holds the Datadog APIs used by the tool groups. Every call made
// through it carries the configured keys and site.
type Client struct {
	logs *datadogV2.LogsApi
	rum  *datadogV2.RUMApi
	auth *datadogV1.AuthenticationApi

	apiKey    string
	appKey    string
	site      string
	serverURL *url.URL
}

type options struct {
	transport http.RoundTripper
	timeout   time.Duration
	userAgent string
}

type Option func(*options)

// WithTransport sets the base round tripper. It is still wrapped for tracing.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

func NewClient(cfg config.DatadogConfig, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("datadog: api key is required")
	}
	if cfg.AppKey == "" {
		return nil, errors.New("datadog: application key is required")
	}

	o := options{transport: http.DefaultTransport, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{apiKey: cfg.APIKey, appKey: cfg.AppKey, site: cfg.Site}
	if c.site == "" {
		c.site = config.DefaultSite
	}
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("datadog: invalid base url %q", cfg.BaseURL)
		}
		c.serverURL = u
	}

	configuration := ddclient.NewConfiguration()
	configuration.HTTPClient = &http.Client{
		Transport: otelhttp.NewTransport(o.transport),
		Timeout:   o.timeout,
	}
	if o.userAgent != "" {
		configuration.UserAgent = o.userAgent
	}

	api := ddclient.NewAPIClient(configuration)
	c.logs = datadogV2.NewLogsApi(api)
	c.rum = datadogV2.NewRUMApi(api)
	c.auth = datadogV1.NewAuthenticationApi(api)
	return c, nil
}

// Site is the Datadog site requests are sent to.
func (c *Client) Site() string {
	if c.serverURL != nil {
		return c.serverURL.String()
	}
	return c.site
}

// withAuth attaches keys and server selection to ctx.
func (c *Client) withAuth(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, ddclient.ContextAPIKeys, map[string]ddclient.APIKey{
		"apiKeyAuth": {Key: c.apiKey},
		"appKeyAuth": {Key: c.appKey},
	})
	if c.serverURL != nil {
		ctx = context.WithValue(ctx, ddclient.ContextServerIndex, customServerIndex)
		return context.WithValue(ctx, ddclient.ContextServerVariables, map[string]string{
			"protocol": c.serverURL.Scheme,
			"name":     c.serverURL.Host,
		})
	}
	return context.WithValue(ctx, ddclient.ContextServerVariables, map[string]string{
		"site": c.site,
	})
}

// Validate checks the API key against Datadog.
func (c *Client) Validate(ctx context.Context) error {
	resp, _, err := c.auth.Validate(c.withAuth(ctx))
	if err != nil {
		return fmt.Errorf("datadog: validate api key: %w", err)
	}
	if !resp.GetValid() {
		return errors.New("datadog: api key rejected")
	}
	return nil
}

// Logs returns the logs search API bound to the client's credentials.
func (c *Client) Logs() *LogsAPI {
	return &LogsAPI{client: c}
}

// RUM returns the RUM API bound to the client's credentials.
func (c *Client) RUM() *RUMAPI {
	return &RUMAPI{client: c}
}

type LogsAPI struct {
	client *Client
}

func (a *LogsAPI) ListLogs(ctx context.Context, o ...datadogV2.ListLogsOptionalParameters) (datadogV2.LogsListResponse, *http.Response, error) {
	return a.client.logs.ListLogs(a.client.withAuth(ctx), o...)
}

type RUMAPI struct {
	client *Client
}

func (a *RUMAPI) ListRUMEvents(ctx context.Context, o ...datadogV2.ListRUMEventsOptionalParameters) (datadogV2.RUMEventsResponse, *http.Response, error) {
	return a.client.rum.ListRUMEvents(a.client.withAuth(ctx), o...)
}

func (a *RUMAPI) GetRUMApplications(ctx context.Context) (datadogV2.RUMApplicationsResponse, *http.Response, error) {
	return a.client.rum.GetRUMApplications(a.client.withAuth(ctx))
}
