package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stellarlinkco/datadog-mcp/internal/config"
	"github.com/stellarlinkco/datadog-mcp/internal/tool"
)

const (
	ServerName      = "datadog-mcp"
	shutdownTimeout = 5 * time.Second
)

// Options for creating a Gateway
type Options struct {
	Version    string
	Logger     *slog.Logger
	SignalChan chan os.Signal // for testing signal handling
	// Transport replaces stdin/stdout for the stdio transport.
	Transport mcp.Transport
	// Listener replaces host:port for the HTTP transports.
	Listener net.Listener
	// OnShutdown hooks run after the server stops, in order.
	OnShutdown []func(context.Context) error
}

// Gateway exposes a tool registry to agents over MCP.
type Gateway struct {
	cfg        *config.Config
	registry   *tool.Registry
	server     *mcp.Server
	logger     *slog.Logger
	transport  mcp.Transport
	listener   net.Listener
	httpServer *http.Server
	hooks      []func(context.Context) error
	signalChan chan os.Signal
}

// New creates a Gateway with default options
func New(cfg *config.Config, registry *tool.Registry) (*Gateway, error) {
	return NewWithOptions(cfg, registry, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing
func NewWithOptions(cfg *config.Config, registry *tool.Registry, opts Options) (*Gateway, error) {
	if cfg == nil {
		return nil, errors.New("gateway: config is nil")
	}
	if registry == nil {
		return nil, errors.New("gateway: registry is nil")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}

	g := &Gateway{
		cfg:        cfg,
		registry:   registry,
		logger:     logger.With("component", "gateway"),
		transport:  opts.Transport,
		listener:   opts.Listener,
		hooks:      opts.OnShutdown,
		signalChan: opts.SignalChan,
	}

	g.server = mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)
	for _, d := range registry.Descriptors() {
		g.server.AddTool(&mcp.Tool{
			Name:        d.Name(),
			Description: d.Description(),
			InputSchema: d.InputSchemaMap(),
		}, g.callTool(d.Name()))
	}

	return g, nil
}

// Server returns the MCP server backing the gateway.
func (g *Gateway) Server() *mcp.Server {
	return g.server
}

// callTool bridges one MCP tool onto Registry.Dispatch. Tool failures travel
// back as error results so the agent can read them; only an unknown tool is
// a protocol error.
func (g *Gateway) callTool(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := tool.DecodeArguments(req.Params.Arguments)
		if err != nil {
			var invalid *tool.InvalidArgumentsError
			if errors.As(err, &invalid) {
				invalid.Tool = name
			}
			return errorResult(err), nil
		}

		res, err := g.registry.Dispatch(ctx, tool.Request{Name: name, Arguments: args})
		if err != nil {
			if errors.Is(err, tool.ErrUnknownTool) {
				return nil, err
			}
			return errorResult(err), nil
		}
		return toCallToolResult(res), nil
	}
}

func toCallToolResult(res *tool.Result) *mcp.CallToolResult {
	out := &mcp.CallToolResult{Content: make([]mcp.Content, 0, len(res.Content))}
	for _, c := range res.Content {
		out.Content = append(out.Content, &mcp.TextContent{Text: c.Text})
	}
	return out
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}

// Handler returns the HTTP routes for the configured transport: the MCP
// endpoint plus /healthz.
func (g *Gateway) Handler() http.Handler {
	getServer := func(*http.Request) *mcp.Server { return g.server }

	r := mux.NewRouter()
	r.HandleFunc("/healthz", g.handleHealth).Methods(http.MethodGet)
	switch g.cfg.Server.Transport {
	case config.TransportSSE:
		r.PathPrefix("/sse").Handler(mcp.NewSSEHandler(getServer, nil))
	default:
		r.PathPrefix("/mcp").Handler(mcp.NewStreamableHTTPHandler(getServer, nil))
	}
	return r
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"transport": g.cfg.Server.Transport,
		"tools":     len(g.registry.Names()),
	})
}

// Run serves until a signal arrives, ctx ends or the transport closes.
func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	switch g.cfg.Server.Transport {
	case config.TransportStdio:
		transport := g.transport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		go func() { errCh <- g.server.Run(ctx, transport) }()
		g.logger.Info("serving over stdio", "tools", len(g.registry.Names()))
	case config.TransportSSE, config.TransportHTTP:
		ln := g.listener
		if ln == nil {
			addr := net.JoinHostPort(g.cfg.Server.Host, strconv.Itoa(g.cfg.Server.Port))
			var err error
			ln, err = net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			g.listener = ln
		}
		// Streams end with Run's context, otherwise Shutdown waits on them.
		g.httpServer = &http.Server{
			Handler:           g.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}
		go func() { errCh <- g.httpServer.Serve(ln) }()
		g.logger.Info("serving over http", "transport", g.cfg.Server.Transport, "addr", ln.Addr().String())
	default:
		return fmt.Errorf("unknown transport %q", g.cfg.Server.Transport)
	}

	// Use injected signal channel for testing, or create default
	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
	}

	select {
	case sig := <-sigCh:
		g.logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
		g.logger.Info("shutting down", "reason", ctx.Err())
	case err := <-errCh:
		if err != nil && !isClosed(err) {
			cancel()
			_ = g.Shutdown()
			return fmt.Errorf("serve %s: %w", g.cfg.Server.Transport, err)
		}
		g.logger.Info("transport closed")
	}

	cancel()
	return g.Shutdown()
}

// Addr is the HTTP listen address once Run has started, "" for stdio.
func (g *Gateway) Addr() string {
	if g.listener == nil {
		return ""
	}
	return g.listener.Addr().String()
}

func (g *Gateway) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if g.httpServer != nil {
		if err := g.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	for _, hook := range g.hooks {
		if err := hook(ctx); err != nil {
			g.logger.Warn("shutdown hook failed", "error", err)
			errs = append(errs, err)
		}
	}
	g.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

func isClosed(err error) bool {
	return errors.Is(err, http.ErrServerClosed) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, io.EOF)
}
