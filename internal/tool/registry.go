package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/stellarlinkco/datadog-mcp/internal/tool"

// Handler implements a tool against an injected API capability. It receives
// arguments that already passed the tool's schema and must not keep state
// between calls.
type Handler func(ctx context.Context, args Arguments) (*Result, error)

// Definition is the static (schema, name, description, handler) tuple both the
// catalogue and the handler map are derived from.
type Definition struct {
	Schema      Schema
	Name        string
	Description string
	Handler     Handler
}

// Request is an incoming call from the agent boundary. Arguments are untrusted.
type Request struct {
	Name      string
	Arguments map[string]any
}

type entry struct {
	group      string
	descriptor Descriptor
	handler    Handler
}

// Group is the ordered tool set of one functional area (logs, RUM, ...).
type Group struct {
	name    string
	entries []entry
}

// NewGroup builds a group, failing on malformed schemas, missing handlers or
// names declared twice.
func NewGroup(name string, defs ...Definition) (*Group, error) {
	g := &Group{name: name, entries: make([]entry, 0, len(defs))}
	seen := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		desc, err := NewDescriptor(def.Schema, def.Name, def.Description)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", name, err)
		}
		if def.Handler == nil {
			return nil, fmt.Errorf("group %s: tool %s has no handler", name, desc.Name())
		}
		if _, dup := seen[desc.Name()]; dup {
			return nil, fmt.Errorf("group %s: tool %s already registered", name, desc.Name())
		}
		seen[desc.Name()] = struct{}{}
		g.entries = append(g.entries, entry{group: name, descriptor: desc, handler: def.Handler})
	}
	return g, nil
}

// MustGroup is NewGroup for static definitions evaluated at startup.
func MustGroup(name string, defs ...Definition) *Group {
	g, err := NewGroup(name, defs...)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *Group) Name() string { return g.name }

// Descriptors lists the group's tools in declaration order.
func (g *Group) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(g.entries))
	for _, e := range g.entries {
		out = append(out, e.descriptor)
	}
	return out
}

// Handlers is the group's handler map keyed by tool name.
func (g *Group) Handlers() map[string]Handler {
	out := make(map[string]Handler, len(g.entries))
	for _, e := range g.entries {
		out[e.descriptor.Name()] = e.handler
	}
	return out
}

// Registry is the global tool catalogue and dispatch table. It is filled once
// by NewRegistry and only read afterwards, so it needs no locking.
type Registry struct {
	order   []string
	entries map[string]entry
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewRegistry appends the groups in order. A tool name appearing twice across
// groups is a startup error.
func NewRegistry(groups ...*Group) (*Registry, error) {
	r := &Registry{
		entries: make(map[string]entry),
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, g := range groups {
		if g == nil {
			return nil, fmt.Errorf("group is nil")
		}
		for _, e := range g.entries {
			name := e.descriptor.Name()
			if prev, exists := r.entries[name]; exists {
				return nil, fmt.Errorf("tool %s already registered by group %s", name, prev.group)
			}
			r.entries[name] = e
			r.order = append(r.order, name)
		}
	}
	return r, nil
}

// WithLogger returns a shallow copy logging through l.
func (r *Registry) WithLogger(l *slog.Logger) *Registry {
	clone := *r
	if l != nil {
		clone.logger = l
	}
	return &clone
}

// WithTracer returns a shallow copy tracing through t.
func (r *Registry) WithTracer(t trace.Tracer) *Registry {
	clone := *r
	if t != nil {
		clone.tracer = t
	}
	return &clone
}

// Descriptors returns the full catalogue in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].descriptor)
	}
	return out
}

// Catalog returns the serialised catalogue in registration order.
func (r *Registry) Catalog() []CatalogEntry {
	out := make([]CatalogEntry, 0, len(r.order))
	for _, d := range r.Descriptors() {
		out = append(out, d.Entry())
	}
	return out
}

// Names lists the descriptor names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// HandlerNames lists every name with a registered handler.
func (r *Registry) HandlerNames() []string {
	out := make([]string, 0, len(r.entries))
	for name, e := range r.entries {
		if e.handler != nil {
			out = append(out, name)
		}
	}
	return out
}

// Dispatch resolves req to its handler, validates the arguments against the
// tool's schema and invokes the handler once. Errors come back unchanged:
// ErrUnknownTool, *InvalidArgumentsError, ErrNoData or the upstream error.
func (r *Registry) Dispatch(ctx context.Context, req Request) (*Result, error) {
	requestID := uuid.NewString()
	ctx, span := r.tracer.Start(ctx, "tool.execute",
		trace.WithAttributes(
			attribute.String("tool.name", req.Name),
			attribute.String("tool.request_id", requestID),
		),
	)
	defer span.End()

	started := time.Now()
	res, err := r.dispatch(ctx, req)
	outcome := Outcome(err)

	span.SetAttributes(attribute.String("tool.outcome", outcome))
	if e, ok := r.entries[req.Name]; ok {
		span.SetAttributes(attribute.String("tool.group", e.group))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.WarnContext(ctx, "tool call failed",
			"tool", req.Name,
			"request_id", requestID,
			"outcome", outcome,
			"duration", time.Since(started),
			"error", err,
		)
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	r.logger.DebugContext(ctx, "tool call completed",
		"tool", req.Name,
		"request_id", requestID,
		"duration", time.Since(started),
	)
	return res, nil
}

func (r *Registry) dispatch(ctx context.Context, req Request) (*Result, error) {
	e, ok := r.entries[req.Name]
	if !ok {
		return nil, &UnknownToolError{Name: req.Name}
	}

	args, err := Validate(e.descriptor.schema, req.Arguments)
	if err != nil {
		var invalid *InvalidArgumentsError
		if errors.As(err, &invalid) {
			invalid.Tool = e.descriptor.Name()
		}
		return nil, err
	}

	res, err := e.handler(ctx, args)
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Content) == 0 {
		return nil, fmt.Errorf("tool %s returned an empty result", e.descriptor.Name())
	}
	return res, nil
}

// Outcome classifies a Dispatch error for logs and traces.
func Outcome(err error) string {
	var invalid *InvalidArgumentsError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnknownTool):
		return "unknown_tool"
	case errors.As(err, &invalid):
		return "invalid_arguments"
	case errors.Is(err, ErrNoData):
		return "no_data"
	default:
		return "upstream_error"
	}
}
