package tool

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type spyHandler struct {
	mu     sync.Mutex
	calls  []Arguments
	result *Result
	err    error
}

func (s *spyHandler) handle(_ context.Context, args Arguments) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, args)
	return s.result, s.err
}

func (s *spyHandler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newTestRegistry(t *testing.T, logs, rum *spyHandler) *Registry {
	t.Helper()

	logsGroup, err := NewGroup("logs", Definition{
		Schema: timeRangeSchema, Name: "get_logs", Description: "Search logs", Handler: logs.handle,
	})
	require.NoError(t, err)
	rumGroup, err := NewGroup("rum",
		Definition{Schema: Schema{{Name: "eventId", Type: TypeString, Required: true, NonEmpty: true, Description: "id"}}, Name: "get_rum_event", Description: "Get a RUM event", Handler: rum.handle},
		Definition{Name: "get_rum_applications", Description: "List apps", Handler: rum.handle},
	)
	require.NoError(t, err)

	reg, err := NewRegistry(logsGroup, rumGroup)
	require.NoError(t, err)
	return reg
}

func TestRegistryNamesMatchHandlers(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, &spyHandler{}, &spyHandler{})

	names := reg.Names()
	require.Equal(t, []string{"get_logs", "get_rum_event", "get_rum_applications"}, names)

	handlers := reg.HandlerNames()
	sort.Strings(handlers)
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	require.Equal(t, sorted, handlers)

	catalog := reg.Catalog()
	require.Len(t, catalog, 3)
	for i, entry := range catalog {
		if entry.Name != names[i] {
			t.Fatalf("catalog[%d] = %s, want %s", i, entry.Name, names[i])
		}
	}
}

func TestNewRegistryRejectsDuplicatesAcrossGroups(t *testing.T) {
	t.Parallel()

	noop := func(context.Context, Arguments) (*Result, error) { return Text("ok"), nil }
	a := MustGroup("logs", Definition{Name: "get_logs", Description: "a", Handler: noop})
	b := MustGroup("rum", Definition{Name: "get_logs", Description: "b", Handler: noop})

	_, err := NewRegistry(a, b)
	if err == nil || !strings.Contains(err.Error(), "tool get_logs already registered by group logs") {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	if _, err := NewRegistry(a, nil); err == nil {
		t.Fatal("expected nil group error")
	}
}

func TestNewGroupValidation(t *testing.T) {
	t.Parallel()

	noop := func(context.Context, Arguments) (*Result, error) { return Text("ok"), nil }

	_, err := NewGroup("logs", Definition{Name: "get_logs", Description: "d"})
	if err == nil || !strings.Contains(err.Error(), "has no handler") {
		t.Fatalf("expected missing handler error, got %v", err)
	}

	_, err = NewGroup("logs",
		Definition{Name: "get_logs", Description: "d", Handler: noop},
		Definition{Name: "get_logs", Description: "d", Handler: noop},
	)
	if err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	require.Panics(t, func() {
		MustGroup("logs", Definition{Schema: Schema{{Name: "x", Type: "array"}}, Name: "t", Description: "d", Handler: noop})
	})

	g := MustGroup("logs", Definition{Name: "get_logs", Description: "d", Handler: noop})
	if g.Name() != "logs" || len(g.Descriptors()) != 1 || g.Handlers()["get_logs"] == nil {
		t.Fatalf("unexpected group views: %+v", g.Descriptors())
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	t.Parallel()

	logs := &spyHandler{result: Text("Logs data: []")}
	reg := newTestRegistry(t, logs, &spyHandler{})

	_, err := reg.Dispatch(context.Background(), Request{Name: "get_metrics"})
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
	var invalid *InvalidArgumentsError
	if errors.As(err, &invalid) {
		t.Fatal("unknown tool must not look like a validation failure")
	}
	if !strings.Contains(err.Error(), "get_metrics") {
		t.Fatalf("error should name the tool: %v", err)
	}
	if logs.count() != 0 {
		t.Fatal("handler invoked for unknown tool")
	}
}

func TestDispatchInvalidArgumentsNeverReachHandler(t *testing.T) {
	t.Parallel()

	logs := &spyHandler{result: Text("Logs data: []")}
	rum := &spyHandler{result: Text("RUM event: {}")}
	reg := newTestRegistry(t, logs, rum)

	_, err := reg.Dispatch(context.Background(), Request{Name: "get_logs", Arguments: map[string]any{"from": "now"}})
	var invalid *InvalidArgumentsError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidArgumentsError, got %v", err)
	}
	if invalid.Tool != "get_logs" {
		t.Fatalf("tool = %q, want get_logs", invalid.Tool)
	}
	require.Equal(t, []string{"query", "from", "to"}, invalid.FieldNames())

	_, err = reg.Dispatch(context.Background(), Request{Name: "get_rum_event", Arguments: map[string]any{"eventId": ""}})
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidArgumentsError for empty id, got %v", err)
	}

	if logs.count() != 0 || rum.count() != 0 {
		t.Fatalf("handlers invoked %d/%d times, want 0", logs.count(), rum.count())
	}
}

func TestDispatchPassesValidatedArguments(t *testing.T) {
	t.Parallel()

	logs := &spyHandler{result: Text("Logs data: []")}
	reg := newTestRegistry(t, logs, &spyHandler{})

	res, err := reg.Dispatch(context.Background(), Request{
		Name:      "get_logs",
		Arguments: map[string]any{"query": "status:error", "from": 1640995100, "to": 1640995200},
	})
	require.NoError(t, err)
	if res.FirstText() != "Logs data: []" {
		t.Fatalf("unexpected result %+v", res)
	}
	require.Equal(t, 1, logs.count())
	args := logs.calls[0]
	if args.Int64("limit") != 100 || args.String("query") != "status:error" {
		t.Fatalf("unexpected validated arguments %+v", args.Map())
	}
}

func TestDispatchPropagatesHandlerErrorsUnchanged(t *testing.T) {
	t.Parallel()

	upstream := errors.New("403 Forbidden")
	reg := newTestRegistry(t, &spyHandler{err: upstream}, &spyHandler{err: NoData("No RUM event data returned")})

	_, err := reg.Dispatch(context.Background(), Request{Name: "get_logs", Arguments: map[string]any{"query": "*", "from": 1, "to": 2}})
	if err != upstream {
		t.Fatalf("upstream error rewrapped: %v", err)
	}
	if Outcome(err) != "upstream_error" {
		t.Fatalf("outcome = %s", Outcome(err))
	}

	_, err = reg.Dispatch(context.Background(), Request{Name: "get_rum_event", Arguments: map[string]any{"eventId": "abc"}})
	if !errors.Is(err, ErrNoData) || err.Error() != "No RUM event data returned" {
		t.Fatalf("unexpected no-data error %v", err)
	}
}

func TestDispatchRejectsEmptyResult(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, &spyHandler{result: &Result{}}, &spyHandler{})
	_, err := reg.Dispatch(context.Background(), Request{Name: "get_logs", Arguments: map[string]any{"query": "*", "from": 1, "to": 2}})
	if err == nil || !strings.Contains(err.Error(), "empty result") {
		t.Fatalf("expected empty result error, got %v", err)
	}
}

func TestDispatchIsIdempotent(t *testing.T) {
	t.Parallel()

	logs := &spyHandler{result: Text(`Logs data: [{"id":"log-1"}]`)}
	reg := newTestRegistry(t, logs, &spyHandler{})
	req := Request{Name: "get_logs", Arguments: map[string]any{"query": "*", "from": 1, "to": 2, "limit": 5}}

	first, err := reg.Dispatch(context.Background(), req)
	require.NoError(t, err)
	second, err := reg.Dispatch(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestDispatchConcurrentCalls(t *testing.T) {
	t.Parallel()

	logs := &spyHandler{result: Text("Logs data: []")}
	reg := newTestRegistry(t, logs, &spyHandler{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := reg.Dispatch(context.Background(), Request{
				Name:      "get_logs",
				Arguments: map[string]any{"query": "*", "from": i, "to": i + 1},
			})
			if err != nil {
				t.Errorf("dispatch %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, 16, logs.count())
}

func TestDispatchRecordsSpans(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	reg := newTestRegistry(t, &spyHandler{result: Text("Logs data: []")}, &spyHandler{}).
		WithTracer(provider.Tracer("test"))

	_, err := reg.Dispatch(context.Background(), Request{Name: "get_logs", Arguments: map[string]any{"query": "*", "from": 1, "to": 2}})
	require.NoError(t, err)
	_, _ = reg.Dispatch(context.Background(), Request{Name: "missing"})

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	outcomes := map[string]string{}
	for _, span := range spans {
		if span.Name() != "tool.execute" {
			t.Fatalf("span name = %s", span.Name())
		}
		var name, outcome string
		for _, kv := range span.Attributes() {
			switch kv.Key {
			case "tool.name":
				name = kv.Value.AsString()
			case "tool.outcome":
				outcome = kv.Value.AsString()
			}
		}
		outcomes[name] = outcome
	}
	require.Equal(t, map[string]string{"get_logs": "ok", "missing": "unknown_tool"}, outcomes)
}
