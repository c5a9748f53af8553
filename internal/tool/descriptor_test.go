package tool

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDescriptorMirrorsSchema(t *testing.T) {
	t.Parallel()

	d, err := NewDescriptor(timeRangeSchema, "get_logs", "Search and retrieve logs from Datadog")
	require.NoError(t, err)

	if d.Name() != "get_logs" || d.Description() != "Search and retrieve logs from Datadog" {
		t.Fatalf("unexpected descriptor %+v", d.Entry())
	}

	schema := d.InputSchema()
	if schema.Type != "object" {
		t.Fatalf("type = %q, want object", schema.Type)
	}
	require.Equal(t, []string{"query", "from", "to"}, schema.Required)
	require.Len(t, schema.Properties, 4)

	limit := schema.Properties["limit"]
	if limit.Type != "integer" {
		t.Fatalf("limit type = %q", limit.Type)
	}
	if limit.Default != int64(100) {
		t.Fatalf("limit default = %#v, want int64(100)", limit.Default)
	}
	if limit.Minimum == nil || *limit.Minimum != 1 || limit.Maximum == nil || *limit.Maximum != 1000 {
		t.Fatalf("limit bounds not surfaced: %+v", limit)
	}
	if schema.Properties["from"].Description != "Start time in epoch seconds" {
		t.Fatalf("description lost: %+v", schema.Properties["from"])
	}
}

func TestDescriptorIsImmutable(t *testing.T) {
	t.Parallel()

	d := MustDescriptor(timeRangeSchema, "get_logs", "logs")
	leaked := d.InputSchema()
	leaked.Required = append(leaked.Required, "limit")
	leaked.Properties["query"].Type = "number"
	delete(leaked.Properties, "to")

	again := d.InputSchema()
	require.Equal(t, []string{"query", "from", "to"}, again.Required)
	if again.Properties["query"].Type != "string" {
		t.Fatal("property mutation leaked into descriptor")
	}
	if _, ok := again.Properties["to"]; !ok {
		t.Fatal("property deletion leaked into descriptor")
	}
}

func TestDescriptorInputSchemaMap(t *testing.T) {
	t.Parallel()

	d := MustDescriptor(Schema{
		{Name: "eventId", Type: TypeString, Required: true, NonEmpty: true, Description: "The RUM event ID"},
	}, "get_rum_event", "Get a RUM event from Datadog")

	m := d.InputSchemaMap()
	raw, err := json.Marshal(m)
	require.NoError(t, err)
	got := string(raw)
	for _, want := range []string{`"type":"object"`, `"required":["eventId"]`, `"minLength":1`} {
		if !strings.Contains(got, want) {
			t.Fatalf("schema %s missing %s", got, want)
		}
	}

	empty := MustDescriptor(nil, "get_rum_applications", "List RUM applications")
	raw, err = json.Marshal(empty.InputSchemaMap())
	require.NoError(t, err)
	if string(raw) != `{"properties":{},"required":[],"type":"object"}` {
		t.Fatalf("unexpected empty schema %s", raw)
	}
}

func TestNewDescriptorRejectsMalformedSchemas(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		schema      Schema
		toolName    string
		description string
		wantErr     string
	}{
		{name: "empty name", toolName: " ", description: "d", wantErr: "tool name is empty"},
		{name: "empty description", toolName: "t", description: "", wantErr: "description is empty"},
		{
			name:     "unsupported type",
			schema:   Schema{{Name: "when", Type: "date"}},
			toolName: "t", description: "d",
			wantErr: `unsupported type "date"`,
		},
		{
			name:     "duplicate field",
			schema:   Schema{{Name: "a", Type: TypeString}, {Name: "a", Type: TypeString}},
			toolName: "t", description: "d",
			wantErr: "declared twice",
		},
		{
			name:     "empty field name",
			schema:   Schema{{Name: "", Type: TypeString}},
			toolName: "t", description: "d",
			wantErr: "name is empty",
		},
		{
			name:     "default type mismatch",
			schema:   Schema{{Name: "limit", Type: TypeInteger, Default: "ten"}},
			toolName: "t", description: "d",
			wantErr: "default ten",
		},
		{
			name:     "required with default",
			schema:   Schema{{Name: "limit", Type: TypeInteger, Required: true, Default: 1}},
			toolName: "t", description: "d",
			wantErr: "cannot carry a default",
		},
		{
			name:     "bounds on string",
			schema:   Schema{{Name: "q", Type: TypeString, Minimum: Bound(1)}},
			toolName: "t", description: "d",
			wantErr: "bounds only apply",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewDescriptor(tt.schema, tt.toolName, tt.description)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	require.Panics(t, func() { MustDescriptor(Schema{{Name: "x", Type: "any"}}, "t", "d") })
}
