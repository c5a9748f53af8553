package rum

import "github.com/stellarlinkco/datadog-mcp/internal/tool"

const maxPageLimit = 1000

var (
	fromField = tool.Field{
		Name:        "from",
		Type:        tool.TypeInteger,
		Required:    true,
		Minimum:     tool.Bound(0),
		Maximum:     tool.Bound(tool.MaxEpochSeconds),
		Description: "Start time in epoch seconds",
	}
	toField = tool.Field{
		Name:        "to",
		Type:        tool.TypeInteger,
		Required:    true,
		Minimum:     tool.Bound(0),
		Maximum:     tool.Bound(tool.MaxEpochSeconds),
		Description: "End time in epoch seconds",
	}
	limitField = tool.Field{
		Name:        "limit",
		Type:        tool.TypeInteger,
		Default:     100,
		Minimum:     tool.Bound(1),
		Maximum:     tool.Bound(maxPageLimit),
		Description: "Maximum number of events to return. Default is 100.",
	}
)

// ListRumEventsSchema lists RUM events in a time range.
var ListRumEventsSchema = tool.Schema{
	fromField,
	toField,
	limitField,
}

// SearchRumEventsSchema searches RUM events with a query.
var SearchRumEventsSchema = tool.Schema{
	{Name: "query", Type: tool.TypeString, Required: true, Description: "RUM events query string"},
	fromField,
	toField,
	limitField,
}

// GetRumEventSchema fetches one RUM event by id.
var GetRumEventSchema = tool.Schema{
	{Name: "eventId", Type: tool.TypeString, Required: true, NonEmpty: true, Description: "The RUM event ID"},
}

// GetRumApplicationsSchema takes no arguments.
var GetRumApplicationsSchema = tool.Schema{}
