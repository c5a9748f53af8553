package logs

import "github.com/stellarlinkco/datadog-mcp/internal/tool"

const (
	defaultLimit         = 100
	defaultServicesLimit = 1000
	maxPageLimit         = 1000
)

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
)

// GetLogsSchema declares the arguments of get_logs.
var GetLogsSchema = tool.Schema{
	{Name: "query", Type: tool.TypeString, Required: true, Description: "Datadog logs search query"},
	fromField,
	toField,
	{
		Name:        "limit",
		Type:        tool.TypeInteger,
		Default:     defaultLimit,
		Minimum:     tool.Bound(1),
		Maximum:     tool.Bound(maxPageLimit),
		Description: "Maximum number of logs to return. Default is 100.",
	},
}

// GetAllServicesSchema declares the arguments of get_all_services.
var GetAllServicesSchema = tool.Schema{
	{Name: "query", Type: tool.TypeString, Default: "*", Description: "Logs query narrowing the scan. Default is *."},
	fromField,
	toField,
	{
		Name:        "limit",
		Type:        tool.TypeInteger,
		Default:     defaultServicesLimit,
		Minimum:     tool.Bound(1),
		Maximum:     tool.Bound(maxPageLimit),
		Description: "Maximum number of logs to scan for service names. Default is 1000.",
	},
}
