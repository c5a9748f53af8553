// Package logs exposes the Datadog logs search tools.
package logs

import (
	"context"
	"net/http"
	"sort"
	"strconv"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
	"github.com/stellarlinkco/datadog-mcp/internal/tool"
)

const GroupName = "logs"

// API is the part of the Datadog v2 logs client the tools call.
// *datadogV2.LogsApi satisfies it.
type API interface {
	ListLogs(ctx context.Context, o ...datadogV2.ListLogsOptionalParameters) (datadogV2.LogsListResponse, *http.Response, error)
}

type handlers struct {
	api API
}

// Tools returns the logs group bound to api.
func Tools(api API) *tool.Group {
	h := handlers{api: api}
	return tool.MustGroup(GroupName,
		tool.Definition{
			Schema:      GetLogsSchema,
			Name:        "get_logs",
			Description: "Search and retrieve logs from Datadog",
			Handler:     h.getLogs,
		},
		tool.Definition{
			Schema:      GetAllServicesSchema,
			Name:        "get_all_services",
			Description: "List the distinct service names found in Datadog logs",
			Handler:     h.getAllServices,
		},
	)
}

func (h handlers) getLogs(ctx context.Context, args tool.Arguments) (*tool.Result, error) {
	resp, _, err := h.api.ListLogs(ctx, searchParams(args))
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, tool.NoData("No logs data returned")
	}
	return tool.Labeled("Logs data", resp.Data)
}

func (h handlers) getAllServices(ctx context.Context, args tool.Arguments) (*tool.Result, error) {
	resp, _, err := h.api.ListLogs(ctx, searchParams(args))
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, tool.NoData("No logs data returned")
	}

	seen := make(map[string]struct{})
	services := []string{}
	for _, entry := range resp.Data {
		attrs, ok := entry.GetAttributesOk()
		if !ok || attrs == nil {
			continue
		}
		svc := attrs.GetService()
		if svc == "" {
			continue
		}
		if _, dup := seen[svc]; dup {
			continue
		}
		seen[svc] = struct{}{}
		services = append(services, svc)
	}
	sort.Strings(services)

	return tool.Labeled("Services", services)
}

// searchParams builds the logs search body. The API takes from/to as epoch
// milliseconds rendered as strings.
func searchParams(args tool.Arguments) datadogV2.ListLogsOptionalParameters {
	body := datadogV2.LogsListRequest{
		Filter: &datadogV2.LogsQueryFilter{
			Query: datadog.PtrString(args.String("query")),
			From:  datadog.PtrString(epochMillis(args.Int64("from"))),
			To:    datadog.PtrString(epochMillis(args.Int64("to"))),
		},
		Page: &datadogV2.LogsListRequestPage{
			Limit: datadog.PtrInt32(int32(args.Int64("limit"))),
		},
		Sort: datadogV2.LOGSSORT_TIMESTAMP_DESCENDING.Ptr(),
	}
	return *datadogV2.NewListLogsOptionalParameters().WithBody(body)
}

func epochMillis(seconds int64) string {
	return strconv.FormatInt(seconds*1000, 10)
}
