// Package rum exposes the Datadog Real User Monitoring tools.
package rum

import (
	"context"
	"net/http"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
	"github.com/stellarlinkco/datadog-mcp/internal/tool"
)

const GroupName = "rum"

// API is the part of the Datadog v2 RUM client the tools call.
// *datadogV2.RUMApi satisfies it.
type API interface {
	ListRUMEvents(ctx context.Context, o ...datadogV2.ListRUMEventsOptionalParameters) (datadogV2.RUMEventsResponse, *http.Response, error)
	GetRUMApplications(ctx context.Context) (datadogV2.RUMApplicationsResponse, *http.Response, error)
}

type handlers struct {
	api API
}

// Tools returns the RUM group bound to api.
func Tools(api API) *tool.Group {
	h := handlers{api: api}
	return tool.MustGroup(GroupName,
		tool.Definition{
			Schema:      ListRumEventsSchema,
			Name:        "list_rum_events",
			Description: "List RUM events from Datadog",
			Handler:     h.listEvents,
		},
		tool.Definition{
			Schema:      SearchRumEventsSchema,
			Name:        "search_rum_events",
			Description: "Search RUM events from Datadog",
			Handler:     h.searchEvents,
		},
		tool.Definition{
			Schema:      GetRumEventSchema,
			Name:        "get_rum_event",
			Description: "Get a RUM event from Datadog",
			Handler:     h.getEvent,
		},
		tool.Definition{
			Schema:      GetRumApplicationsSchema,
			Name:        "get_rum_applications",
			Description: "List RUM applications in the Datadog organization",
			Handler:     h.getApplications,
		},
	)
}

func (h handlers) listEvents(ctx context.Context, args tool.Arguments) (*tool.Result, error) {
	return h.events(ctx, "", args)
}

func (h handlers) searchEvents(ctx context.Context, args tool.Arguments) (*tool.Result, error) {
	return h.events(ctx, args.String("query"), args)
}

func (h handlers) events(ctx context.Context, query string, args tool.Arguments) (*tool.Result, error) {
	// The RUM endpoint takes date values; the tool boundary speaks epoch seconds.
	params := datadogV2.NewListRUMEventsOptionalParameters().
		WithFilterQuery(query).
		WithFilterFrom(fromEpoch(args.Int64("from"))).
		WithFilterTo(fromEpoch(args.Int64("to"))).
		WithPageLimit(int32(args.Int64("limit")))

	resp, _, err := h.api.ListRUMEvents(ctx, *params)
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, tool.NoData("No RUM events data returned")
	}
	return tool.Labeled("RUM events", resp.Data)
}

// getEvent looks an event up by id. The API has no point lookup, so this is a
// search on @id limited to one hit; an empty page is a miss.
func (h handlers) getEvent(ctx context.Context, args tool.Arguments) (*tool.Result, error) {
	params := datadogV2.NewListRUMEventsOptionalParameters().
		WithFilterQuery(IDQuery(args.String("eventId"))).
		WithPageLimit(1)

	resp, _, err := h.api.ListRUMEvents(ctx, *params)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, tool.NoData("No RUM event data returned")
	}
	return tool.Labeled("RUM event", resp.Data[0])
}

func (h handlers) getApplications(ctx context.Context, _ tool.Arguments) (*tool.Result, error) {
	resp, _, err := h.api.GetRUMApplications(ctx)
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, tool.NoData("No RUM applications data returned")
	}
	return tool.Labeled("RUM applications", resp.Data)
}

// IDQuery is the search fragment matching a single event id.
func IDQuery(id string) string {
	return "@id:" + id
}

func fromEpoch(seconds int64) time.Time {
	return time.Unix(seconds, 0).UTC()
}
