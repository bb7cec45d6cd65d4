package api

import (
	"context"
	"encoding/json"
	"fmt"
)

// ValidateDashboards checks that a raw dashboards payload is an array of
// objects each carrying a string id and name. It returns one problem per
// invalid item, or a single problem if raw is not an array.
func ValidateDashboards(raw json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{fmt.Sprintf("data is not an array: %v", err)}
	}

	var problems []string
	for i, item := range items {
		var fields map[string]any
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			problems = append(problems, fmt.Sprintf("item %d: not an object", i))
			continue
		}
		if _, ok := fields["id"].(string); !ok {
			problems = append(problems, fmt.Sprintf("item %d: id is not a string", i))
		}
		if _, ok := fields["name"].(string); !ok {
			problems = append(problems, fmt.Sprintf("item %d: name is not a string", i))
		}
	}
	return problems
}

// GetDashboardsRaw fetches the dashboards list without decoding items, for
// callers that validate the payload shape before trusting it.
func (c *Client) GetDashboardsRaw(ctx context.Context) (*Envelope[json.RawMessage], error) {
	return get[json.RawMessage](ctx, c, "/dashboards")
}
