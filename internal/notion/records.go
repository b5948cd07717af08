package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Properties is a page property payload in Notion's wire shape.
type Properties map[string]any

// BuildProperties assembles the property payload for one daily price record.
// The change pointer is only honored when the schema has a numeric change
// column; a nil change is written as an explicit null there.
func BuildProperties(schema Schema, symbol, day, action string, price float64, change *float64) Properties {
	props := Properties{
		PropDate:         map[string]any{"date": map[string]any{"start": day}},
		schema.TitleProp: map[string]any{"title": []any{map[string]any{"text": map[string]any{"content": symbol}}}},
		PropAction:       map[string]any{"rich_text": []any{map[string]any{"text": map[string]any{"content": action}}}},
		PropOutcome:      map[string]any{"number": price},
	}
	if schema.HasChangePercent {
		var n any
		if change != nil {
			n = *change
		}
		props[PropChange] = map[string]any{"number": n}
	}
	return props
}

type queryResult struct {
	Results []struct {
		ID         string `json:"id"`
		Properties map[string]struct {
			Number *float64 `json:"number"`
		} `json:"properties"`
	} `json:"results"`
}

func (c *Client) query(ctx context.Context, payload any) (queryResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/databases/"+c.databaseID+"/query", payload)
	if err != nil {
		return queryResult{}, err
	}
	defer resp.Body.Close()
	var out queryResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return queryResult{}, fmt.Errorf("decode query result: %w", err)
	}
	return out, nil
}

// FindRecord returns the page id of the record for (symbol, day), or "" when
// none exists. Page size 1: the orchestrator keeps the database at one row
// per day, so at most one match is expected.
func (c *Client) FindRecord(ctx context.Context, schema Schema, symbol, day string) (string, error) {
	payload := map[string]any{
		"filter": map[string]any{
			"and": []any{
				map[string]any{"property": schema.TitleProp, "title": map[string]any{"equals": symbol}},
				map[string]any{"property": PropDate, "date": map[string]any{"equals": day}},
			},
		},
		"page_size": 1,
	}
	out, err := c.query(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("find record %s %s: %w", symbol, day, err)
	}
	if len(out.Results) == 0 {
		return "", nil
	}
	return out.Results[0].ID, nil
}

// PriorPrice returns the most recent recorded outcome for symbol strictly
// before beforeDay. ok is false when no prior record (or no outcome) exists.
func (c *Client) PriorPrice(ctx context.Context, schema Schema, symbol, beforeDay string) (price float64, ok bool, err error) {
	payload := map[string]any{
		"filter": map[string]any{
			"and": []any{
				map[string]any{"property": schema.TitleProp, "title": map[string]any{"equals": symbol}},
				map[string]any{"property": PropDate, "date": map[string]any{"before": beforeDay}},
			},
		},
		"sorts":     []any{map[string]any{"property": PropDate, "direction": "descending"}},
		"page_size": 1,
	}
	out, err := c.query(ctx, payload)
	if err != nil {
		return 0, false, fmt.Errorf("prior price %s before %s: %w", symbol, beforeDay, err)
	}
	if len(out.Results) == 0 {
		return 0, false, nil
	}
	outcome, exists := out.Results[0].Properties[PropOutcome]
	if !exists || outcome.Number == nil {
		return 0, false, nil
	}
	return *outcome.Number, true, nil
}

// CreateRecord inserts a new page into the database and returns the HTTP
// status code for logging.
func (c *Client) CreateRecord(ctx context.Context, props Properties) (int, error) {
	payload := map[string]any{
		"parent":     map[string]any{"database_id": c.databaseID},
		"properties": props,
	}
	resp, err := c.do(ctx, http.MethodPost, "/v1/pages", payload)
	if err != nil {
		return 0, fmt.Errorf("create record: %w", err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// UpdateRecord patches the properties of an existing page and returns the
// HTTP status code for logging.
func (c *Client) UpdateRecord(ctx context.Context, pageID string, props Properties) (int, error) {
	payload := map[string]any{"properties": props}
	resp, err := c.do(ctx, http.MethodPatch, "/v1/pages/"+pageID, payload)
	if err != nil {
		return 0, fmt.Errorf("update record %s: %w", pageID, err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
