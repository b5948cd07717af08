package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Well-known property names in the price database. The title property is the
// one exception: users rename it freely (Name, Stock, ...), so it is
// discovered from the database metadata instead of hardcoded.
const (
	PropDate    = "Date"
	PropAction  = "Action"
	PropOutcome = "Outcome"
	PropChange  = "Change %"
)

// Schema is the per-run view of the database layout.
type Schema struct {
	// TitleProp is the name of the database's title property.
	TitleProp string
	// HasChangePercent is true when a numeric "Change %" property exists.
	// The change value is only written when it does.
	HasChangePercent bool
}

// Schema fetches the database metadata once and locates the title property.
// A database without one is unusable and aborts startup.
func (c *Client) Schema(ctx context.Context) (Schema, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/databases/"+c.databaseID, nil)
	if err != nil {
		return Schema{}, fmt.Errorf("fetch database metadata: %w", err)
	}
	defer resp.Body.Close()

	var meta struct {
		Properties map[string]struct {
			Type string `json:"type"`
		} `json:"properties"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return Schema{}, fmt.Errorf("decode database metadata: %w", err)
	}

	var s Schema
	for name, prop := range meta.Properties {
		if prop.Type == "title" {
			s.TitleProp = name
			break
		}
	}
	if s.TitleProp == "" {
		return Schema{}, fmt.Errorf("database %s has no title property", c.databaseID)
	}
	if prop, ok := meta.Properties[PropChange]; ok && prop.Type == "number" {
		s.HasChangePercent = true
	}
	return s, nil
}
