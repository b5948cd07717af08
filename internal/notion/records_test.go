package notion_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricetracker/internal/notion"
)

func TestBuildProperties_AllFields(t *testing.T) {
	t.Parallel()

	schema := notion.Schema{TitleProp: "Stock", HasChangePercent: true}
	change := 0.0123
	props := notion.BuildProperties(schema, "QQQ", "2024-01-02", "Auto price update", 400.5, &change)

	b, err := json.Marshal(props)
	require.NoError(t, err)
	var round map[string]any
	require.NoError(t, json.Unmarshal(b, &round))

	assert.Equal(t, "2024-01-02", round["Date"].(map[string]any)["date"].(map[string]any)["start"])
	title := round["Stock"].(map[string]any)["title"].([]any)
	assert.Equal(t, "QQQ", title[0].(map[string]any)["text"].(map[string]any)["content"])
	assert.Equal(t, 400.5, round["Outcome"].(map[string]any)["number"])
	assert.Equal(t, 0.0123, round["Change %"].(map[string]any)["number"])
}

func TestBuildProperties_NilChangeEncodesNull(t *testing.T) {
	t.Parallel()

	schema := notion.Schema{TitleProp: "Name", HasChangePercent: true}
	props := notion.BuildProperties(schema, "QQQ", "2024-01-02", "Auto price update", 400.5, nil)

	b, err := json.Marshal(props)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"Change %":{"number":null}`)
}

func TestBuildProperties_NoChangeColumnOmitsChange(t *testing.T) {
	t.Parallel()

	schema := notion.Schema{TitleProp: "Name"}
	change := 0.5
	props := notion.BuildProperties(schema, "QQQ", "2024-01-02", "Auto price update", 400.5, &change)

	_, exists := props[notion.PropChange]
	assert.False(t, exists)
}
