package interview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	tools := Catalog()
	require.Len(t, tools, 6)

	byName := map[string]int{}
	for i, tool := range tools {
		byName[tool.Name] = i
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.NotEmpty(t, tool.Parameters, tool.Name)
	}

	for _, name := range []string{
		ToolAskQuestion, ToolAskFreeform, ToolAnalyzeImage,
		ToolGenerateClientBrief, ToolGenerateTeamSpec, ToolRequestHandoff,
	} {
		assert.Contains(t, byName, name)
		assert.True(t, KnownTool(name))
	}
	assert.False(t, KnownTool("drop_tables"))

	t.Run("ask_question bounds options", func(t *testing.T) {
		tool := tools[byName[ToolAskQuestion]]
		opts, ok := tool.Parameters["options"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, 2, opts["minItems"])
		assert.Equal(t, 4, opts["maxItems"])
		assert.ElementsMatch(t, []string{"question", "options", "allow_freeform"}, tool.Required)
	})

	t.Run("analyze_image requires colors typography layout", func(t *testing.T) {
		tool := tools[byName[ToolAnalyzeImage]]
		analysis, ok := tool.Parameters["analysis"].(map[string]any)
		require.True(t, ok)
		assert.ElementsMatch(t, []string{"colors", "typography", "layout"}, analysis["required"])
	})

	t.Run("catalog is stable data", func(t *testing.T) {
		// Two calls must return identical schemas: the catalog is pure data
		again := Catalog()
		assert.Equal(t, tools, again)
		assert.NotEmpty(t, CatalogVersion)
	})
}
