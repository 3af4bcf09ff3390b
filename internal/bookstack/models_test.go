package bookstack

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShelf_UnmarshalJSON_CollectsExtraFields(t *testing.T) {
	raw := `{
		"id": 3,
		"name": "Home Assistant Documentation",
		"slug": "home-assistant-documentation",
		"description": "desc",
		"created_by": 1,
		"owned_by": {"id": 1, "name": "admin"}
	}`

	var shelf Shelf
	require.NoError(t, json.Unmarshal([]byte(raw), &shelf))

	assert.Equal(t, 3, shelf.ID)
	assert.Equal(t, "Home Assistant Documentation", shelf.Name)
	assert.Equal(t, "desc", shelf.Description)

	require.Contains(t, shelf.Extra, "created_by")
	require.Contains(t, shelf.Extra, "owned_by")
	assert.NotContains(t, shelf.Extra, "id")
	assert.NotContains(t, shelf.Extra, "name")
}

func TestPage_UnmarshalJSON(t *testing.T) {
	raw := `{
		"id": 9,
		"book_id": 12,
		"chapter_id": 4,
		"name": "Kitchen Overview",
		"slug": "kitchen-overview",
		"markdown": "# Kitchen",
		"priority": 5
	}`

	var page Page
	require.NoError(t, json.Unmarshal([]byte(raw), &page))

	assert.Equal(t, 9, page.ID)
	assert.Equal(t, 12, page.BookID)
	assert.Equal(t, 4, page.ChapterID)
	assert.Equal(t, "# Kitchen", page.Markdown)
	assert.Contains(t, page.Extra, "priority")
}

func TestChapter_UnmarshalJSON_NoExtraFields(t *testing.T) {
	raw := `{"id": 4, "book_id": 12, "name": "Ground Floor", "slug": "ground-floor"}`

	var chapter Chapter
	require.NoError(t, json.Unmarshal([]byte(raw), &chapter))

	assert.Equal(t, 12, chapter.BookID)
	assert.Nil(t, chapter.Extra)
}
