package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
)

var sample = []model.Item{
	{Title: "Go", URL: "https://go.dev", GroupPath: "Bookmarks bar > Dev", GlobalNumber: 7},
	{Title: "Rust", URL: "https://rust-lang.org", GlobalNumber: 8},
}

func TestRenderItems_AllFields(t *testing.T) {
	got := RenderItems(sample, model.DefaultFieldFlags())
	want := "7. Go - https://go.dev (Folder: Bookmarks bar > Dev)\n8. Rust - https://rust-lang.org"
	assert.Equal(t, want, got)
}

func TestRenderItems_FieldToggles(t *testing.T) {
	tests := []struct {
		name   string
		fields model.FieldFlags
		want   string
	}{
		{"title only", model.FieldFlags{IncludeTitle: true}, "7. Go"},
		{"url only", model.FieldFlags{IncludeURL: true}, "7. - https://go.dev"},
		{"folder only", model.FieldFlags{IncludeFolder: true}, "7. (Folder: Bookmarks bar > Dev)"},
		{"none", model.FieldFlags{}, "7."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderItems(sample[:1], tt.fields))
		})
	}
}

func TestRenderItems_PositionWhenUnnumbered(t *testing.T) {
	items := []model.Item{{Title: "a", URL: "u1"}, {Title: "b", URL: "u2"}}
	got := RenderItems(items, model.FieldFlags{IncludeTitle: true})
	assert.Equal(t, "1. a\n2. b", got)
}

func TestRenderItems_ContentPreview(t *testing.T) {
	long := strings.Repeat("é", ContentPreviewLimit+50)
	items := []model.Item{{Title: "t", URL: "u", Content: long, GlobalNumber: 3}}

	got := RenderItems(items, model.FieldFlags{IncludeTitle: true})
	require.True(t, strings.HasPrefix(got, "3. t\nContent: "))
	body := strings.TrimPrefix(got, "3. t\nContent: ")
	assert.True(t, strings.HasSuffix(body, "..."))
	assert.Equal(t, ContentPreviewLimit, len([]rune(strings.TrimSuffix(body, "..."))))

	short := RenderItems([]model.Item{{Title: "t", Content: "tiny", GlobalNumber: 1}}, model.FieldFlags{IncludeTitle: true})
	assert.Equal(t, "1. t\nContent: tiny...", short)
}

func TestFormat_InstructionsMode(t *testing.T) {
	got, err := Format(sample, "golang docs", DefaultOptions())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(got, "You are a bookmark search assistant."))
	assert.Contains(t, got, "7. Go - https://go.dev")
	assert.Contains(t, got, `User query: "golang docs"`)
	assert.Contains(t, got, "If no bookmarks match, return: NONE")
	assert.NotContains(t, got, SearchPlaceholder)
	assert.NotContains(t, got, BookmarksPlaceholder)
}

func TestFormat_RawMode(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeInstructions = false

	got, err := Format(sample, "golang docs", opts)
	require.NoError(t, err)
	assert.Equal(t, RenderItems(sample, opts.Fields)+"\n\ngolang docs", got)
}

func TestFormat_CustomTemplate(t *testing.T) {
	opts := DefaultOptions()
	opts.Template = "Q={SEARCH}\n[BOOKMARKS_WILL_BE_INSERTED_HERE]\nQ again={SEARCH}"

	got, err := Format(sample[:1], "go", opts)
	require.NoError(t, err)
	assert.Equal(t, "Q=go\n7. Go - https://go.dev (Folder: Bookmarks bar > Dev)\nQ again=go", got)
}

func TestFormat_CustomTemplateWithoutListPlaceholder(t *testing.T) {
	opts := DefaultOptions()
	opts.Template = "Find {SEARCH}"

	got, err := Format(sample[1:], "rust", opts)
	require.NoError(t, err)
	assert.Equal(t, "8. Rust - https://rust-lang.org\n\nFind rust", got)
}

func TestFormat_QueryIsSubstitutedVerbatim(t *testing.T) {
	opts := DefaultOptions()
	opts.Template = "{SEARCH} | [BOOKMARKS_WILL_BE_INSERTED_HERE]"

	got, err := Format(sample[1:], "[BOOKMARKS_WILL_BE_INSERTED_HERE]", opts)
	require.NoError(t, err)
	assert.Equal(t, "[BOOKMARKS_WILL_BE_INSERTED_HERE] | 8. Rust - https://rust-lang.org", got)
}

func TestFormat_MissingQueryPlaceholder(t *testing.T) {
	opts := DefaultOptions()
	opts.Template = "[BOOKMARKS_WILL_BE_INSERTED_HERE] only"

	_, err := Format(sample, "x", opts)
	assert.ErrorIs(t, err, ErrMissingQueryPlaceholder)
}

func TestValidateTemplate(t *testing.T) {
	assert.NoError(t, ValidateTemplate(DefaultTemplate))
	assert.ErrorIs(t, ValidateTemplate("no placeholder"), ErrMissingQueryPlaceholder)
	assert.ErrorIs(t, ValidateTemplate(""), ErrMissingQueryPlaceholder)
}
