// Package prompt renders numbered bookmark lists into model prompts.
package prompt

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
)

// Placeholders recognised in templates.
const (
	SearchPlaceholder    = "{SEARCH}"
	BookmarksPlaceholder = "[BOOKMARKS_WILL_BE_INSERTED_HERE]"
)

// ContentPreviewLimit caps the enrichment text rendered per item, in characters.
const ContentPreviewLimit = 1000

// DefaultTemplate asks for comma-separated numbers or NONE.
const DefaultTemplate = `You are a bookmark search assistant. Here are all the user's bookmarks:

[BOOKMARKS_WILL_BE_INSERTED_HERE]

User query: "{SEARCH}"

Based on the query, return ONLY the numbers of the most relevant bookmarks (comma-separated). For example: 1,5,12
If no bookmarks match, return: NONE

Your response:`

// ErrMissingQueryPlaceholder rejects templates without {SEARCH}.
var ErrMissingQueryPlaceholder = eris.New("Prompt must contain the {SEARCH} placeholder.")

// Options controls rendering.
type Options struct {
	// Template overrides DefaultTemplate when non-empty.
	Template string
	// IncludeInstructions wraps the list in the template; when false only
	// the list and the raw query are sent.
	IncludeInstructions bool
	Fields              model.FieldFlags
}

// DefaultOptions renders every field inside the default template.
func DefaultOptions() Options {
	return Options{IncludeInstructions: true, Fields: model.DefaultFieldFlags()}
}

// ValidateTemplate checks that a custom template carries the query placeholder.
func ValidateTemplate(tpl string) error {
	if !strings.Contains(tpl, SearchPlaceholder) {
		return ErrMissingQueryPlaceholder
	}
	return nil
}

// Format builds the prompt for items and query.
func Format(items []model.Item, query string, opts Options) (string, error) {
	list := RenderItems(items, opts.Fields)
	if !opts.IncludeInstructions {
		return list + "\n\n" + query, nil
	}

	tpl := opts.Template
	if tpl == "" {
		tpl = DefaultTemplate
	}
	if err := ValidateTemplate(tpl); err != nil {
		return "", err
	}
	if !strings.Contains(tpl, BookmarksPlaceholder) {
		tpl = BookmarksPlaceholder + "\n\n" + tpl
	}
	r := strings.NewReplacer(BookmarksPlaceholder, list, SearchPlaceholder, query)
	return r.Replace(tpl), nil
}

// RenderItems renders one line per item, numbered by GlobalNumber (or by
// position when the item has not been numbered).
func RenderItems(items []model.Item, fields model.FieldFlags) string {
	var sb strings.Builder
	for i, it := range items {
		if i > 0 {
			sb.WriteByte('\n')
		}
		n := it.GlobalNumber
		if n <= 0 {
			n = i + 1
		}
		sb.WriteString(strconv.Itoa(n))
		sb.WriteByte('.')
		if fields.IncludeTitle {
			sb.WriteString(" " + it.Title)
		}
		if fields.IncludeURL {
			sb.WriteString(" - " + it.URL)
		}
		if fields.IncludeFolder && it.GroupPath != "" {
			sb.WriteString(" (Folder: " + it.GroupPath + ")")
		}
		if it.HasContent() {
			sb.WriteString("\nContent: " + preview(it.Content) + "...")
		}
	}
	return sb.String()
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= ContentPreviewLimit {
		return s
	}
	return string(r[:ContentPreviewLimit])
}
