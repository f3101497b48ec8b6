// Package scope restricts a search to a user-selected subset of bookmarks.
package scope

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
)

// ErrEmptySelection is returned when nothing is selected.
var ErrEmptySelection = eris.New("select at least one item")

const pathSep = " > "

// Selection names the bookmarks to search. All overrides IDs and Folders.
type Selection struct {
	All     bool     `json:"all"`
	IDs     []string `json:"ids,omitempty"`
	Folders []string `json:"folders,omitempty"`
}

// Everything selects every bookmark.
func Everything() Selection {
	return Selection{All: true}
}

// Empty reports whether the selection names nothing. Blank IDs and
// folders do not count.
func (s Selection) Empty() bool {
	return !s.All && len(nonBlank(s.IDs)) == 0 && len(nonBlank(s.Folders)) == 0
}

// Normalize trims every ID and folder and drops the blank ones.
func (s Selection) Normalize() Selection {
	return Selection{All: s.All, IDs: nonBlank(s.IDs), Folders: nonBlank(s.Folders)}
}

func nonBlank(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate returns ErrEmptySelection for an empty selection.
func (s Selection) Validate() error {
	if s.Empty() {
		return ErrEmptySelection
	}
	return nil
}

// Apply keeps the items whose ID is selected or whose group path is a
// selected folder or lies beneath one. Order is preserved.
func Apply(items []model.Item, s Selection) ([]model.Item, error) {
	s = s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.All {
		return items, nil
	}

	ids := make(map[string]bool, len(s.IDs))
	for _, id := range s.IDs {
		ids[id] = true
	}

	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if ids[it.ID] || inFolders(it.GroupPath, s.Folders) {
			out = append(out, it)
		}
	}
	return out, nil
}

func inFolders(path string, folders []string) bool {
	for _, f := range folders {
		if path == f || strings.HasPrefix(path, f+pathSep) {
			return true
		}
	}
	return false
}
