// Package bookmarks reads a Chromium "Bookmarks" file and flattens it into
// searchable items.
package bookmarks

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
)

// PathSeparator joins ancestor folder titles into a group path.
const PathSeparator = " > "

// Node is one entry of the bookmark tree.
type Node struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	URL      string  `json:"url,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// File is the top level of a Chromium Bookmarks file.
type File struct {
	Roots struct {
		BookmarkBar *Node `json:"bookmark_bar"`
		Other       *Node `json:"other"`
		Synced      *Node `json:"synced"`
	} `json:"roots"`
	Version int `json:"version"`
}

// Parse decodes a Bookmarks file and returns its items in tree order.
func Parse(data []byte) ([]model.Item, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "bookmarks: decode")
	}

	var items []model.Item
	for _, root := range []*Node{f.Roots.BookmarkBar, f.Roots.Other, f.Roots.Synced} {
		if root != nil {
			items = Flatten(root, nil, items)
		}
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

// Load reads and parses the Bookmarks file at path.
func Load(path string) ([]model.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "bookmarks: read %s", path)
	}
	return Parse(data)
}

// Flatten appends the URL nodes under n to dst. Each item's group path is
// the titles of its ancestor folders, starting with the root folder.
func Flatten(n *Node, path []string, dst []model.Item) []model.Item {
	if n.URL != "" {
		dst = append(dst, model.Item{
			ID:        n.ID,
			Title:     n.Name,
			URL:       n.URL,
			GroupPath: strings.Join(path, PathSeparator),
		})
	}
	if len(n.Children) == 0 {
		return dst
	}
	child := append(path[:len(path):len(path)], n.Name)
	for _, c := range n.Children {
		dst = Flatten(c, child, dst)
	}
	return dst
}
