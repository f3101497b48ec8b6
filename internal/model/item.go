package model

// Item is one searchable bookmark. GlobalNumber is assigned once per search
// and is the join key between a model reply and the item it names.
type Item struct {
	ID           string `json:"id,omitempty"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	GroupPath    string `json:"group_path,omitempty"`
	Content      string `json:"content,omitempty"`
	GlobalNumber int    `json:"global_number,omitempty"`
}

// SizeEstimate is the serialized-size estimate used for batch byte ceilings.
func (i Item) SizeEstimate() int {
	return len(i.Title) + len(i.URL) + len(i.Content)
}

// HasContent reports whether the item carries enrichment text.
func (i Item) HasContent() bool {
	return i.Content != ""
}

// Batch is a contiguous slice of the numbered item list sent as one request.
type Batch struct {
	Number int    `json:"number"`
	Items  []Item `json:"items"`
}

// Size returns the summed size estimate of the batch items.
func (b Batch) Size() int {
	n := 0
	for _, it := range b.Items {
		n += it.SizeEstimate()
	}
	return n
}
