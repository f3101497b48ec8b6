package model

// SearchMode selects how a query is matched against bookmarks.
type SearchMode string

const (
	SearchModeExact SearchMode = "exact"
	SearchModeFuzzy SearchMode = "fuzzy"
	SearchModeAI    SearchMode = "ai"
)

// Valid reports whether m is a known search mode.
func (m SearchMode) Valid() bool {
	switch m {
	case SearchModeExact, SearchModeFuzzy, SearchModeAI:
		return true
	}
	return false
}

// Progress is emitted once per batch attempt.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Percent returns the completion percentage, 0 when Total is zero.
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return p.Current * 100 / p.Total
}

// BatchDetail records one batch round-trip for the raw-exchange view.
type BatchDetail struct {
	BatchNumber int    `json:"batch_number"`
	Sent        string `json:"sent"`
	Received    string `json:"received"`
	Error       string `json:"error,omitempty"`
}

// Diagnostics describes what was sent to and received from the model.
// Single-batch runs fill Sent/Received; batched runs fill the batch fields.
type Diagnostics struct {
	Sent         string        `json:"sent,omitempty"`
	Received     string        `json:"received,omitempty"`
	Batches      int           `json:"batches,omitempty"`
	TotalItems   int           `json:"total_items,omitempty"`
	BatchSize    int           `json:"batch_size,omitempty"`
	BatchDetails []BatchDetail `json:"batch_details,omitempty"`
	Cancelled    bool          `json:"cancelled,omitempty"`
	Enrichment   *EnrichStats  `json:"enrichment,omitempty"`
}

// EnrichStats counts where deep-search page content came from.
type EnrichStats struct {
	Pages      int `json:"pages"`
	Cached     int `json:"cached"`
	Downloaded int `json:"downloaded"`
	Failed     int `json:"failed"`
}

// Failed returns the batch details that ended in an error.
func (d Diagnostics) Failed() []BatchDetail {
	var out []BatchDetail
	for _, bd := range d.BatchDetails {
		if bd.Error != "" {
			out = append(out, bd)
		}
	}
	return out
}

// Result is the outcome of a search.
type Result struct {
	Query       string       `json:"query"`
	Mode        SearchMode   `json:"mode"`
	Items       []Item       `json:"items"`
	Diagnostics *Diagnostics `json:"diagnostics,omitempty"`
}
