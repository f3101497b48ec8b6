package model

import "time"

// HistoryRecord is one entry of the search-history log.
type HistoryRecord struct {
	ID        string     `json:"id"`
	Query     string     `json:"query"`
	Mode      SearchMode `json:"mode,omitempty"`
	Results   []Item     `json:"results"`
	Timestamp time.Time  `json:"timestamp"`
}
