package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
)

var now = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func rec(query string, ts time.Time) model.HistoryRecord {
	return model.HistoryRecord{ID: query, Query: query, Timestamp: ts}
}

var sample = []model.HistoryRecord{
	rec("Golang generics", now.Add(-time.Hour)),
	rec("rust async", now.Add(-16*time.Hour)),
	rec("kubernetes operators", now.Add(-3*24*time.Hour)),
	rec("go testing", now.Add(-20*24*time.Hour)),
	rec("sourdough", now.Add(-60*24*time.Hour)),
}

func queries(records []model.HistoryRecord) []string {
	out := []string{}
	for _, r := range records {
		out = append(out, r.Query)
	}
	return out
}

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"none", Filter{}, []string{"Golang generics", "rust async", "kubernetes operators", "go testing", "sourdough"}},
		{"substring case-insensitive", Filter{Query: "GO"}, []string{"Golang generics", "go testing"}},
		{"substring no match", Filter{Query: "gtg"}, []string{}},
		{"fuzzy subsequence", Filter{Query: "gtg", Fuzzy: true}, []string{"go testing"}},
		{"fuzzy keeps order", Filter{Query: "ra", Fuzzy: true}, []string{"rust async", "kubernetes operators"}},
		{"today", Filter{Range: RangeToday}, []string{"Golang generics"}},
		{"yesterday", Filter{Range: RangeYesterday}, []string{"rust async"}},
		{"week", Filter{Range: RangeWeek}, []string{"Golang generics", "rust async", "kubernetes operators"}},
		{"month", Filter{Range: RangeMonth}, []string{"Golang generics", "rust async", "kubernetes operators", "go testing"}},
		{"query and range", Filter{Query: "go", Range: RangeWeek}, []string{"Golang generics"}},
		{
			"custom range wins",
			Filter{Range: RangeToday, From: now.Add(-21 * 24 * time.Hour), To: now.Add(-3 * 24 * time.Hour)},
			[]string{"kubernetes operators", "go testing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, queries(tt.filter.Apply(sample, now)))
		})
	}
}
