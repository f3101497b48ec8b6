package history

import (
	"sort"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
)

// Range is a quick date filter.
type Range string

const (
	RangeAll       Range = ""
	RangeToday     Range = "today"
	RangeYesterday Range = "yesterday"
	RangeWeek      Range = "week"
	RangeMonth     Range = "month"
)

// Filter narrows a history listing. A custom From/To range takes
// precedence over Range.
type Filter struct {
	Query string
	Fuzzy bool
	Range Range
	From  time.Time
	To    time.Time
}

// Apply returns the records matching f, keeping their order. now anchors
// the quick ranges; calendar days are taken in now's location.
func (f Filter) Apply(records []model.HistoryRecord, now time.Time) []model.HistoryRecord {
	out := f.matchQuery(records)

	switch {
	case !f.From.IsZero() && !f.To.IsZero():
		return within(out, f.From, f.To, true)
	case f.Range != RangeAll:
		return f.applyRange(out, now)
	}
	return out
}

func (f Filter) matchQuery(records []model.HistoryRecord) []model.HistoryRecord {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return records
	}

	if f.Fuzzy {
		matches := fuzzy.FindFrom(q, querySource(records))
		idx := make([]int, 0, len(matches))
		for _, m := range matches {
			idx = append(idx, m.Index)
		}
		sort.Ints(idx)
		out := make([]model.HistoryRecord, 0, len(idx))
		for _, i := range idx {
			out = append(out, records[i])
		}
		return out
	}

	out := make([]model.HistoryRecord, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Query), q) {
			out = append(out, r)
		}
	}
	return out
}

func (f Filter) applyRange(records []model.HistoryRecord, now time.Time) []model.HistoryRecord {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch f.Range {
	case RangeToday:
		return within(records, midnight, time.Time{}, false)
	case RangeYesterday:
		return within(records, midnight.AddDate(0, 0, -1), midnight, false)
	case RangeWeek:
		return within(records, now.Add(-7*24*time.Hour), time.Time{}, false)
	case RangeMonth:
		return within(records, now.Add(-30*24*time.Hour), time.Time{}, false)
	}
	return records
}

// within keeps records at or after from and before to (or at to when
// inclusive). A zero to is unbounded.
func within(records []model.HistoryRecord, from, to time.Time, inclusive bool) []model.HistoryRecord {
	out := make([]model.HistoryRecord, 0, len(records))
	for _, r := range records {
		ts := r.Timestamp
		if ts.Before(from) {
			continue
		}
		if !to.IsZero() && (ts.After(to) || (!inclusive && ts.Equal(to))) {
			continue
		}
		out = append(out, r)
	}
	return out
}

type querySource []model.HistoryRecord

func (s querySource) String(i int) string { return strings.ToLower(s[i].Query) }
func (s querySource) Len() int            { return len(s) }
