package bookmarks

import (
	"math"
	"sort"
	"strings"

	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
)

const (
	fuzzyThreshold = 10
	fuzzyLimit     = 50
)

// Exact returns items whose title or URL contains every whitespace-separated
// term of query, ignoring case. Items keep their tree order.
func Exact(items []model.Item, query string) []model.Item {
	terms := strings.Fields(strings.ToLower(query))
	out := []model.Item{}
	if len(terms) == 0 {
		return out
	}

	for _, it := range items {
		if it.URL == "" {
			continue
		}
		hay := strings.ToLower(it.Title + "\n" + it.URL)
		match := true
		for _, t := range terms {
			if !strings.Contains(hay, t) {
				match = false
				break
			}
		}
		if match {
			out = append(out, it)
		}
	}
	return out
}

// Fuzzy ranks items by a weighted score over title, URL and folder path and
// returns the best 50 scoring above the threshold. Ties keep tree order.
func Fuzzy(items []model.Item, query string) []model.Item {
	type scored struct {
		item  model.Item
		score float64
	}

	var ranked []scored
	for _, it := range items {
		s := Score(query, it.Title) + Score(query, it.URL)*0.7 + Score(query, it.GroupPath)*0.3
		if s > fuzzyThreshold {
			ranked = append(ranked, scored{it, s})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if len(ranked) > fuzzyLimit {
		ranked = ranked[:fuzzyLimit]
	}
	out := make([]model.Item, len(ranked))
	for i, r := range ranked {
		out[i] = r.item
	}
	return out
}

// Score rates how well query matches text: 100 for a substring match,
// otherwise 10 per query character found in order, 20 more when all were
// found, minus half a point per character of length difference. Never
// negative.
func Score(query, text string) float64 {
	if text == "" {
		return 0
	}
	q := []rune(strings.ToLower(query))
	t := []rune(strings.ToLower(text))
	if strings.Contains(string(t), string(q)) {
		return 100
	}

	score := 0.0
	qi := 0
	for i := 0; i < len(t) && qi < len(q); i++ {
		if t[i] == q[qi] {
			score += 10
			qi++
		}
	}
	if qi == len(q) {
		score += 20
	}
	score -= math.Abs(float64(len(t)-len(q))) * 0.5
	return math.Max(0, score)
}
