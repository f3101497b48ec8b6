// Package batch splits a numbered bookmark list into bounded batches, sends
// them one at a time through the LLM gateway and merges the replies.
package batch

import "github.com/yuval-kahan/Bookmarks-Search/internal/model"

const (
	// DefaultBatchSize is the maximum number of items per request.
	DefaultBatchSize = 50
	// DefaultDeepBatchSize replaces DefaultBatchSize when items carry page content.
	DefaultDeepBatchSize = 10
	// DefaultMaxBytes is the per-batch size-estimate ceiling.
	DefaultMaxBytes = 100000
)

// Number returns a copy of items with GlobalNumber set to 1..N in order.
func Number(items []model.Item) []model.Item {
	out := make([]model.Item, len(items))
	for i, it := range items {
		it.GlobalNumber = i + 1
		out[i] = it
	}
	return out
}

// Partition walks items in order, closing a batch when it holds maxItems
// items or when the next item would push its size estimate past maxBytes.
// An item larger than maxBytes gets a batch of its own. A non-positive
// maxItems means no count limit; a non-positive maxBytes uses
// DefaultMaxBytes.
func Partition(items []model.Item, maxItems, maxBytes int) []model.Batch {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	var (
		out     []model.Batch
		cur     []model.Item
		curSize int
	)
	flush := func() {
		if len(cur) == 0 {
			return
		}
		out = append(out, model.Batch{Number: len(out) + 1, Items: cur})
		cur = nil
		curSize = 0
	}

	for _, it := range items {
		size := it.SizeEstimate()
		full := maxItems > 0 && len(cur) >= maxItems
		if len(cur) > 0 && (full || curSize+size > maxBytes) {
			flush()
		}
		cur = append(cur, it)
		curSize += size
	}
	flush()
	return out
}
