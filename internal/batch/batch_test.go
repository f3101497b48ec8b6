package batch

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func makeItems(n int) []model.Item {
	items := make([]model.Item, n)
	for i := range items {
		items[i] = model.Item{
			ID:    fmt.Sprintf("b%d", i),
			Title: fmt.Sprintf("Bookmark %d", i),
			URL:   fmt.Sprintf("https://example.com/%d", i),
		}
	}
	return items
}

func flatten(batches []model.Batch) []model.Item {
	var out []model.Item
	for _, b := range batches {
		out = append(out, b.Items...)
	}
	return out
}

func TestNumber(t *testing.T) {
	items := makeItems(3)
	numbered := Number(items)

	for i, it := range numbered {
		assert.Equal(t, i+1, it.GlobalNumber)
	}
	assert.Zero(t, items[0].GlobalNumber, "input must not be mutated")
}

func TestPartition_Completeness(t *testing.T) {
	for _, n := range []int{0, 1, 7, 49, 50, 51, 120, 333} {
		for _, size := range []int{1, 3, 10, 50, 1000} {
			for _, maxBytes := range []int{40, 100, 500, DefaultMaxBytes} {
				name := fmt.Sprintf("n=%d/size=%d/bytes=%d", n, size, maxBytes)
				t.Run(name, func(t *testing.T) {
					numbered := Number(makeItems(n))
					batches := Partition(numbered, size, maxBytes)

					if diff := cmp.Diff(numbered, flatten(batches), cmpopts.EquateEmpty()); diff != "" {
						t.Fatalf("partition lost or reordered items (-want +got):\n%s", diff)
					}
					for i, b := range batches {
						assert.Equal(t, i+1, b.Number)
						require.NotEmpty(t, b.Items)
						assert.LessOrEqual(t, len(b.Items), size)
						if len(b.Items) > 1 {
							assert.LessOrEqual(t, b.Size(), maxBytes)
						}
					}
				})
			}
		}
	}
}

func TestPartition_GlobalNumberStable(t *testing.T) {
	numbered := Number(makeItems(40))

	one := Partition(numbered, 0, DefaultMaxBytes)
	many := Partition(numbered, 6, DefaultMaxBytes)
	require.Len(t, one, 1)
	require.Len(t, many, 7)

	byID := map[string]int{}
	for _, it := range one[0].Items {
		byID[it.ID] = it.GlobalNumber
	}
	for _, b := range many {
		for _, it := range b.Items {
			assert.Equal(t, byID[it.ID], it.GlobalNumber, it.ID)
		}
	}
}

func TestPartition_ByteCeiling(t *testing.T) {
	items := Number([]model.Item{
		{Title: "a", Content: strings.Repeat("x", 40)},
		{Title: "b", Content: strings.Repeat("x", 40)},
		{Title: "c", Content: strings.Repeat("x", 300)},
		{Title: "d", Content: strings.Repeat("x", 10)},
	})

	batches := Partition(items, 10, 100)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0].Items, 2)
	assert.Equal(t, "c", batches[1].Items[0].Title, "oversized item gets its own batch")
	assert.Len(t, batches[1].Items, 1)
	assert.Equal(t, "d", batches[2].Items[0].Title)
}

func TestPartition_Sizes(t *testing.T) {
	batches := Partition(Number(makeItems(120)), 50, DefaultMaxBytes)

	var sizes []int
	for _, b := range batches {
		sizes = append(sizes, len(b.Items))
	}
	assert.Equal(t, []int{50, 50, 20}, sizes)
}

func TestPartition_Empty(t *testing.T) {
	assert.Empty(t, Partition(nil, 50, 0))
}
