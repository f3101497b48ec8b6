package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuval-kahan/Bookmarks-Search/internal/deepsearch"
	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
	"github.com/yuval-kahan/Bookmarks-Search/internal/search"
)

func TestFormatResult_Plain(t *testing.T) {
	res := &model.Result{
		Query: "rust",
		Mode:  model.SearchModeExact,
		Items: []model.Item{
			{Title: "Tokio tutorial", URL: "https://tokio.rs", GroupPath: "Bookmarks bar > Rust"},
			{URL: "https://doc.rust-lang.org"},
		},
	}
	got := formatResult(res, false)
	assert.Equal(t, "# 2 result(s) for \"rust\" (exact)\n\n"+
		"- [Tokio tutorial](https://tokio.rs) *Bookmarks bar > Rust*\n"+
		"- [https://doc.rust-lang.org](https://doc.rust-lang.org)\n", got)
}

func TestFormatResult_Diagnostics(t *testing.T) {
	res := &model.Result{
		Query: "go",
		Mode:  model.SearchModeAI,
		Diagnostics: &model.Diagnostics{
			Batches:    2,
			TotalItems: 60,
			BatchSize:  50,
			Cancelled:  true,
			BatchDetails: []model.BatchDetail{
				{BatchNumber: 1, Sent: "prompt one", Received: "3,7"},
				{BatchNumber: 2, Sent: "prompt two", Error: "llm: groq: API error (429): slow down"},
			},
		},
	}

	short := formatResult(res, false)
	assert.Contains(t, short, "results are partial")
	assert.Contains(t, short, "1 of 2 batches failed")
	assert.NotContains(t, short, "prompt one")

	full := formatResult(res, true)
	assert.Contains(t, full, "## Exchange: 2 batches of up to 50 items (60 items)")
	assert.Contains(t, full, "### Batch 1\n\n```\nprompt one\n```")
	assert.Contains(t, full, "Reply: `3,7`")
	assert.Contains(t, full, "**Error:** llm: groq: API error (429): slow down")
	assert.NotContains(t, full, "batches failed")
}

func TestFormatResult_SingleExchange(t *testing.T) {
	res := &model.Result{
		Query:       "go",
		Mode:        model.SearchModeAI,
		Diagnostics: &model.Diagnostics{Sent: "the prompt", Received: "NONE"},
	}
	full := formatResult(res, true)
	assert.Contains(t, full, "## Sent\n\n```\nthe prompt\n```")
	assert.Contains(t, full, "## Received\n\n```\nNONE\n```")
}

func TestFormatResult_EnrichmentCounts(t *testing.T) {
	res := &model.Result{
		Query: "go",
		Mode:  model.SearchModeAI,
		Diagnostics: &model.Diagnostics{
			Sent:       "the prompt",
			Received:   "1",
			Enrichment: &model.EnrichStats{Pages: 5, Cached: 2, Downloaded: 2, Failed: 1},
		},
	}
	assert.Contains(t, formatResult(res, true), "Deep search: 5 pages, 2 from cache, 2 downloaded, 1 failed.")
	assert.NotContains(t, formatResult(res, false), "Deep search")
}

func TestPrintMarkdown_NonTerminal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printMarkdown(&buf, "# title\n", false))
	assert.Equal(t, "# title\n", buf.String())
}

func TestProgressText(t *testing.T) {
	u := search.Update{Stage: search.StageEnrich, Percent: 13, Enrich: &deepsearch.Event{Phase: deepsearch.PhaseDownloading, URL: "https://go.dev"}}
	assert.Equal(t, "Reading pages", progressLabel(u))
	assert.Equal(t, "https://go.dev", progressDetail(u))

	u.Enrich = &deepsearch.Event{Phase: deepsearch.PhaseFoundInCache, Processed: 2, Total: 4, Cached: 1}
	assert.Equal(t, "2/4 pages (1 cached)", progressDetail(u))

	u = search.Update{Stage: search.StageBatch, Percent: 75, Batch: &model.Progress{Current: 1, Total: 2}}
	assert.Equal(t, "Searching", progressLabel(u))
	assert.Equal(t, "batch 1/2", progressDetail(u))
}

func TestParseDay(t *testing.T) {
	zero, err := parseDay("", true)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	start, err := parseDay("2026-03-04", false)
	require.NoError(t, err)
	assert.True(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.Local).Equal(start))

	end, err := parseDay("2026-03-04", true)
	require.NoError(t, err)
	assert.True(t, time.Date(2026, 3, 4, 23, 59, 59, 999999999, time.Local).Equal(end))

	_, err = parseDay("04/03/2026", false)
	assert.Error(t, err)
}
