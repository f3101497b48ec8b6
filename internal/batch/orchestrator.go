package batch

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/yuval-kahan/Bookmarks-Search/internal/llm"
	"github.com/yuval-kahan/Bookmarks-Search/internal/model"
	"github.com/yuval-kahan/Bookmarks-Search/internal/prompt"
	"github.com/yuval-kahan/Bookmarks-Search/internal/reply"
)

// Config controls one orchestrated search.
type Config struct {
	// Enabled splits the list into batches; when false the whole list is
	// sent as a single batch.
	Enabled   bool
	BatchSize int
	MaxBytes  int
	Prompt    prompt.Options
}

// ProgressFunc receives (completed, total) after every batch attempt.
type ProgressFunc func(model.Progress)

// Outcome is the merged result of all batches.
type Outcome struct {
	Items       []model.Item
	Diagnostics model.Diagnostics
}

// Orchestrator runs batched searches.
type Orchestrator struct {
	llm      llm.Completer
	progress ProgressFunc
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) {
		o.progress = fn
	}
}

// New creates an Orchestrator that sends batches through c.
func New(c llm.Completer, opts ...Option) *Orchestrator {
	o := &Orchestrator{llm: c}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Search numbers items, partitions them and sends the batches in order.
// A failed batch is recorded in the diagnostics and skipped. Cancelling ctx
// stops the loop before the next batch and returns what was collected so
// far; cancellation is reported in Diagnostics.Cancelled, not as an error.
// The only error is an invalid prompt template, detected before any request.
func (o *Orchestrator) Search(ctx context.Context, items []model.Item, query string, provider llm.ProviderConfig, cfg Config) (*Outcome, error) {
	if cfg.Prompt.IncludeInstructions && cfg.Prompt.Template != "" {
		if err := prompt.ValidateTemplate(cfg.Prompt.Template); err != nil {
			return nil, err
		}
	}

	numbered := Number(items)
	size, maxBytes := cfg.BatchSize, cfg.MaxBytes
	if size <= 0 {
		size = DefaultBatchSize
	}
	if !cfg.Enabled {
		size, maxBytes = len(numbered), math.MaxInt
	}
	batches := Partition(numbered, size, maxBytes)

	out := &Outcome{Items: []model.Item{}}
	if cfg.Enabled {
		out.Diagnostics.Batches = len(batches)
		out.Diagnostics.TotalItems = len(numbered)
		out.Diagnostics.BatchSize = size
	}

	start := time.Now()
	seen := make(map[int]bool)
	for i, b := range batches {
		if ctx.Err() != nil {
			out.Diagnostics.Cancelled = true
			break
		}

		detail, matched := o.send(ctx, b, query, provider, cfg.Prompt)
		if ctx.Err() != nil {
			// The reply of an aborted request is discarded.
			out.Diagnostics.Cancelled = true
			matched = nil
		}
		o.record(&out.Diagnostics, cfg.Enabled, detail)

		for _, n := range matched {
			if seen[n] || n > len(numbered) {
				continue
			}
			seen[n] = true
			out.Items = append(out.Items, numbered[n-1])
		}

		if o.progress != nil {
			o.progress(model.Progress{Current: i + 1, Total: len(batches)})
		}
	}

	zap.L().Info("batch: search complete",
		zap.Int("items", len(numbered)),
		zap.Int("batches", len(batches)),
		zap.Int("matches", len(out.Items)),
		zap.Int("failed", len(out.Diagnostics.Failed())),
		zap.Bool("cancelled", out.Diagnostics.Cancelled),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

func (o *Orchestrator) send(ctx context.Context, b model.Batch, query string, provider llm.ProviderConfig, opts prompt.Options) (model.BatchDetail, []int) {
	detail := model.BatchDetail{BatchNumber: b.Number}

	text, err := prompt.Format(b.Items, query, opts)
	if err != nil {
		detail.Error = err.Error()
		return detail, nil
	}
	detail.Sent = text

	resp, err := o.llm.Complete(ctx, text, provider)
	if err != nil {
		detail.Error = err.Error()
		if ctx.Err() == nil {
			zap.L().Warn("batch: request failed",
				zap.Int("batch", b.Number),
				zap.Int("items", len(b.Items)),
				zap.Error(err),
			)
		}
		return detail, nil
	}
	detail.Received = resp
	return detail, reply.Parse(resp)
}

func (o *Orchestrator) record(d *model.Diagnostics, batched bool, detail model.BatchDetail) {
	if batched {
		d.BatchDetails = append(d.BatchDetails, detail)
		return
	}
	d.Sent = detail.Sent
	d.Received = detail.Received
	if detail.Error != "" {
		d.BatchDetails = append(d.BatchDetails, detail)
	}
}
