package batch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunner_StartSupersedes(t *testing.T) {
	var r Runner

	first, doneFirst := r.Start(context.Background())
	second, doneSecond := r.Start(context.Background())
	defer doneSecond()

	assert.ErrorIs(t, first.Err(), context.Canceled)
	assert.NoError(t, second.Err())
	assert.True(t, r.Active())

	// Releasing a superseded run leaves the live one alone.
	doneFirst()
	assert.True(t, r.Active())
	assert.NoError(t, second.Err())
}

func TestRunner_Cancel(t *testing.T) {
	var r Runner
	assert.False(t, r.Cancel())

	ctx, done := r.Start(context.Background())
	defer done()

	assert.True(t, r.Cancel())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.False(t, r.Active())
	assert.False(t, r.Cancel())
}

func TestRunner_Done(t *testing.T) {
	var r Runner
	ctx, done := r.Start(context.Background())
	done()
	done()

	assert.False(t, r.Active())
	assert.Error(t, ctx.Err())
}
