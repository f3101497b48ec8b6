package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLine_NotTTY(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, false)
	l.Set("Searching", 40, "batch 2/5")
	l.Done()
	assert.Empty(t, buf.String())
}

func TestLine_Set(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, true)

	l.Set("Fetching pages", 25, "https://go.dev")
	assert.Equal(t, "\rFetching pages [#####---------------]  25% https://go.dev", buf.String())

	buf.Reset()
	l.Set("Searching", 150, "")
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\rSearching [####################] 100%"))
	// Padded to overwrite the longer previous line.
	assert.Len(t, out, len("\rFetching pages [#####---------------]  25% https://go.dev"))
}

func TestLine_Done(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, true)
	l.Done()
	assert.Empty(t, buf.String())

	l.Set("Searching", 0, "")
	buf.Reset()
	l.Done()
	assert.Equal(t, "\r"+strings.Repeat(" ", len("Searching [--------------------]   0%"))+"\r", buf.String())
}
