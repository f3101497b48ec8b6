// Package progress draws a single-line search progress indicator on stderr.
// Nothing is drawn when stderr is not a terminal so piped output stays clean.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

const barWidth = 20

// Line renders progress in place with carriage returns.
type Line struct {
	mu    sync.Mutex
	w     io.Writer
	isTTY bool
	width int
	drawn bool
}

// New returns a Line writing to stderr.
func New() *Line {
	return NewWriter(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())))
}

// NewWriter returns a Line writing to w. Nothing is written unless tty is set.
func NewWriter(w io.Writer, tty bool) *Line {
	return &Line{w: w, isTTY: tty}
}

// Set redraws the line with a label, a percentage and an optional detail.
func (l *Line) Set(label string, percent int, detail string) {
	if !l.isTTY {
		return
	}
	percent = max(0, min(100, percent))
	filled := percent * barWidth / 100

	s := fmt.Sprintf("%s [%s%s] %3d%%", label,
		strings.Repeat("#", filled), strings.Repeat("-", barWidth-filled), percent)
	if detail != "" {
		s += " " + detail
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	pad := ""
	if n := len(s); n < l.width {
		pad = strings.Repeat(" ", l.width-n)
	}
	fmt.Fprintf(l.w, "\r%s%s", s, pad)
	l.width = len(s)
	l.drawn = true
}

// Done clears the line.
func (l *Line) Done() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.isTTY || !l.drawn {
		return
	}
	fmt.Fprintf(l.w, "\r%s\r", strings.Repeat(" ", l.width))
	l.width = 0
	l.drawn = false
}
