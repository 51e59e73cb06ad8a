package samplerun

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const progressInterval = time.Second

// progress prints a single updating line of counts. A nil writer disables it.
type progress struct {
	w     io.Writer
	label string
	total int

	mu   sync.Mutex
	done int
	last time.Time
}

func newProgress(w io.Writer, label string, total int) *progress {
	return &progress{w: w, label: label, total: total}
}

// terminalOutput returns stdout when it is attached to a terminal.
func terminalOutput() io.Writer {
	fd := os.Stdout.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return os.Stdout
	}
	return nil
}

func (p *progress) add(n int) {
	if p == nil || p.w == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done += n
	if p.done < p.total && time.Since(p.last) < progressInterval {
		return
	}
	p.last = time.Now()
	_, _ = fmt.Fprintf(p.w, "\r%s: %d/%d", p.label, p.done, p.total)
}

func (p *progress) finish() {
	if p == nil || p.w == nil {
		return
	}
	_, _ = fmt.Fprintln(p.w)
}
