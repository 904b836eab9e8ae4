package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"mediavault/internal/logging"
	"mediavault/internal/transfer"
)

// progressPrinter renders a status sequence. Terminals get a progress bar;
// anything else gets one line per 25% step so logs and pipes stay readable.
type progressPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	label   string
	bar     *progressbar.ProgressBar
	sampler *logging.ProgressSampler
	done    bool
}

func newProgressPrinter(out io.Writer, label string) *progressPrinter {
	p := &progressPrinter{out: out, label: label}
	if isTerminal(out) {
		p.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription(label),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionSetWidth(30),
		)
		return p
	}
	p.sampler = logging.NewProgressSampler(25)
	return p
}

// Emit is a transfer.Emitter.
func (p *progressPrinter) Emit(status transfer.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	if status.Terminal() {
		p.finish()
		return
	}
	if p.bar != nil {
		if status.Percent >= 0 {
			_ = p.bar.Set(status.Percent)
		}
		return
	}
	if p.sampler.ShouldLog(status.Percent) {
		fmt.Fprintf(p.out, "%s: %d%%\n", p.label, status.Percent)
	}
}

func (p *progressPrinter) finish() {
	p.done = true
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Close stops rendering; safe to call after a terminal status.
func (p *progressPrinter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.done {
		p.finish()
	}
}
