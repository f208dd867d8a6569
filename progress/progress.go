package progress

import (
	"github.com/pterm/pterm"
)

// Sink produces counters for long-running folder copies. A Sink is injected
// through the call chain instead of living in package state so that headless
// runs and tests can substitute Nop.
type Sink interface {
	NewCounter(total int) Counter
}

// Counter tracks one folder's per-message progress.
type Counter interface {
	Increment()
	SetLabel(label string)
	Finish()
}

// New returns the interactive pterm sink when logLevel is "info"; any other
// level degrades to plain sequential log lines, so the bar is disabled.
func New(logLevel string) Sink {
	if logLevel == "info" {
		return ptermSink{}
	}
	return Nop{}
}

type ptermSink struct{}

func (ptermSink) NewCounter(total int) Counter {
	pb, _ := pterm.DefaultProgressbar.
		WithTotal(total).
		WithRemoveWhenDone(true).
		Start()
	return &ptermCounter{pb: pb}
}

type ptermCounter struct {
	pb *pterm.ProgressbarPrinter
}

func (c *ptermCounter) Increment() {
	if c.pb == nil {
		return
	}
	c.pb.Increment()
}

func (c *ptermCounter) SetLabel(label string) {
	if c.pb == nil {
		return
	}
	c.pb.UpdateTitle(label)
}

func (c *ptermCounter) Finish() {
	if c.pb == nil {
		return
	}
	_, _ = c.pb.Stop()
}

// Nop is a progress sink that discards everything.
type Nop struct{}

func (Nop) NewCounter(int) Counter { return nopCounter{} }

type nopCounter struct{}

func (nopCounter) Increment() {}

func (nopCounter) SetLabel(string) {}

func (nopCounter) Finish() {}
