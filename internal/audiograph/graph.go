// Package audiograph owns the output graph: playback element, analyser
// tap, then the output device.
package audiograph

import (
	"io"
	"log/slog"
	"sync"
)

// Context is an output device the graph routes into.
type Context interface {
	NewOutput(r io.Reader) Output
	Suspend() error
	Resume() error
}

// Output is a started or startable stream on a Context.
type Output interface {
	Play()
}

// ContextFactory opens the output device.
type ContextFactory func() (Context, error)

// Options configure a Graph.
type Options struct {
	FFTSize int
	// StartSuspended holds the device until the first Interact call.
	StartSuspended bool
	Logger         *slog.Logger
}

// Graph is built at most once. The first Ensure call constructs it and
// connects the element; later calls return the same Analyser without
// touching the routing.
type Graph struct {
	factory ContextFactory
	opts    Options

	mu          sync.Mutex
	ctx         Context
	out         Output
	analyser    *Analyser
	source      io.Reader
	connected   bool
	failed      bool
	suspended   bool
	resumeArmed bool
}

// New returns an unbuilt graph.
func New(factory ContextFactory, opts Options) *Graph {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Graph{factory: factory, opts: opts}
}

// Ensure builds the graph around el on first use and returns its analyser.
// It returns nil when the output device could not be opened; that failure
// is logged once and not retried.
func (g *Graph) Ensure(el io.Reader) *Analyser {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.connected {
		if el != g.source {
			g.opts.Logger.Debug("audio graph already connected, ignoring new element")
		}
		return g.analyser
	}
	if g.failed {
		return nil
	}

	ctx, err := g.factory()
	if err != nil {
		g.failed = true
		g.opts.Logger.Warn("audio output unavailable, live levels disabled", "error", err)
		return nil
	}

	g.ctx = ctx
	g.source = el
	g.analyser = newAnalyser(el, g.opts.FFTSize)
	g.out = ctx.NewOutput(g.analyser)
	g.connected = true

	if g.opts.StartSuspended {
		if err := ctx.Suspend(); err != nil {
			g.opts.Logger.Warn("suspending audio output", "error", err)
		} else {
			g.suspended = true
			g.resumeArmed = true
		}
	}
	g.out.Play()
	g.opts.Logger.Info("audio graph connected", "fft_size", g.analyser.FFTSize(), "suspended", g.suspended)
	return g.analyser
}

// Analyser returns the live handle, or nil before Ensure succeeds.
func (g *Graph) Analyser() *Analyser {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.analyser
}

// Connected reports whether the element has been routed.
func (g *Graph) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

// Suspended reports whether the device is held.
func (g *Graph) Suspended() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.suspended
}

// Interact records a user gesture. The first one after construction
// resumes a suspended device; the hook is disarmed whether or not the
// resume succeeds.
func (g *Graph) Interact() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.resumeArmed {
		return
	}
	g.resumeArmed = false
	if err := g.ctx.Resume(); err != nil {
		g.opts.Logger.Warn("resuming audio output", "error", err)
		return
	}
	g.suspended = false
}
