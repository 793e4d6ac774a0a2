package gtkui

import (
	"sync/atomic"

	"github.com/diamondburned/gotk4/pkg/glib/v2"
)

// Refresher runs fn on the GTK main loop when asked from any goroutine.
// Requests made while one is queued are coalesced. After Stop, queued and
// future requests are dropped.
type Refresher struct {
	fn       func()
	schedule func(func())
	pending  atomic.Bool
	stopped  atomic.Bool
}

// NewRefresher creates a refresher for fn.
func NewRefresher(fn func()) *Refresher {
	return &Refresher{
		fn:       fn,
		schedule: func(f func()) { glib.IdleAdd(f) },
	}
}

// Queue schedules fn unless a run is already queued or the refresher is stopped.
func (r *Refresher) Queue() {
	if r.stopped.Load() || !r.pending.CompareAndSwap(false, true) {
		return
	}
	r.schedule(r.run)
}

// Stop drops all further runs. It is safe to call more than once.
func (r *Refresher) Stop() {
	r.stopped.Store(true)
}

// Stopped reports whether Stop was called.
func (r *Refresher) Stopped() bool {
	return r.stopped.Load()
}

func (r *Refresher) run() {
	r.pending.Store(false)
	if r.stopped.Load() {
		return
	}
	r.fn()
}
