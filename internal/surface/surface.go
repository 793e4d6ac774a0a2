package surface

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrInvalidClass is returned for empty class names or names containing whitespace.
var ErrInvalidClass = errors.New("invalid class name")

// Surface is a class list that can be observed for mutations.
//
// Observer callbacks are delivered asynchronously with respect to the mutation
// that caused them: never on the stack of the mutating call. Deliveries may be
// coalesced, so observers must re-read the surface rather than rely on a
// per-mutation record. Mutations by any agent trigger a delivery.
type Surface interface {
	Contains(class string) bool
	Add(class string) error
	Remove(class string) error
	Classes() []string
	Observe(fn func()) (stop func(), err error)
}

// Locker is implemented by surfaces shared between processes. The lock is
// held across a sequence of mutations that must not interleave with another
// holder's sequence. Lock blocks until the lock is acquired.
type Locker interface {
	Lock() (unlock func(), err error)
}

func validateClass(class string) error {
	if class == "" || strings.ContainsFunc(class, isSpace) {
		return fmt.Errorf("%w: %q", ErrInvalidClass, class)
	}
	return nil
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

// dispatcher runs an observer callback on its own goroutine.
// Signals received while a callback is pending are coalesced.
type dispatcher struct {
	fn       func()
	pending  chan struct{}
	done     chan struct{}
	finished chan struct{}
	once     sync.Once
}

func newDispatcher(fn func()) *dispatcher {
	d := &dispatcher{
		fn:       fn,
		pending:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) signal() {
	select {
	case d.pending <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run() {
	defer close(d.finished)
	for {
		select {
		case <-d.done:
			return
		case <-d.pending:
			select {
			case <-d.done:
				return
			default:
			}
			d.fn()
		}
	}
}

// stop ends delivery and waits for an in-flight callback to return.
// It must not be called from inside the callback.
func (d *dispatcher) stop() {
	d.once.Do(func() { close(d.done) })
	<-d.finished
}
