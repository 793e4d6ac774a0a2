package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jmylchreest/themesync/internal/preference"
	"github.com/jmylchreest/themesync/internal/surface"
	"github.com/jmylchreest/themesync/internal/theme"
)

var (
	// ErrNoSurface is returned by New when no surface is given.
	ErrNoSurface = errors.New("no theme surface")
	// ErrClosed is returned by writes after Close.
	ErrClosed = errors.New("controller closed")
)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPreferenceSource sets the operating system preference source.
func WithPreferenceSource(src preference.Source) Option {
	return func(c *Controller) {
		c.source = src
	}
}

// WithFollowDevice sets the initial follow-device flag.
func WithFollowDevice(follow bool) Option {
	return func(c *Controller) {
		c.followDevice.Store(follow)
	}
}

// WithMarkerPrefix overrides theme.DefaultMarkerPrefix.
func WithMarkerPrefix(prefix string) Option {
	return func(c *Controller) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// Controller bridges a surface's theme markers and a cached theme value.
type Controller struct {
	surface surface.Surface
	source  preference.Source
	logger  *slog.Logger
	prefix  string

	// writeMu serializes surface writes and reconciliation so the reconciler
	// never observes a half-applied Set.
	writeMu sync.Mutex

	mu          sync.RWMutex
	current     theme.Theme
	subscribers []chan Change
	closed      bool

	followDevice atomic.Bool

	stopObserve  func()
	cancelDevice func() error
}

// New creates a controller over s. The surface is read once to seed the
// cached theme, then the surface observer and the preference listener are
// acquired. Both are released by Close.
func New(s surface.Surface, opts ...Option) (*Controller, error) {
	if s == nil {
		return nil, ErrNoSurface
	}

	c := &Controller{
		surface: s,
		logger:  slog.Default(),
		prefix:  theme.DefaultMarkerPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.current = theme.Resolve(s.Contains, c.prefix)

	stop, err := s.Observe(c.reconcile)
	if err != nil {
		return nil, fmt.Errorf("failed to observe surface: %w", err)
	}
	c.stopObserve = stop

	// The listener is always installed; FollowDevice gates it per event
	if c.source != nil {
		cancel, err := c.source.Subscribe(c.handleDevice)
		if err != nil {
			stop()
			return nil, fmt.Errorf("failed to subscribe to preference changes: %w", err)
		}
		c.cancelDevice = cancel
	}

	c.logger.Debug("theme controller started",
		"theme", c.current.String(),
		"follow_device", c.followDevice.Load(),
		"prefix", c.prefix)

	return c, nil
}

// Theme returns the cached theme. The surface is not read.
func (c *Controller) Theme() theme.Theme {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// MarkerPrefix returns the prefix used to derive marker classes.
func (c *Controller) MarkerPrefix() string {
	return c.prefix
}

// Markers returns the theme markers currently present on the surface.
func (c *Controller) Markers() []string {
	var markers []string
	for _, t := range theme.All() {
		if m := t.Marker(c.prefix); c.surface.Contains(m) {
			markers = append(markers, m)
		}
	}
	return markers
}

// FollowDevice reports whether preference changes are applied.
func (c *Controller) FollowDevice() bool {
	return c.followDevice.Load()
}

// SetFollowDevice changes the follow-device flag. It takes effect for the
// next preference event without resubscribing.
func (c *Controller) SetFollowDevice(follow bool) {
	c.followDevice.Store(follow)
	c.logger.Debug("follow device changed", "follow_device", follow)
}

// Set applies t to the surface and the cached value.
func (c *Controller) Set(t theme.Theme) error {
	return c.apply(func(theme.Theme) theme.Theme { return t }, CauseSet)
}

// Update applies fn to the cached value (not a fresh surface read) and sets
// the result.
func (c *Controller) Update(fn func(current theme.Theme) theme.Theme) error {
	if fn == nil {
		return fmt.Errorf("%w: nil update function", theme.ErrInvalidTheme)
	}
	return c.apply(fn, CauseSet)
}

func (c *Controller) apply(fn func(theme.Theme) theme.Theme, cause Cause) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.RLock()
	closed := c.closed
	from := c.current
	c.mu.RUnlock()

	if closed {
		return ErrClosed
	}

	target := fn(from)
	if !target.Valid() {
		return fmt.Errorf("%w: %q", theme.ErrInvalidTheme, string(target))
	}

	if err := c.lockedWrite(target); err != nil {
		// Keep the cache a projection of whatever the surface now holds
		c.store(theme.Resolve(c.surface.Contains, c.prefix), CauseReconcile)
		return fmt.Errorf("failed to update theme markers: %w", err)
	}

	c.store(target, cause)
	return nil
}

// lockedWrite runs writeMarkers under the surface's lock when it has one, so
// setters in other processes cannot interleave their removals and additions.
func (c *Controller) lockedWrite(target theme.Theme) error {
	if l, ok := c.surface.(surface.Locker); ok {
		unlock, err := l.Lock()
		if err != nil {
			return err
		}
		defer unlock()
	}
	return c.writeMarkers(target)
}

// writeMarkers removes every marker other than target's, then adds target's.
func (c *Controller) writeMarkers(target theme.Theme) error {
	for _, t := range theme.All() {
		if t == target {
			continue
		}
		if m := t.Marker(c.prefix); c.surface.Contains(m) {
			if err := c.surface.Remove(m); err != nil {
				return err
			}
		}
	}

	if target.IsSet() {
		if m := target.Marker(c.prefix); !c.surface.Contains(m) {
			if err := c.surface.Add(m); err != nil {
				return err
			}
		}
	}
	return nil
}

// reconcile re-derives the cached theme from the surface. It never writes
// to the surface.
func (c *Controller) reconcile() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.store(theme.Resolve(c.surface.Contains, c.prefix), CauseReconcile)
}

func (c *Controller) handleDevice(prefersDark bool) {
	if !c.followDevice.Load() {
		c.logger.Debug("ignoring device preference change", "prefers_dark", prefersDark)
		return
	}

	target := theme.Light
	if prefersDark {
		target = theme.Dark
	}

	err := c.apply(func(theme.Theme) theme.Theme { return target }, CauseDevice)
	if err != nil && !errors.Is(err, ErrClosed) {
		c.logger.Warn("failed to follow device preference", "theme", target.String(), "error", err)
	}
}

// store updates the cached value and notifies subscribers if it changed.
func (c *Controller) store(t theme.Theme, cause Cause) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == t {
		return
	}
	change := newChange(c.current, t, cause)
	c.current = t

	c.logger.Debug("theme changed",
		"from", change.From.String(),
		"to", change.To.String(),
		"cause", string(cause))

	for _, ch := range c.subscribers {
		select {
		case ch <- change:
		default:
			// Channel full, skip
		}
	}
}

// Subscribe returns a channel that receives theme changes.
func (c *Controller) Subscribe() <-chan Change {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Change, 16)
	if c.closed {
		close(ch)
		return ch
	}
	c.subscribers = append(c.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (c *Controller) Unsubscribe(ch <-chan Change) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, sub := range c.subscribers {
		if sub == ch {
			c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close releases the surface observer and the preference listener together
// and closes all subscriber channels. It is safe to call more than once, but
// must not be called from a surface observer callback.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	var errs []error
	if c.cancelDevice != nil {
		if err := c.cancelDevice(); err != nil {
			errs = append(errs, fmt.Errorf("failed to release preference listener: %w", err))
		}
	}
	if c.stopObserve != nil {
		c.stopObserve()
	}

	c.mu.Lock()
	for _, ch := range c.subscribers {
		close(ch)
	}
	c.subscribers = nil
	c.mu.Unlock()

	c.logger.Debug("theme controller stopped")
	return errors.Join(errs...)
}
