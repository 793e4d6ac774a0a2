package gtkui

import (
	"log/slog"

	"github.com/diamondburned/gotk4/pkg/gtk/v4"
)

// WidgetSurface uses a widget's CSS classes as a theme surface.
type WidgetSurface struct {
	widget *gtk.Widget
	logger *slog.Logger
}

// NewWidgetSurface wraps widget, usually the root of a window.
func NewWidgetSurface(widget *gtk.Widget, logger *slog.Logger) *WidgetSurface {
	if logger == nil {
		logger = slog.Default()
	}
	return &WidgetSurface{widget: widget, logger: logger}
}

// Contains reports whether the widget has the CSS class.
func (s *WidgetSurface) Contains(class string) bool {
	return s.widget.HasCSSClass(class)
}

// Add adds the CSS class.
func (s *WidgetSurface) Add(class string) error {
	s.widget.AddCSSClass(class)
	return nil
}

// Remove removes the CSS class.
func (s *WidgetSurface) Remove(class string) error {
	s.widget.RemoveCSSClass(class)
	return nil
}

// Classes returns the widget's CSS classes.
func (s *WidgetSurface) Classes() []string {
	return s.widget.CSSClasses()
}

// Observe listens to notify::css-classes. GTK emits the notification while
// the class is still being changed, so delivery is deferred to an idle
// callback and repeated notifications are coalesced.
func (s *WidgetSurface) Observe(fn func()) (func(), error) {
	r := NewRefresher(fn)
	handle := s.widget.Connect("notify::css-classes", r.Queue)

	s.logger.Debug("observing widget css classes")

	return func() {
		if !r.Stopped() {
			r.Stop()
			s.widget.HandlerDisconnect(handle)
		}
	}, nil
}
