package gtkui

import (
	"context"
	"log/slog"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"

	"github.com/jmylchreest/themesync/internal/preference"
)

// StyleManagerSource reports the libadwaita style manager's dark property.
// libadwaita follows the desktop portal color-scheme setting.
type StyleManagerSource struct {
	manager *adw.StyleManager
	logger  *slog.Logger
}

// NewStyleManagerSource uses manager, or the default style manager if nil.
// adw.Init (or an adw.Application) must have run first.
func NewStyleManagerSource(manager *adw.StyleManager, logger *slog.Logger) *StyleManagerSource {
	if manager == nil {
		manager = adw.StyleManagerGetDefault()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StyleManagerSource{manager: manager, logger: logger}
}

// PrefersDark implements preference.Querier.
func (s *StyleManagerSource) PrefersDark(context.Context) (bool, error) {
	return s.manager.Dark(), nil
}

// Subscribe calls fn whenever the dark property changes.
func (s *StyleManagerSource) Subscribe(fn preference.Handler) (func() error, error) {
	handle := s.manager.Connect("notify::dark", func() {
		dark := s.manager.Dark()
		s.logger.Debug("style manager dark changed", "dark", dark)
		fn(dark)
	})

	return func() error {
		s.manager.HandlerDisconnect(handle)
		return nil
	}, nil
}
