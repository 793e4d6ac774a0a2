package preference

import (
	"context"

	"github.com/charmbracelet/lipgloss"
)

// Terminal reports the terminal background as the preference. It has no
// change notifications; Subscribe never calls the handler.
type Terminal struct{}

// PrefersDark queries the terminal background color.
func (Terminal) PrefersDark(context.Context) (bool, error) {
	return lipgloss.HasDarkBackground(), nil
}

// Subscribe registers nothing.
func (Terminal) Subscribe(Handler) (func() error, error) {
	return func() error { return nil }, nil
}
