// Package theme defines color themes and their surface markers.
package theme

import (
	"errors"
	"fmt"
	"strings"
)

// Theme identifies the active color scheme.
type Theme string

const (
	// Unset means the surface carries neither marker.
	Unset Theme = ""
	// Dark is the polar dark theme.
	Dark Theme = "polar-dark"
	// Light is the polar light theme.
	Light Theme = "polar-light"
)

// DefaultMarkerPrefix is prepended to a theme name to form its marker class.
const DefaultMarkerPrefix = "dt-"

// ErrInvalidTheme is returned for values outside the theme enumeration.
var ErrInvalidTheme = errors.New("invalid theme value")

// All returns the real (non-unset) themes in resolution priority order.
func All() []Theme {
	return []Theme{Dark, Light}
}

// Parse converts user input to a Theme.
// Accepts the full names, the short aliases "dark" and "light", and
// "", "none" or "unset" for Unset.
func Parse(s string) (Theme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "polar-dark", "dark":
		return Dark, nil
	case "polar-light", "light":
		return Light, nil
	case "", "none", "unset":
		return Unset, nil
	default:
		return Unset, fmt.Errorf("%w: %q", ErrInvalidTheme, s)
	}
}

// Valid reports whether t is a member of the enumeration (Unset included).
func (t Theme) Valid() bool {
	switch t {
	case Unset, Dark, Light:
		return true
	default:
		return false
	}
}

// IsSet reports whether t is a real theme.
func (t Theme) IsSet() bool {
	return t == Dark || t == Light
}

// String returns the theme name, or "unset".
func (t Theme) String() string {
	if t == Unset {
		return "unset"
	}
	return string(t)
}

// Marker returns the marker class for t using the given prefix.
// Unset has no marker and returns "".
func (t Theme) Marker(prefix string) string {
	if t == Unset {
		return ""
	}
	return prefix + string(t)
}

// Resolve derives the theme from a marker set.
// The dark marker is checked before the light marker, so a surface carrying
// both resolves to Dark. The conflicting state is only reachable through
// external mutation; the priority is intentional.
func Resolve(has func(class string) bool, prefix string) Theme {
	for _, t := range All() {
		if has(t.Marker(prefix)) {
			return t
		}
	}
	return Unset
}

// Toggle returns Light for Dark and Dark for anything else.
func Toggle(current Theme) Theme {
	if current == Dark {
		return Light
	}
	return Dark
}
