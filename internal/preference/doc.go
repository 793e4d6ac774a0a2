// Package preference reports the operating system's light/dark color-scheme
// preference and notifies listeners when it changes. The XDG desktop portal is
// queried over D-Bus; an in-process emitter backs tests and manual overrides.
package preference
