// Package controller keeps an in-memory color theme in step with the theme
// markers on a surface. The markers are the source of truth; the cached theme
// is a projection of them, refreshed by a reconciler whenever the surface
// reports a mutation. The controller can also follow the operating system's
// dark/light preference.
package controller
