// Package theme defines the closed set of color themes and the marker classes
// that represent them on a themeable surface. It also holds the reconciliation
// rule used to derive a theme from a surface's marker set.
package theme
