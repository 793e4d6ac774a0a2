// Package gtkui adapts GTK widgets and the libadwaita style manager to the
// surface and preference interfaces. All methods must be called from the GTK
// main loop.
package gtkui
