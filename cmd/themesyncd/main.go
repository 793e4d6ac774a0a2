// Package main is the entry point for themesyncd, a small libadwaita window
// whose root widget carries the theme markers.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/themesync/internal/config"
	"github.com/jmylchreest/themesync/internal/controller"
	"github.com/jmylchreest/themesync/internal/gtkui"
	"github.com/jmylchreest/themesync/internal/theme"
)

const appID = "io.github.jmylchreest.themesync"

var version = "dev"

func main() {
	followDevice := flag.Bool("follow-device", false, "Follow the desktop light/dark preference (overrides config)")
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/themesync/config.toml)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("themesyncd version", version)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *followDevice {
		cfg.Controller.FollowDevice = true
	}

	os.Exit(run(cfg, logger))
}

func run(cfg *config.Config, logger *slog.Logger) int {
	app := adw.NewApplication(appID, 0)

	var tw *themeWindow

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		glib.IdleAdd(func() {
			app.Quit()
		})
	}()

	app.ConnectActivate(func() {
		if tw != nil {
			logger.Warn("application already running")
			return
		}

		win, err := buildWindow(app, cfg, logger)
		if err != nil {
			logger.Error("failed to start theme controller", "error", err)
			app.Quit()
			return
		}
		tw = win
		tw.window.Present()
		logger.Info("themesyncd ready", "theme", tw.ctrl.Theme().String(), "follow_device", tw.ctrl.FollowDevice())
	})

	// Both subscriptions are released on every exit path
	app.ConnectShutdown(func() {
		logger.Info("application shutting down")
		if tw != nil {
			if err := tw.close(); err != nil {
				logger.Warn("failed to close theme controller", "error", err)
			}
		}
	})

	status := app.Run(os.Args[:1])
	if status != 0 {
		logger.Error("application exited with error", "status", status)
	}
	return status
}

type themeWindow struct {
	window *adw.ApplicationWindow
	ctrl    *controller.Controller
	label   *gtk.Label
	follow  *gtk.Switch
	refresh *gtkui.Refresher
}

func buildWindow(app *adw.Application, cfg *config.Config, logger *slog.Logger) (*themeWindow, error) {
	win := adw.NewApplicationWindow(&app.Application)
	win.SetTitle("themesync")
	win.SetDefaultSize(360, 220)

	surface := gtkui.NewWidgetSurface(gtk.BaseWidget(win), logger)
	source := gtkui.NewStyleManagerSource(nil, logger)

	ctrl, err := controller.New(surface,
		controller.WithLogger(logger),
		controller.WithPreferenceSource(source),
		controller.WithFollowDevice(cfg.Controller.FollowDevice),
		controller.WithMarkerPrefix(cfg.Controller.MarkerPrefix),
	)
	if err != nil {
		return nil, err
	}

	tw := &themeWindow{window: win, ctrl: ctrl}
	tw.refresh = gtkui.NewRefresher(tw.updateLabel)

	content := gtk.NewBox(gtk.OrientationVertical, 12)
	content.SetMarginTop(18)
	content.SetMarginBottom(18)
	content.SetMarginStart(18)
	content.SetMarginEnd(18)

	tw.label = gtk.NewLabel("")
	tw.label.AddCSSClass("title-2")
	content.Append(tw.label)

	buttons := gtk.NewBox(gtk.OrientationHorizontal, 6)
	buttons.SetHAlign(gtk.AlignCenter)
	buttons.Append(tw.button("Dark", func() error { return ctrl.Set(theme.Dark) }, logger))
	buttons.Append(tw.button("Light", func() error { return ctrl.Set(theme.Light) }, logger))
	buttons.Append(tw.button("Toggle", func() error { return ctrl.Update(theme.Toggle) }, logger))
	buttons.Append(tw.button("Clear", func() error { return ctrl.Set(theme.Unset) }, logger))
	content.Append(buttons)

	followRow := gtk.NewBox(gtk.OrientationHorizontal, 6)
	followRow.SetHAlign(gtk.AlignCenter)
	followRow.Append(gtk.NewLabel("Follow device"))
	tw.follow = gtk.NewSwitch()
	tw.follow.SetActive(ctrl.FollowDevice())
	tw.follow.ConnectStateSet(func(state bool) bool {
		ctrl.SetFollowDevice(state)
		return false
	})
	followRow.Append(tw.follow)
	content.Append(followRow)

	win.SetContent(content)
	tw.updateLabel()

	// Changes can come from the reconciler; update the label on the main loop
	changes := ctrl.Subscribe()
	go func() {
		for change := range changes {
			logger.Info("theme changed",
				"from", change.From.String(),
				"to", change.To.String(),
				"cause", string(change.Cause))
			tw.refresh.Queue()
		}
	}()

	return tw, nil
}

func (tw *themeWindow) button(label string, action func() error, logger *slog.Logger) *gtk.Button {
	btn := gtk.NewButtonWithLabel(label)
	btn.ConnectClicked(func() {
		if err := action(); err != nil {
			logger.Warn("theme change failed", "action", label, "error", err)
		}
		tw.updateLabel()
	})
	return btn
}

func (tw *themeWindow) updateLabel() {
	tw.label.SetText("Theme: " + tw.ctrl.Theme().String())
}

// close stops label updates before the controller goes away. The change
// goroutine exits when Close closes its channel.
func (tw *themeWindow) close() error {
	tw.refresh.Stop()
	return tw.ctrl.Close()
}
