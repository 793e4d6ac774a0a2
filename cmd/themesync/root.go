// Package main provides the CLI entrypoint for themesync.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/themesync/internal/config"
	"github.com/jmylchreest/themesync/internal/controller"
	"github.com/jmylchreest/themesync/internal/preference"
	"github.com/jmylchreest/themesync/internal/surface"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose     bool
		configPath  string
		surfacePath string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "themesync",
	Short: "Keep a color theme in sync with marker classes",
	Long: `themesync tracks the active color theme (polar-dark, polar-light or unset)
as mutually exclusive marker classes on a shared surface file, and can follow
the desktop's light/dark preference.

Any process may edit the surface file directly; running controllers pick the
change up and report it.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if globalOpts.surfacePath != "" {
			cfg.Surface.Path = globalOpts.surfacePath
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/themesync/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.surfacePath, "surface", "",
		"Path to the marker file (default: ~/.local/state/themesync/classes)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// preferenceSource builds the configured OS preference source, or nil.
func preferenceSource() preference.Source {
	switch cfg.Device.Source {
	case config.DeviceSourcePortal:
		return preference.NewPortal(nil, logger)
	case config.DeviceSourceTerminal:
		return preference.Terminal{}
	default:
		return nil
	}
}

// openController creates a controller over the configured surface file.
// withDevice installs the preference listener.
func openController(withDevice bool, followDevice bool) (*controller.Controller, error) {
	opts := []controller.Option{
		controller.WithLogger(logger),
		controller.WithMarkerPrefix(cfg.Controller.MarkerPrefix),
		controller.WithFollowDevice(followDevice),
	}
	if withDevice {
		if src := preferenceSource(); src != nil {
			opts = append(opts, controller.WithPreferenceSource(src))
		}
	}

	s := surface.NewFile(cfg.SurfacePath(), logger)
	return controller.New(s, opts...)
}
