package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/themesync/internal/preference"
	"github.com/jmylchreest/themesync/internal/theme"
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Print the desktop light/dark preference",
	Long: `Query the configured preference source and print the theme it asks for.

The portal source reads org.freedesktop.appearance color-scheme from the XDG
desktop portal. The terminal source inspects the terminal background color.`,
	Args: cobra.NoArgs,
	RunE: runDevice,
}

func init() {
	rootCmd.AddCommand(deviceCmd)
}

func runDevice(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	querier, ok := preferenceSource().(preference.Querier)
	if !ok {
		return fmt.Errorf("device source %q cannot be queried", cfg.Device.Source)
	}

	if portal, ok := querier.(*preference.Portal); ok {
		scheme, err := portal.ColorScheme(ctx)
		if err != nil {
			return err
		}
		logger.Debug("portal color-scheme", "scheme", scheme.String())
	}

	prefersDark, err := querier.PrefersDark(ctx)
	if err != nil {
		return err
	}

	if prefersDark {
		fmt.Println(theme.Dark)
	} else {
		fmt.Println(theme.Light)
	}
	return nil
}
