package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var watchOpts struct {
	followDevice bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a controller and print theme changes",
	Long: `Run a theme controller over the surface file until interrupted.

Every change to the cached theme is printed as one line:

  <time> <id> <from> -> <to> (<cause>)

Causes are "set" (this controller), "reconcile" (the file was edited by
another process) and "device" (the desktop light/dark preference changed).

With --follow-device (or controller.follow_device in the config) desktop
preference changes are written to the surface.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchOpts.followDevice, "follow-device", false,
		"Follow the desktop light/dark preference")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	follow := watchOpts.followDevice || cfg.Controller.FollowDevice
	ctrl, err := openController(true, follow)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	changes := ctrl.Subscribe()
	logger.Info("watching theme surface",
		"surface", cfg.SurfacePath(),
		"theme", ctrl.Theme().String(),
		"follow_device", follow)
	fmt.Println(ctrl.Theme())

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			fmt.Printf("%s %s %s -> %s (%s)\n",
				change.At.Format(time.RFC3339),
				change.ID,
				change.From.String(),
				change.To.String(),
				change.Cause)
		}
	}
}
