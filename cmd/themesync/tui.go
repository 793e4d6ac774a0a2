package main

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/themesync/internal/tui"
)

var tuiOpts struct {
	followDevice bool
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive theme switcher",
	Long: `Launch the interactive terminal interface for the theme controller.

Key bindings:
  t/space     Toggle polar-dark / polar-light
  d           Set polar-dark
  l           Set polar-light
  x           Clear theme
  f           Toggle following the desktop preference
  ?           Show help
  q           Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().BoolVar(&tuiOpts.followDevice, "follow-device", false,
		"Start following the desktop light/dark preference")
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctrl, err := openController(true, tuiOpts.followDevice || cfg.Controller.FollowDevice)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	return tui.Run(ctrl)
}
