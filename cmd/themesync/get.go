package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/themesync/internal/controller"
)

var getOpts struct {
	format string
}

// ThemeStatus is the structured output of get.
type ThemeStatus struct {
	Theme        string   `json:"theme" yaml:"theme"`
	Markers      []string `json:"markers" yaml:"markers"`
	Surface      string   `json:"surface" yaml:"surface"`
	FollowDevice bool     `json:"follow_device" yaml:"follow_device"`
}

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current theme",
	Long: `Print the theme derived from the surface markers.

The dark marker takes priority when both markers are present.

Formats:
  plain   theme name only ("" when unset)
  json    full status as JSON
  yaml    full status as YAML`,
	Args: cobra.NoArgs,
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().StringVarP(&getOpts.format, "format", "f", "plain",
		"Output format: plain, json, yaml")
}

func runGet(cmd *cobra.Command, args []string) error {
	ctrl, err := openController(false, cfg.Controller.FollowDevice)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	return writeStatus(os.Stdout, statusOf(ctrl), getOpts.format)
}

func statusOf(ctrl *controller.Controller) ThemeStatus {
	markers := ctrl.Markers()
	if markers == nil {
		markers = []string{}
	}
	return ThemeStatus{
		Theme:        string(ctrl.Theme()),
		Markers:      markers,
		Surface:      cfg.SurfacePath(),
		FollowDevice: ctrl.FollowDevice(),
	}
}

func writeStatus(w io.Writer, status ThemeStatus, format string) error {
	switch format {
	case "plain", "":
		_, err := fmt.Fprintln(w, status.Theme)
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(status); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (use plain, json or yaml)", format)
	}
}
