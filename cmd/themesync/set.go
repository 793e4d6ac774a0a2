package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/themesync/internal/theme"
)

var setCmd = &cobra.Command{
	Use:   "set <theme>",
	Short: "Set the theme markers",
	Long: `Set the theme by updating the surface markers.

Accepted values: polar-dark (dark), polar-light (light), unset (none).
The other theme's marker is removed; unrelated classes are kept.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"polar-dark", "polar-light", "unset"},
	RunE:      runSet,
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Switch between polar-dark and polar-light",
	Long: `Toggle the theme. polar-dark becomes polar-light; polar-light and unset
become polar-dark.`,
	Args: cobra.NoArgs,
	RunE: runToggle,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove both theme markers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyTheme(func(theme.Theme) theme.Theme { return theme.Unset })
	},
}

func init() {
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(clearCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	target, err := theme.Parse(args[0])
	if err != nil {
		return err
	}
	return applyTheme(func(theme.Theme) theme.Theme { return target })
}

func runToggle(cmd *cobra.Command, args []string) error {
	return applyTheme(theme.Toggle)
}

func applyTheme(fn func(theme.Theme) theme.Theme) error {
	ctrl, err := openController(false, false)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := ctrl.Update(fn); err != nil {
		return fmt.Errorf("failed to set theme: %w", err)
	}

	fmt.Println(ctrl.Theme())
	return nil
}
