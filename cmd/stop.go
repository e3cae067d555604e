package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop podsup and every daemon it supervises",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return stop(cmd.OutOrStdout())
	},
}

func stop(out io.Writer) error {
	if !appIsRunningFn() {
		fmt.Fprintln(out, "podsup is not running.")
		return nil
	}
	if err := appStopFn(); err != nil {
		return err
	}
	fmt.Fprintln(out, "Stopped podsup.")
	return nil
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
