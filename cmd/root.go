package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamranahmedse/podsup/internal/app"
	"github.com/kamranahmedse/podsup/internal/config"
	"github.com/kamranahmedse/podsup/internal/server"
)

var Version = "0.0.1"

var rootCmd = &cobra.Command{
	Use:   "podsup",
	Short: "Supervise local pro daemons and proxy the desktop UI to them",
	Long: `podsup keeps one daemon running per DevPod pro instance, health-checks it
and exposes a loopback control server the desktop UI talks to.

  podsup serve --detach          # start in the background
  podsup list                    # pro instances and daemon state
  podsup status my.pro.host      # ask one daemon for its status
  podsup restart my.pro.host     # bounce one daemon
  podsup stop                    # shut everything down`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "podsup %s\n", Version)
		return nil
	},
}

// Seams replaced in tests.
var (
	appIsRunningFn = app.IsRunning
	appStatusFn    = app.Status
	appStopFn      = app.Stop
	loadConfigFn   = config.Load
	newClientFn    = func(addr string) controlClient { return server.NewClient(addr) }
)

func Execute() error {
	if err := config.Init(); err != nil {
		return err
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
