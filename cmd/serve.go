package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamranahmedse/podsup/internal/app"
	"github.com/kamranahmedse/podsup/internal/config"
)

var serveDetach bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the supervisor and control server",
	Long: `Run the daemon supervisor, the resource watcher and the control server.

  podsup serve             # foreground, logs to stderr
  podsup serve --detach    # background, logs to ~/.podsup/podsup.log`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if appIsRunningFn() {
			fmt.Fprintln(cmd.OutOrStdout(), "podsup is already running.")
			return nil
		}

		if !serveDetach {
			return app.Run(false)
		}

		if err := app.RunDetached(); err != nil {
			return fmt.Errorf("starting podsup: %w", err)
		}
		if app.IsDetachedChild() {
			return nil
		}
		if err := app.WaitForReady(); err != nil {
			return fmt.Errorf("%w (see %s)", err, config.LogPath())
		}
		fmt.Fprintln(cmd.OutOrStdout(), "podsup is running in the background.")
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVarP(&serveDetach, "detach", "d", false, "Run in the background")
	rootCmd.AddCommand(serveCmd)
}
