package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var restartCmd = &cobra.Command{
	Use:   "restart <host>",
	Short: "Stop a pro instance's daemon so the supervisor starts it again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return restartDaemon(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

func restartDaemon(ctx context.Context, out io.Writer, host string) error {
	client, err := controlClientFromConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if err := client.RestartDaemon(ctx, host); err != nil {
		return fmt.Errorf("restarting daemon for %s: %w", host, err)
	}
	fmt.Fprintf(out, "Restarting daemon for %s.\n", host)
	return nil
}

func init() {
	rootCmd.AddCommand(restartCmd)
}
