package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamranahmedse/podsup/internal/daemon"
	"github.com/kamranahmedse/podsup/internal/term"
)

const requestTimeout = 15 * time.Second

type controlClient interface {
	DaemonStatus(ctx context.Context, host string) (daemon.Status, error)
	RestartDaemon(ctx context.Context, host string) error
}

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status <host>",
	Short: "Ask a pro instance's daemon for its status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return daemonStatus(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

func controlClientFromConfig() (controlClient, error) {
	cfg, err := loadConfigFn()
	if err != nil {
		return nil, err
	}
	return newClientFn(cfg.ListenAddr), nil
}

func daemonStatus(ctx context.Context, out io.Writer, host string) error {
	client, err := controlClientFromConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	status, err := client.DaemonStatus(ctx, host)
	if err != nil {
		return fmt.Errorf("daemon status for %s: %w", host, err)
	}

	if statusJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	style := term.StyleForState(string(status.State), status.LoginRequired)
	fmt.Fprintf(out, "%s %s  %s\n", style.Render(term.Dot), host, style.Render(string(status.State)))
	fmt.Fprintf(out, "  online:         %t\n", status.Online)
	fmt.Fprintf(out, "  login required: %t\n", status.LoginRequired)
	return nil
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(statusCmd)
}
