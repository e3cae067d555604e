package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kamranahmedse/podsup/internal/app"
	"github.com/kamranahmedse/podsup/internal/term"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List pro instances and the state of their daemons",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if !appIsRunningFn() {
			if listJSON {
				fmt.Fprintln(out, `{"running": false}`)
			} else {
				fmt.Fprintln(out, "podsup is not running. Start it with 'podsup serve'.")
			}
			return nil
		}

		status, err := appStatusFn()
		if err != nil {
			return err
		}

		if listJSON {
			data, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		renderStatus(out, status)
		return nil
	},
}

func renderStatus(out io.Writer, status *app.StatusData) {
	ui := "waiting"
	if status.UIReady {
		ui = "connected"
	}
	fmt.Fprintf(out, "podsup is running (PID %d) on %s, UI %s, %d workspaces\n\n",
		status.PID, status.ListenAddr, ui, status.Workspaces)

	if len(status.Instances) == 0 {
		fmt.Fprintln(out, "No pro instances.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HOST\tPROVIDER\tDAEMON\tRETRIES\tPID")
	for _, inst := range status.Instances {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			inst.Host, orDash(inst.Provider), daemonCell(inst), inst.RetryCount, pidCell(inst.PID))
	}
	w.Flush()
}

func daemonCell(inst app.InstanceInfo) string {
	if inst.State == "" {
		return term.Dim.Render("-")
	}
	label := inst.State
	if inst.LoginRequired {
		label += " (login required)"
	}
	return term.StyleForState(inst.State, inst.LoginRequired).Render(term.Dot + " " + label)
}

func pidCell(pid int) string {
	if pid == 0 {
		return "-"
	}
	return fmt.Sprint(pid)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(listCmd)
}
