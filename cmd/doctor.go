package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kamranahmedse/podsup/internal/doctor"
	"github.com/kamranahmedse/podsup/internal/term"
)

var doctorRunFn = doctor.Run

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the DevPod CLI, the supervisor and every daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report := doctorRunFn()
		printReport(cmd.OutOrStdout(), report)
		if report.Failed() {
			return fmt.Errorf("some checks failed")
		}
		return nil
	},
}

func printReport(out io.Writer, report doctor.Report) {
	for _, r := range report.Results {
		mark := term.CheckMark
		switch r.Status {
		case doctor.Warn:
			mark = term.WarnMark
		case doctor.Fail:
			mark = term.CrossMark
		}
		fmt.Fprintf(out, "  %s %s %s\n", mark, r.Name, term.Dim.Render(r.Message))
	}
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
