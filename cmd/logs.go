package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/kamranahmedse/podsup/internal/config"
	"github.com/kamranahmedse/podsup/internal/term"
)

var (
	logsFollow bool
	logsFlush  bool
	logsApp    bool
)

var logsCmd = &cobra.Command{
	Use:   "logs [host]",
	Short: "Show control server request logs",
	Long: `Tail the access log of the control server. Optionally filter by pro host.

  podsup logs                    # every request
  podsup logs my.pro.host        # only requests for one instance
  podsup logs -f                 # follow (like tail -f)
  podsup logs --app              # the application log instead
  podsup logs --flush            # truncate the access log`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateLogsFlags(logsFlush, logsFollow, len(args)); err != nil {
			return err
		}

		path := config.AccessLogPath()
		if logsApp {
			path = config.LogPath()
		}

		if logsFlush {
			if err := os.Truncate(path, 0); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("flushing %s: %w", path, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Flushed logs.")
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "No logs yet. Start podsup with 'podsup serve'.")
				return nil
			}
			return err
		}
		defer f.Close()

		filter := ""
		if len(args) > 0 {
			filter = strings.ToLower(strings.TrimSpace(args[0]))
		}

		if logsFollow {
			seekToTail(f, 50)
		}
		return printLog(cmd.OutOrStdout(), f, filter, logsApp, logsFollow)
	},
}

func validateLogsFlags(flush bool, follow bool, argCount int) error {
	if !flush {
		return nil
	}
	if follow {
		return fmt.Errorf("--flush cannot be used with --follow")
	}
	if argCount > 0 {
		return fmt.Errorf("--flush does not support a host filter")
	}
	return nil
}

func printLog(out io.Writer, f *os.File, filter string, raw bool, follow bool) error {
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				if !follow {
					return nil
				}
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return err
		}

		line = strings.TrimRight(line, "\n")
		if filter != "" && !strings.Contains(strings.ToLower(line), filter) {
			continue
		}
		if raw {
			fmt.Fprintln(out, line)
			continue
		}
		fmt.Fprintln(out, formatLogLine(line))
	}
}

func seekToTail(f *os.File, lines int) {
	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return
	}

	bufSize := int64(8192)
	if bufSize > info.Size() {
		bufSize = info.Size()
	}

	_, _ = f.Seek(-bufSize, io.SeekEnd)

	buf := make([]byte, bufSize)
	n, _ := f.Read(buf)
	buf = buf[:n]

	count := 0
	for i := len(buf) - 1; i >= 0; i-- {
		if buf[i] == '\n' {
			count++
			if count > lines {
				_, _ = f.Seek(-bufSize+int64(i)+1, io.SeekEnd)
				return
			}
		}
	}

	_, _ = f.Seek(-bufSize, io.SeekEnd)
}

// formatLogLine colours one access log line. Full lines carry timestamp,
// remote, method, path, target, status and duration; minimal lines carry
// timestamp, method, path and status.
func formatLogLine(line string) string {
	parts := strings.Split(line, "\t")
	switch len(parts) {
	case 7:
		ts, remote, method, path, target, status, duration := parts[0], parts[1], parts[2], parts[3], parts[4], parts[5], parts[6]
		return fmt.Sprintf("%s %s %s %s %s %s %s",
			term.Dim.Render(ts),
			term.Dim.Render(remote),
			method,
			path,
			term.Magenta.Render(target),
			statusStyle(status).Render(status),
			term.Dim.Render(duration),
		)
	case 4:
		ts, method, path, status := parts[0], parts[1], parts[2], parts[3]
		return fmt.Sprintf("%s %s %s %s",
			term.Dim.Render(ts),
			method,
			path,
			statusStyle(status).Render(status),
		)
	default:
		return line
	}
}

func statusStyle(status string) lipgloss.Style {
	code, err := strconv.Atoi(status)
	if err != nil {
		return term.Dim
	}
	return term.StyleForStatus(code)
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().BoolVar(&logsFlush, "flush", false, "Truncate the log")
	logsCmd.Flags().BoolVar(&logsApp, "app", false, "Show the application log")
	rootCmd.AddCommand(logsCmd)
}
