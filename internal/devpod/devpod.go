// Package devpod runs the external devpod CLI and decodes its JSON output.
package devpod

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kamranahmedse/podsup/internal/resource"
)

const (
	DefaultBinary = "devpod"
	HomeEnv       = "DEVPOD_HOME"
	// UIEnv tells the CLI it is driven by a desktop client.
	UIEnv = "DEVPOD_UI=true"
)

// CommandRunner runs name with args and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecCommandRunner keeps stdout and stderr apart so JSON output is never
// mixed with log lines.
func ExecCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), UIEnv)
	return cmd.Output()
}

type CLI struct {
	Binary string
	run    CommandRunner
}

func New(binary string, runner CommandRunner) *CLI {
	if binary == "" {
		binary = DefaultBinary
	}
	if runner == nil {
		runner = ExecCommandRunner
	}
	return &CLI{Binary: binary, run: runner}
}

func (c *CLI) ListWorkspaces(ctx context.Context) ([]resource.Workspace, error) {
	var out []resource.Workspace
	if err := c.runJSON(ctx, &out, "list", "--output", "json"); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CLI) ListProInstances(ctx context.Context) ([]*resource.ProInstance, error) {
	var out []*resource.ProInstance
	if err := c.runJSON(ctx, &out, "pro", "list", "--output", "json"); err != nil {
		return nil, err
	}
	// JSON null entries decode to nil pointers.
	return slices.DeleteFunc(out, func(p *resource.ProInstance) bool { return p == nil }), nil
}

// DaemonStartArgs is the argument list that starts a pro daemon.
func (c *CLI) DaemonStartArgs(host string, debug bool) []string {
	args := []string{"pro", "daemon", "start", "--host=" + host}
	if debug {
		args = append(args, "--debug")
	}
	return args
}

// DaemonCommand satisfies supervisor.Launcher.
func (c *CLI) DaemonCommand(host string, debug bool) (string, []string, []string) {
	return c.Binary, c.DaemonStartArgs(host, debug), []string{UIEnv}
}

func (c *CLI) runJSON(ctx context.Context, v any, args ...string) error {
	line := c.Binary + " " + strings.Join(args, " ")
	out, err := c.run(ctx, c.Binary, args...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return fmt.Errorf("running %s: %w: %s", line, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return fmt.Errorf("running %s: %w", line, err)
	}

	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(trimmed), v); err != nil {
		return fmt.Errorf("parsing output of %s: %w: %s", line, err, truncate(trimmed, 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Home resolves the DevPod home directory: DEVPOD_HOME, else ~/.devpod.
func Home() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".devpod"), nil
}
