// Package notify shows desktop notifications by shelling out to the
// platform's notification tool.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/kamranahmedse/podsup/internal/log"
	"github.com/kamranahmedse/podsup/internal/osutil"
)

const notifyTimeout = 10 * time.Second

type Notifier interface {
	Notify(title string, body string) error
}

type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Desktop sends notifications through notify-send, osascript or
// PowerShell depending on goos.
type Desktop struct {
	goos string
	run  CommandRunner
}

func NewDesktop(runner CommandRunner) *Desktop {
	if runner == nil {
		runner = execRunner
	}
	return &Desktop{goos: runtime.GOOS, run: runner}
}

func (d *Desktop) Notify(title string, body string) error {
	name, args, err := commandFor(d.goos, title, body)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if out, err := d.run(ctx, name, args...); err != nil {
		return fmt.Errorf("running %s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func commandFor(goos string, title string, body string) (string, []string, error) {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		return "notify-send", []string{"--app-name=podsup", title, body}, nil
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", appleScriptString(body), appleScriptString(title))
		return "osascript", []string{"-e", script}, nil
	case "windows":
		return "powershell", []string{"-NoProfile", "-NonInteractive", "-Command", powershellToast(title, body)}, nil
	default:
		return "", nil, fmt.Errorf("desktop notifications on %s: %w", goos, errors.ErrUnsupported)
	}
}

func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func powershellString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func powershellToast(title string, body string) string {
	return strings.Join([]string{
		"[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null",
		"$t = [Windows.UI.Notifications.ToastNotificationManager]::GetTemplateContent([Windows.UI.Notifications.ToastTemplateType]::ToastText02)",
		"$x = $t.GetElementsByTagName('text')",
		"$x.Item(0).AppendChild($t.CreateTextNode(" + powershellString(title) + ")) | Out-Null",
		"$x.Item(1).AppendChild($t.CreateTextNode(" + powershellString(body) + ")) | Out-Null",
		"[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier('podsup').Show([Windows.UI.Notifications.ToastNotification]::new($t))",
	}, "; ")
}

// Log writes notifications to the application log. It is used when no
// notification tool is installed.
type Log struct{}

func (Log) Notify(title string, body string) error {
	log.Warn("%s: %s", title, body)
	return nil
}

// New picks Desktop when the platform tool exists and Log otherwise.
func New() Notifier {
	name, _, err := commandFor(runtime.GOOS, "", "")
	if err != nil || !osutil.CommandExists(name) {
		return Log{}
	}
	return NewDesktop(nil)
}
