package log

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	modeFull    = "full"
	modeMinimal = "minimal"
	modeOff     = "off"
)

var (
	mu      sync.Mutex
	level   = new(slog.LevelVar)
	logger  = newLogger(os.Stderr)
	logFile *os.File
	access  *accessLog
)

type accessLog struct {
	path string
	mode string
	file *os.File
	w    *bufio.Writer
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetDebug toggles debug-level output for the application log.
func SetDebug(on bool) {
	if on {
		level.Set(slog.LevelDebug)
		return
	}
	level.Set(slog.LevelInfo)
}

// SetOutput sends the application log to path, appending. An empty path
// restores stderr.
func SetOutput(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if path == "" {
		closeLogFile()
		logger = newLogger(os.Stderr)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	closeLogFile()
	logFile = f
	logger = newLogger(f)
	return nil
}

// SetAccessLog configures the request log. The file is opened lazily on the
// first request so that "off" never creates it.
func SetAccessLog(path string, mode string) error {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = modeFull
	}
	switch mode {
	case modeFull, modeMinimal, modeOff:
	default:
		return fmt.Errorf("invalid log mode %q", mode)
	}

	mu.Lock()
	defer mu.Unlock()
	closeAccess()
	access = &accessLog{path: path, mode: mode}
	return nil
}

// Close flushes and closes every open log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeAccess()
	closeLogFile()
	logger = newLogger(os.Stderr)
}

func closeLogFile() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func closeAccess() {
	if access == nil {
		return
	}
	if access.w != nil {
		_ = access.w.Flush()
	}
	if access.file != nil {
		_ = access.file.Close()
	}
	access = nil
}

func current() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

func Debug(format string, args ...any) {
	current().Debug(fmt.Sprintf(format, args...))
}

func Info(format string, args ...any) {
	current().Info(fmt.Sprintf(format, args...))
}

func Warn(format string, args ...any) {
	current().Warn(fmt.Sprintf(format, args...))
}

func Error(format string, args ...any) {
	current().Error(fmt.Sprintf(format, args...))
}

// Request records one control-server request. Full mode writes seven
// tab-separated fields, minimal mode four.
func Request(remote string, method string, path string, target string, status int, duration time.Duration) {
	current().Debug("request",
		"method", method,
		"path", path,
		"status", status,
		"duration", formatDuration(duration),
	)

	mu.Lock()
	defer mu.Unlock()
	if access == nil || access.mode == modeOff || access.path == "" {
		return
	}
	if access.w == nil {
		if err := os.MkdirAll(filepath.Dir(access.path), 0755); err != nil {
			return
		}
		f, err := os.OpenFile(access.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return
		}
		access.file = f
		access.w = bufio.NewWriter(f)
	}

	ts := time.Now().Format(time.RFC3339)
	var fields []string
	if access.mode == modeMinimal {
		fields = []string{ts, method, path, strconv.Itoa(status)}
	} else {
		if target == "" {
			target = "-"
		}
		fields = []string{ts, remote, method, path, target, strconv.Itoa(status), formatDuration(duration)}
	}
	_, _ = access.w.WriteString(strings.Join(fields, "\t") + "\n")
	_ = access.w.Flush()
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
