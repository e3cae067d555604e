package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/sourcegraph/conc"
)

const (
	stdoutBuffer  = 16
	stderrMaxKept = 200
	maxLineSize   = 1 << 20
)

// Process is a running daemon child.
type Process interface {
	PID() int
	// Stdout yields output lines; it is closed when the stream ends.
	Stdout() <-chan string
	// DrainStderr returns and forgets the stderr lines buffered so far.
	DrainStderr() []string
	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}
	Interrupt() error
	Kill() error
}

// ProcessStarter launches name with args and extra environment entries.
type ProcessStarter func(ctx context.Context, name string, args []string, env []string) (Process, error)

type execProcess struct {
	cmd    *exec.Cmd
	stdout chan string
	done   chan struct{}

	mu     sync.Mutex
	stderr []string
}

// ExecStarter starts a real child process. The child is not bound to ctx:
// it is expected to outlive the call that spawned it.
func ExecStarter(_ context.Context, name string, args []string, env []string) (Process, error) {
	cmd := exec.Command(name, args...)
	cmd.Env = append(os.Environ(), env...)
	setProcAttr(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", name, err)
	}

	p := &execProcess{
		cmd:    cmd,
		stdout: make(chan string, stdoutBuffer),
		done:   make(chan struct{}),
	}

	var wg conc.WaitGroup
	wg.Go(func() { p.readStdout(stdout) })
	wg.Go(func() { p.readStderr(stderr) })
	go func() {
		wg.Wait()
		_ = cmd.Wait()
		close(p.done)
	}()

	return p, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), maxLineSize)
	return s
}

// readStdout never blocks the child: lines beyond the buffer are dropped.
func (p *execProcess) readStdout(r io.Reader) {
	defer close(p.stdout)
	s := newScanner(r)
	for s.Scan() {
		select {
		case p.stdout <- s.Text():
		default:
		}
	}
}

func (p *execProcess) readStderr(r io.Reader) {
	s := newScanner(r)
	for s.Scan() {
		p.mu.Lock()
		p.stderr = append(p.stderr, s.Text())
		if len(p.stderr) > stderrMaxKept {
			p.stderr = p.stderr[len(p.stderr)-stderrMaxKept:]
		}
		p.mu.Unlock()
	}
}

func (p *execProcess) PID() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Stdout() <-chan string {
	return p.stdout
}

func (p *execProcess) DrainStderr() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	lines := p.stderr
	p.stderr = nil
	return lines
}

func (p *execProcess) Done() <-chan struct{} {
	return p.done
}

func (p *execProcess) Interrupt() error {
	return p.cmd.Process.Signal(os.Interrupt)
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}
