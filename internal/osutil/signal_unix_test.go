//go:build !windows

package osutil

import (
	"errors"
	"os"
	"syscall"
	"testing"

	"golang.org/x/sys/unix"
)

func stubKill(t *testing.T, fn func(int, syscall.Signal) error) {
	t.Helper()
	orig := kill
	kill = fn
	t.Cleanup(func() { kill = orig })
}

func TestInterruptSendsSIGINT(t *testing.T) {
	var gotPid int
	var gotSig syscall.Signal
	stubKill(t, func(pid int, sig syscall.Signal) error {
		gotPid, gotSig = pid, sig
		return nil
	})

	if err := Interrupt(4242); err != nil {
		t.Fatalf("Interrupt: %v", err)
	}
	if gotPid != 4242 || gotSig != unix.SIGINT {
		t.Fatalf("expected SIGINT to 4242, got %v to %d", gotSig, gotPid)
	}
}

func TestTerminateWrapsError(t *testing.T) {
	stubKill(t, func(int, syscall.Signal) error { return unix.ESRCH })

	err := Terminate(99)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, unix.ESRCH) {
		t.Fatalf("expected ESRCH in chain, got %v", err)
	}
}

func TestAliveForCurrentProcess(t *testing.T) {
	if !Alive(os.Getpid()) {
		t.Fatal("expected current process to be alive")
	}
	if Alive(0) || Alive(-1) {
		t.Fatal("expected non-positive pids to be reported dead")
	}
}
