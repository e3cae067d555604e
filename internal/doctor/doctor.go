// Package doctor checks the pieces podsup depends on and reports what is
// missing.
package doctor

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/kamranahmedse/podsup/internal/app"
	"github.com/kamranahmedse/podsup/internal/config"
	"github.com/kamranahmedse/podsup/internal/daemon"
	"github.com/kamranahmedse/podsup/internal/devpod"
	"github.com/kamranahmedse/podsup/internal/transport"
)

type Status int

const (
	Pass Status = iota
	Warn
	Fail
)

type CheckResult struct {
	Name    string
	Status  Status
	Message string
}

type Report struct {
	Results []CheckResult
}

// Failed reports whether any check failed outright.
func (r Report) Failed() bool {
	for _, res := range r.Results {
		if res.Status == Fail {
			return true
		}
	}
	return false
}

var (
	statFn         = os.Stat
	lookPathFn     = exec.LookPath
	appIsRunningFn = app.IsRunning
	appStatusFn    = app.Status
	configLoadFn   = config.Load
	devpodHomeFn   = devpod.Home
)

func Run() Report {
	var results []CheckResult

	cfg, res := checkConfig()
	results = append(results, res)
	if cfg == nil {
		cfg = config.Default()
	}

	results = append(results, checkDevpodBinary(cfg.DevpodBinary))

	home, res := checkDevpodHome(cfg.DevpodHome)
	results = append(results, res)

	status, res := checkSupervisor()
	results = append(results, res)

	if status != nil && home != "" {
		for _, inst := range status.Instances {
			if inst.State == "" {
				continue
			}
			results = append(results, checkDaemonSocket(home, inst))
			results = append(results, checkDaemonState(inst))
		}
	}

	return Report{Results: results}
}

func checkConfig() (*config.Config, CheckResult) {
	name := "Config"
	cfg, err := configLoadFn()
	if err != nil {
		return nil, CheckResult{Name: name, Status: Fail, Message: err.Error()}
	}
	if _, err := statFn(config.Path()); err != nil {
		return cfg, CheckResult{Name: name, Status: Pass, Message: "using defaults"}
	}
	return cfg, CheckResult{Name: name, Status: Pass, Message: "loaded from " + config.Path()}
}

func checkDevpodBinary(binary string) CheckResult {
	name := "DevPod CLI"
	path, err := lookPathFn(binary)
	if err != nil {
		return CheckResult{Name: name, Status: Fail, Message: fmt.Sprintf("%s not found on PATH", binary)}
	}
	return CheckResult{Name: name, Status: Pass, Message: path}
}

func checkDevpodHome(configured string) (string, CheckResult) {
	name := "DevPod home"
	home := configured
	if home == "" {
		var err error
		if home, err = devpodHomeFn(); err != nil {
			return "", CheckResult{Name: name, Status: Fail, Message: err.Error()}
		}
	}
	if _, err := statFn(home); err != nil {
		return home, CheckResult{Name: name, Status: Warn, Message: home + " does not exist"}
	}
	return home, CheckResult{Name: name, Status: Pass, Message: home}
}

func checkSupervisor() (*app.StatusData, CheckResult) {
	name := "Supervisor"
	if !appIsRunningFn() {
		return nil, CheckResult{Name: name, Status: Warn, Message: "not running"}
	}

	status, err := appStatusFn()
	if err != nil {
		return nil, CheckResult{Name: name, Status: Fail, Message: "running but IPC failed: " + err.Error()}
	}
	return status, CheckResult{Name: name, Status: Pass, Message: fmt.Sprintf("running (PID %d) on %s", status.PID, status.ListenAddr)}
}

func checkDaemonSocket(home string, inst app.InstanceInfo) CheckResult {
	name := "Socket: " + inst.Host
	addr := transport.SocketAddr(home, inst.Context, inst.Provider)
	if _, err := statFn(addr); err != nil {
		return CheckResult{Name: name, Status: Warn, Message: addr + " not present"}
	}
	return CheckResult{Name: name, Status: Pass, Message: addr}
}

func checkDaemonState(inst app.InstanceInfo) CheckResult {
	name := "Daemon: " + inst.Host
	switch {
	case inst.LoginRequired:
		return CheckResult{Name: name, Status: Warn, Message: "login required"}
	case inst.State == string(daemon.StateRunning):
		return CheckResult{Name: name, Status: Pass, Message: fmt.Sprintf("running (PID %d)", inst.PID)}
	case inst.State == string(daemon.StateStopped):
		return CheckResult{Name: name, Status: Fail, Message: fmt.Sprintf("stopped after %d retries", inst.RetryCount)}
	default:
		return CheckResult{Name: name, Status: Warn, Message: fmt.Sprintf("%s (%d retries)", inst.State, inst.RetryCount)}
	}
}
