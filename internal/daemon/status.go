package daemon

import (
	"encoding/json"
	"fmt"
)

type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// Status is what a daemon reports about itself, both on the first stdout
// line after spawn and from GET /status.
type Status struct {
	State         State `json:"state"`
	Online        bool  `json:"online"`
	LoginRequired bool  `json:"loginRequired"`
}

func DefaultStatus() Status {
	return Status{State: StatePending}
}

// UnmarshalJSON treats a missing state as pending.
func (s *Status) UnmarshalJSON(data []byte) error {
	type plain Status
	st := plain(DefaultStatus())
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	switch st.State {
	case "":
		st.State = StatePending
	case StatePending, StateRunning, StateStopped:
	default:
		return fmt.Errorf("unknown daemon state %q", st.State)
	}
	*s = Status(st)
	return nil
}

// ParseStatus decodes one status line.
func ParseStatus(line []byte) (Status, error) {
	var st Status
	if err := json.Unmarshal(line, &st); err != nil {
		return Status{}, fmt.Errorf("parsing daemon status: %w", err)
	}
	return st, nil
}
