package daemon

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		line    string
		want    Status
		wantErr bool
	}{
		{line: `{"state":"running","online":true}`, want: Status{State: StateRunning, Online: true}},
		{line: `{"state":"stopped","loginRequired":true}`, want: Status{State: StateStopped, LoginRequired: true}},
		{line: `{}`, want: Status{State: StatePending}},
		{line: `{"state":"exploded"}`, wantErr: true},
		{line: `starting daemon...`, wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseStatus([]byte(tt.line))
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseStatus(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Fatalf("ParseStatus(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestDefaultStatusIsPending(t *testing.T) {
	if st := DefaultStatus(); st.State != StatePending || st.Online || st.LoginRequired {
		t.Fatalf("unexpected default status: %+v", st)
	}
}
