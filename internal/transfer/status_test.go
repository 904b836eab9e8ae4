package transfer

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestStatusJSON(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{status: Progress(42), want: `{"status":"progress","percent":42}`},
		{status: Progress(0), want: `{"status":"progress","percent":0}`},
		{status: Success(10), want: `{"status":"success","bytes":10}`},
		{status: Failure("Download File Fail ! 404", errors.New("x")), want: `{"status":"error","message":"Download File Fail ! 404"}`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.status)
		if err != nil {
			t.Fatalf("marshal %v: %v", tt.status, err)
		}
		if string(data) != tt.want {
			t.Fatalf("marshal %v = %s, want %s", tt.status, data, tt.want)
		}
	}

	var parsed Status
	if err := json.Unmarshal([]byte(`{"status":"progress","percent":7}`), &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Kind != StatusProgress || parsed.Percent != 7 {
		t.Fatalf("unexpected parsed status %+v", parsed)
	}
	if err := json.Unmarshal([]byte(`{"status":"paused"}`), &parsed); err == nil {
		t.Fatal("expected unknown status error")
	}
}

func TestProgressClamps(t *testing.T) {
	if Progress(-5).Percent != 0 || Progress(250).Percent != 100 {
		t.Fatal("expected progress to clamp into [0,100]")
	}
}

func TestFailureDefaultsMessage(t *testing.T) {
	status := Failure("", errors.New("socket closed"))
	if status.Message != "socket closed" || !status.Terminal() {
		t.Fatalf("unexpected failure status %+v", status)
	}
}
