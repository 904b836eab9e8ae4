package transfer

import (
	"encoding/json"
	"fmt"
)

// StatusKind tags the variant held by a Status.
type StatusKind int

const (
	StatusProgress StatusKind = iota
	StatusSuccess
	StatusError
)

func (k StatusKind) String() string {
	switch k {
	case StatusProgress:
		return "progress"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(k))
	}
}

// Status is one value of a pipeline's status sequence.
type Status struct {
	Kind    StatusKind
	Percent int
	Message string
	// Err is set on Error statuses so callers can classify the failure.
	Err error
	// Written is the byte count at the time a terminal status was produced.
	Written int64
}

// Progress builds a Progress status clamped to [0,100].
func Progress(percent int) Status {
	return Status{Kind: StatusProgress, Percent: max(0, min(percent, 100))}
}

// Success builds a terminal Success status.
func Success(written int64) Status {
	return Status{Kind: StatusSuccess, Percent: 100, Written: written}
}

// Failure builds a terminal Error status. An empty message falls back to the
// error text.
func Failure(message string, err error) Status {
	if message == "" && err != nil {
		message = err.Error()
	}
	return Status{Kind: StatusError, Message: message, Err: err}
}

// Terminal reports whether s ends a status sequence.
func (s Status) Terminal() bool {
	return s.Kind == StatusSuccess || s.Kind == StatusError
}

func (s Status) String() string {
	switch s.Kind {
	case StatusProgress:
		return fmt.Sprintf("progress %d%%", s.Percent)
	case StatusError:
		return "error: " + s.Message
	default:
		return s.Kind.String()
	}
}

type statusJSON struct {
	Status  string `json:"status"`
	Percent *int   `json:"percent,omitempty"`
	Message string `json:"message,omitempty"`
	Bytes   int64  `json:"bytes,omitempty"`
}

// MarshalJSON renders the status for NDJSON streams.
func (s Status) MarshalJSON() ([]byte, error) {
	payload := statusJSON{Status: s.Kind.String(), Message: s.Message, Bytes: s.Written}
	if s.Kind == StatusProgress {
		percent := s.Percent
		payload.Percent = &percent
	}
	return json.Marshal(payload)
}

// UnmarshalJSON parses a status written by MarshalJSON. Err is not restored.
func (s *Status) UnmarshalJSON(data []byte) error {
	var payload statusJSON
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	switch payload.Status {
	case "progress":
		s.Kind = StatusProgress
	case "success":
		s.Kind = StatusSuccess
	case "error":
		s.Kind = StatusError
	default:
		return fmt.Errorf("unknown status %q", payload.Status)
	}
	s.Percent = 0
	if payload.Percent != nil {
		s.Percent = *payload.Percent
	} else if s.Kind == StatusSuccess {
		s.Percent = 100
	}
	s.Message = payload.Message
	s.Written = payload.Bytes
	s.Err = nil
	return nil
}
