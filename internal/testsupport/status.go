package testsupport

import (
	"testing"
	"time"

	"mediavault/internal/transfer"
)

// CollectTimeout bounds how long Collect waits for a status channel to close.
const CollectTimeout = 10 * time.Second

// Collect drains a status channel until it closes.
func Collect(t testing.TB, ch <-chan transfer.Status) []transfer.Status {
	t.Helper()

	var statuses []transfer.Status
	timeout := time.After(CollectTimeout)
	for {
		select {
		case status, ok := <-ch:
			if !ok {
				return statuses
			}
			statuses = append(statuses, status)
		case <-timeout:
			t.Fatalf("status channel not closed after %s (got %d statuses)", CollectTimeout, len(statuses))
			return nil
		}
	}
}

// RequireTerminal asserts statuses end in exactly one terminal value of kind
// want and returns it.
func RequireTerminal(t testing.TB, statuses []transfer.Status, want transfer.StatusKind) transfer.Status {
	t.Helper()

	if len(statuses) == 0 {
		t.Fatalf("no statuses received")
	}
	for i, status := range statuses[:len(statuses)-1] {
		if status.Terminal() {
			t.Fatalf("terminal status %v at position %d of %d", status, i, len(statuses))
		}
	}
	last := statuses[len(statuses)-1]
	if last.Kind != want {
		t.Fatalf("terminal = %v, want kind %v", last, want)
	}
	return last
}

// Percents returns the progress percentages in emission order.
func Percents(statuses []transfer.Status) []int {
	var out []int
	for _, status := range statuses {
		if status.Kind == transfer.StatusProgress {
			out = append(out, status.Percent)
		}
	}
	return out
}
