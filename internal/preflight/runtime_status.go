package preflight

import (
	"strings"

	"mediavault/internal/config"
)

// CheckNotificationsFromConfig describes the notification setup without
// sending anything.
func CheckNotificationsFromConfig(cfg *config.Config) Result {
	const name = "Notifications"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	var events []string
	if cfg.Notifications.Download {
		events = append(events, "download")
	}
	if cfg.Notifications.Errors {
		events = append(events, "errors")
	}
	if len(events) == 0 {
		return Result{Name: name, Passed: true, Detail: "Topic set, all events muted"}
	}
	return Result{Name: name, Passed: true, Detail: "ntfy (" + strings.Join(events, ", ") + ")"}
}
