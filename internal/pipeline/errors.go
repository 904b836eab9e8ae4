package pipeline

import (
	"fmt"
	"strings"

	"mediavault/internal/services"
)

// FailurePrefix starts every download error message shown to users.
const FailurePrefix = "Download File Fail !"

// ServerError reports a non-200 response from the media server.
type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	message := strings.TrimSpace(e.Message)
	if message == "" {
		return fmt.Sprintf("server error: %d", e.Code)
	}
	return fmt.Sprintf("server error: %d, %s", e.Code, message)
}

// Unwrap classifies server errors as network failures.
func (e *ServerError) Unwrap() error {
	return services.ErrNetwork
}

func failureMessage(prefix string, err error) string {
	if err == nil {
		return prefix
	}
	return prefix + " " + err.Error()
}
