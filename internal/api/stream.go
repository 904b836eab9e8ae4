package api

import (
	"encoding/json"
	"net/http"
	"time"

	"mediavault/internal/logging"
	"mediavault/internal/transfer"
)

// streamStatuses writes each status as one JSON line, flushing after every
// line. The channel is drained to its end even when the client goes away so
// the pipeline can finish its cleanup.
func (s *Server) streamStatuses(w http.ResponseWriter, r *http.Request, ch <-chan transfer.Status) {
	rc := http.NewResponseController(w)
	// Streams last as long as their pipeline.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", ndjsonContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	enc := json.NewEncoder(w)
	writable := true
	for status := range ch {
		if !writable {
			continue
		}
		if err := enc.Encode(status); err != nil {
			writable = false
			logging.WithContext(r.Context(), s.logger).Debug("status stream closed by client", logging.Error(err))
			continue
		}
		if err := rc.Flush(); err != nil {
			writable = false
		}
	}
}
