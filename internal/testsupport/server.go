package testsupport

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

// NewServer starts an httptest server and closes it when the test ends.
func NewServer(t testing.TB, handler http.Handler) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// ServeBytes answers every request with data and a Content-Length header.
func ServeBytes(data []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			_, _ = w.Write(data)
		}
	}
}
