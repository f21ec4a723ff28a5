package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// requestIDHeader carries a per-request correlation id, generated here and
// echoed back to the caller — a pure observability concern, never part of
// the record or wire protocol.
const requestIDHeader = "X-Request-Id"

// respRecorder captures the status code written to the client, the way the
// teacher's internal/cache/util.go respRecorder does, so withLogging can
// report it.
type respRecorder struct {
	http.ResponseWriter
	status int
}

func (rr *respRecorder) WriteHeader(code int) {
	rr.status = code
	rr.ResponseWriter.WriteHeader(code)
}

// withLogging wraps next with request-ID assignment and one structured log
// line per request.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		rr := &respRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rr, r)

		s.log.WithFields(logrus.Fields{
			"request_id": id,
			"method":     r.Method,
			"path":       r.URL.Path,
			"query":      r.URL.RawQuery,
			"status":     rr.status,
			"duration":   time.Since(start),
		}).Info("http request")
	})
}
