package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger tags each request with an X-Request-ID and logs its outcome.
type RequestLogger struct {
	Next http.RoundTripper
	Log  *logrus.Logger
}

func (t *RequestLogger) RoundTrip(req *http.Request) (*http.Response, error) {
	startTime := time.Now()

	out := req
	reqID := req.Header.Get(RequestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
		out = req.Clone(req.Context())
		out.Header.Set(RequestIDHeader, reqID)
	}

	entry := t.Log.WithFields(logrus.Fields{
		"method":     req.Method,
		"path":       req.URL.Path,
		"request_id": reqID,
	})
	entry.Debug("Outgoing request")

	next := t.Next
	if next == nil {
		next = http.DefaultTransport
	}
	resp, err := next.RoundTrip(out)
	latency := time.Since(startTime)

	if err != nil {
		entry.WithField("latency_ms", latency.Milliseconds()).Errorf("Request failed: %v", err)
		return nil, err
	}

	completedEntry := entry.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"latency_ms":  latency.Milliseconds(),
	})
	switch {
	case resp.StatusCode >= 500:
		completedEntry.Error("Request completed with server error")
	case resp.StatusCode >= 400:
		completedEntry.Warn("Request completed with client error")
	default:
		completedEntry.Info("Request completed successfully")
	}
	return resp, nil
}
