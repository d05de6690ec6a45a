package rest

import (
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/context"
	"github.com/gorilla/handlers"
	"go.uber.org/zap"

	"github.com/qredo/attestation-console/internal/defs"
)

const (
	contextKeyError   = "error"
	contextKeyTraceID = "traceID"

	HeaderTraceID = "X-Request-ID"
)

type Middleware struct {
	log            *zap.SugaredLogger
	logAllRequests bool
}

func NewMiddleware(log *zap.SugaredLogger, logAllRequests bool) *Middleware {
	return &Middleware{
		log:            log,
		logAllRequests: logAllRequests,
	}
}

// sessionMiddleware tags the request with a trace id. A valid uuid sent in X-Request-ID is kept.
func (m *Middleware) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(HeaderTraceID)
		if _, err := uuid.Parse(traceID); err != nil {
			traceID = uuid.NewString()
		}

		context.Set(r, contextKeyTraceID, traceID)
		w.Header().Set(HeaderTraceID, traceID)

		next.ServeHTTP(w, r)
	})
}

// notProtectedMiddleware serves routes without authentication, the console API has none of its own
func (m *Middleware) notProtectedMiddleware(next appHandlerFunc) http.Handler {
	return next
}

// loggingMiddleware logs the failed requests, and every request when logAllRequests is set
func (m *Middleware) loggingMiddleware(next http.Handler) http.Handler {
	logged := handlers.CustomLoggingHandler(io.Discard, next, m.logRequest)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		//the router hands over a copy of the request, so the stash is cleared here
		defer context.Clear(r)

		logged.ServeHTTP(w, r)
	})
}

func (m *Middleware) logRequest(_ io.Writer, params handlers.LogFormatterParams) {
	r := params.Request
	fields := []interface{}{
		"traceID", getTraceID(r),
		"method", r.Method,
		"path", params.URL.Path,
		"status", params.StatusCode,
		"size", params.Size,
		"duration", time.Since(params.TimeStamp).String(),
	}

	if apiErr, ok := context.Get(r, contextKeyError).(*defs.APIError); ok {
		fields = append(fields, "error", apiErr.Error())
		if inner := apiErr.Unwrap(); inner != nil {
			fields = append(fields, "cause", inner.Error())
		}
		if apiErr.Code() >= http.StatusInternalServerError {
			m.log.Errorw("HTTP request failed", fields...)
		} else {
			m.log.Warnw("HTTP request failed", fields...)
		}
		return
	}

	if m.logAllRequests {
		m.log.Infow("HTTP request", fields...)
	}
}

func getTraceID(r *http.Request) string {
	if traceID, ok := context.Get(r, contextKeyTraceID).(string); ok {
		return traceID
	}
	return defs.EmptyString
}
