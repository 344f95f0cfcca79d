package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/campuslib/library-catalogue-go/catalogue"
)

// RoleHeader is the request header carrying the caller's self-asserted role.
const RoleHeader = "x-user-role"

type contextKey string

const contextKeyRequestID contextKey = "request_id"

const (
	logMsgRequestHandled = "request handled"
	logAttrRequestID     = "request_id"
	logAttrMethod        = "method"
	logAttrPath          = "path"
	logAttrStatus        = "status"
)

// RequestIDFrom returns the request ID stashed by LoggingMiddleware, or the
// empty string.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

// CORSMiddleware sets the permissive cross-origin headers the browser client
// expects and short-circuits preflight requests.
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RoleHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireRole gates a handler on the caller's role claim. The claim is
// self-asserted; this is a policy gate, not authentication.
func RequireRole(role catalogue.Role, deniedMessage string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claim := catalogue.ParseRole(r.Header.Get(RoleHeader))
			if claim != role {
				respondMessage(w, http.StatusForbidden, deniedMessage)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// LoggingMiddleware assigns each request an ID, stashes it in the context for
// downstream log correlation, and logs method, path, status and duration.
func LoggingMiddleware(logger catalogue.ContextualLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.New().String()
			ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(rec, r.WithContext(ctx))

			if logger != nil {
				logger.InfoContext(ctx, logMsgRequestHandled,
					logAttrRequestID, requestID,
					logAttrMethod, r.Method,
					logAttrPath, r.URL.Path,
					logAttrStatus, rec.status,
					"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
				)
			}
		})
	}
}
