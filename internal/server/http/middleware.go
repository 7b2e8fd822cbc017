package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hildxd/chat-server/internal/common"
	"github.com/hildxd/chat-server/internal/server/models"
)

type contextKey string

const (
	contextKeyIdentity  contextKey = "chat-identity"
	contextKeyRequestID contextKey = "chat-request-id"
)

// withRequestID propagates X-Request-Id, generating a UUIDv7 when absent.
func (r *Router) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := strings.TrimSpace(req.Header.Get(common.RequestIDHeaderName))
		if id == "" {
			if v7, err := uuid.NewV7(); err == nil {
				id = v7.String()
			} else {
				id = uuid.NewString()
			}
		}
		w.Header().Set(common.RequestIDHeaderName, id)
		next.ServeHTTP(w, req.WithContext(context.WithValue(req.Context(), contextKeyRequestID, id)))
	})
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

// audit logs every request and records it in the HTTP metrics under route.
func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		r.metrics.HTTPRequest(req.Method, route, status, duration)

		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
			"request_id", requestIDFromContext(req.Context()),
		}

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error(req.Context(), "http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn(req.Context(), "http_request", fields...)
		default:
			r.logger.Info(req.Context(), "http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// requireAuth rejects requests without a valid bearer token and stores the
// identity in the request context.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		token, ok := bearerToken(req.Header.Get(common.AuthorizationHeaderName))
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		identity, err := r.auth.Authenticate(req.Context(), token)
		if err != nil {
			r.logger.Warn(req.Context(), "token validation failed", "error", err, "path", req.URL.Path)
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next(w, req.WithContext(context.WithValue(req.Context(), contextKeyIdentity, identity)))
	}
}

func identityFromContext(ctx context.Context) (*models.AuthenticatedIdentity, bool) {
	identity, ok := ctx.Value(contextKeyIdentity).(*models.AuthenticatedIdentity)
	return identity, ok && identity != nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], common.BearerScheme) {
		return "", false
	}
	return parts[1], true
}
