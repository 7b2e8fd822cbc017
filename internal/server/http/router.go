// Package httpx serves the chat auth HTTP API: signup, signin, the current
// identity, health probes and Prometheus metrics.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hildxd/chat-server/internal/common"
	"github.com/hildxd/chat-server/internal/dbx"
	"github.com/hildxd/chat-server/internal/logging"
	"github.com/hildxd/chat-server/internal/server/metrics"
	"github.com/hildxd/chat-server/internal/server/models"
)

const maxBodyBytes = 1 << 20

// invalidCredentials is the single sign-in failure message, whatever the cause.
const invalidCredentials = "Invalid email or password"

// Authenticator is satisfied by *services.AuthService.
type Authenticator interface {
	Signup(ctx context.Context, req models.CreateAccountRequest) (string, error)
	Signin(ctx context.Context, req models.VerifyAccountRequest) (string, error)
	Authenticate(ctx context.Context, token string) (*models.AuthenticatedIdentity, error)
}

type Router struct {
	mux     *http.ServeMux
	auth    Authenticator
	db      dbx.Pinger
	metrics *metrics.Metrics
	logger  logging.Logger
}

func NewRouter(auth Authenticator, db dbx.Pinger, mtr *metrics.Metrics, logger logging.Logger) *Router {
	r := &Router{
		mux:     http.NewServeMux(),
		auth:    auth,
		db:      db,
		metrics: mtr,
		logger:  logger.With("module", "http"),
	}
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) register() {
	r.handle("POST /api/signup", "/api/signup", r.handleSignup)
	r.handle("POST /api/signin", "/api/signin", r.handleSignin)
	r.handle("GET /api/me", "/api/me", r.requireAuth(r.handleMe))
	r.handle("GET /healthz", "/healthz", r.handleHealthz)
	r.handle("GET /readyz", "/readyz", r.handleReadyz)
	if r.metrics != nil {
		r.mux.Handle("GET /metrics", r.metrics.Handler())
	}
}

func (r *Router) handle(pattern, route string, h http.HandlerFunc) {
	r.mux.Handle(pattern, r.withRequestID(r.audit(route, h)))
}

func (r *Router) handleSignup(w http.ResponseWriter, req *http.Request) {
	var payload models.CreateAccountRequest
	if !decodeBody(w, req, &payload) {
		return
	}

	token, err := r.auth.Signup(req.Context(), payload)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"token": token})
}

func (r *Router) handleSignin(w http.ResponseWriter, req *http.Request) {
	var payload models.VerifyAccountRequest
	if !decodeBody(w, req, &payload) {
		return
	}

	token, err := r.auth.Signin(req.Context(), payload)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	identity, ok := identityFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) handleReadyz(w http.ResponseWriter, req *http.Request) {
	if r.db != nil {
		if err := r.db.PingContext(req.Context()); err != nil {
			r.logger.Warn(req.Context(), "readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func decodeBody(w http.ResponseWriter, req *http.Request, dst any) bool {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (r *Router) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "email already exists")
	case errors.Is(err, common.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrHashing):
		writeError(w, http.StatusUnprocessableEntity, "password could not be processed")
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusForbidden, invalidCredentials)
	case errors.Is(err, common.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "invalid token")
	default:
		r.logger.Error(req.Context(), "request failed", "path", req.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
