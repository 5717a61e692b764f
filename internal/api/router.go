// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package api exposes the auth core over HTTP/JSON.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/observability"
)

// Handler serves the authcore API.
type Handler struct {
	auth      *auth.Service
	directory *auth.DirectoryService
	tokens    *auth.TokenService
	validator *validator
	cors      *corsPolicy
	metrics   *observability.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Handler.
type Option func(*Handler) error

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) error {
		if logger == nil {
			return oops.Errorf("logger is required")
		}
		h.logger = logger
		return nil
	}
}

// WithMetrics records request and auth metrics into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(h *Handler) error {
		h.metrics = m
		return nil
	}
}

// WithAllowedOrigins enables CORS for origins matching the glob patterns.
func WithAllowedOrigins(patterns ...string) Option {
	return func(h *Handler) error {
		policy, err := newCORSPolicy(patterns)
		if err != nil {
			return err
		}
		h.cors = policy
		return nil
	}
}

// WithClock overrides the clock used for error timestamps and latency.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) error {
		h.now = now
		return nil
	}
}

// NewHandler creates the API handler.
func NewHandler(authSvc *auth.Service, directory *auth.DirectoryService, opts ...Option) (*Handler, error) {
	if authSvc == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if directory == nil {
		return nil, oops.Errorf("directory service is required")
	}
	v, err := newValidator()
	if err != nil {
		return nil, err
	}

	h := &Handler{
		auth:      authSvc,
		directory: directory,
		tokens:    authSvc.Tokens(),
		validator: v,
		cors:      &corsPolicy{},
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Routes returns the complete HTTP handler.
func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(h.instrument)

	a := r.PathPrefix("/api/auth").Subrouter()
	a.HandleFunc("/register", h.register).Methods(http.MethodPost)
	a.HandleFunc("/login", h.login).Methods(http.MethodPost)
	a.HandleFunc("/test", h.ping).Methods(http.MethodGet)

	u := r.PathPrefix("/api/users").Subrouter()
	u.HandleFunc("", h.requireRole(auth.RoleAdmin, h.listAccounts)).Methods(http.MethodGet)
	u.HandleFunc("/me", h.authenticated(h.currentAccount)).Methods(http.MethodGet)
	u.HandleFunc("/email/{email}", h.requireRole(auth.RoleAdmin, h.accountByEmail)).Methods(http.MethodGet)
	u.HandleFunc("/{id}", h.requireRole(auth.RoleAdmin, h.accountByID)).Methods(http.MethodGet)
	u.HandleFunc("/{id}/roles", h.requireRole(auth.RoleAdmin, h.addRoles)).Methods(http.MethodPost)
	u.HandleFunc("/{id}/roles", h.requireRole(auth.RoleAdmin, h.removeRoles)).Methods(http.MethodDelete)

	r.NotFoundHandler = h.instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, oops.Code(CodeRouteNotFound).Errorf("no route for %s", r.URL.Path))
	}))
	r.MethodNotAllowedHandler = h.instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, oops.Code(CodeMethodNotAllowed).Errorf("method %s not allowed", r.Method))
	}))

	return requestID(h.cors.wrap(r))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("write response failed", "error", err)
	}
}
