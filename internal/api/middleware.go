// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package api

import (
	"net/http"
	"strings"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/logging"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

const tracerName = "github.com/holomush/authcore/internal/api"

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	//nolint:wrapcheck // passthrough
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// requestID reuses a well-formed inbound X-Request-ID or mints a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// routeTemplate returns the matched mux path template, or the raw path.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// instrument traces the request, records metrics and writes the access log.
func (h *Handler) instrument(next http.Handler) http.Handler {
	tracer := otel.Tracer(tracerName)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := h.now()
		route := routeTemplate(r)

		ctx, span := tracer.Start(r.Context(), r.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(ctx))

		status := rec.code()
		elapsed := h.now().Sub(start)
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		h.metrics.ObserveRequest(r.Method, route, status, elapsed)
		h.logger.InfoContext(ctx, "http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

// corsPolicy answers CORS requests for origins matching the configured
// glob patterns.
type corsPolicy struct {
	origins []glob.Glob
}

func newCORSPolicy(patterns []string) (*corsPolicy, error) {
	p := &corsPolicy{}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, oops.Code("CORS_ORIGIN_INVALID").With("pattern", pattern).Wrap(err)
		}
		p.origins = append(p.origins, g)
	}
	return p, nil
}

func (p *corsPolicy) allowed(origin string) bool {
	for _, g := range p.origins {
		if g.Match(origin) {
			return true
		}
	}
	return false
}

func (p *corsPolicy) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" || !p.allowed(origin) {
			next.ServeHTTP(w, r)
			return
		}

		hdr := w.Header()
		hdr.Add("Vary", "Origin")
		hdr.Set("Access-Control-Allow-Origin", origin)
		hdr.Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			hdr.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
				hdr.Set("Access-Control-Allow-Headers", reqHeaders)
			}
			hdr.Set("Access-Control-Max-Age", "3600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// authenticated verifies the bearer token and stores its subject in the
// request context.
func (h *Handler) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			h.writeError(w, r, oops.Code(CodeUnauthenticated).Errorf("authentication required"))
			return
		}
		subject, err := h.tokens.Verify(token)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next(w, r.WithContext(auth.WithSubject(r.Context(), subject)))
	}
}

// requireRole admits callers whose stored account currently holds role.
// Roles are read from the store, not from the token claims.
func (h *Handler) requireRole(role auth.RoleName, next http.HandlerFunc) http.HandlerFunc {
	return h.authenticated(func(w http.ResponseWriter, r *http.Request) {
		account, err := h.auth.CurrentAccount(r.Context())
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		if account == nil {
			h.writeError(w, r, oops.Code(CodeUnauthenticated).Errorf("account no longer exists"))
			return
		}
		if !account.HasRole(role) {
			h.writeError(w, r, oops.Code(CodeForbidden).
				With("role", role.String()).
				Errorf("access denied"))
			return
		}
		next(w, r)
	})
}
