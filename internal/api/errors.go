// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package api

import (
	"net/http"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/pkg/errutil"
)

// Codes raised by the transport itself.
const (
	CodeUnauthenticated  = "AUTH_UNAUTHENTICATED"
	CodeForbidden        = "AUTH_FORBIDDEN"
	CodeRouteNotFound    = "ROUTE_NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	codeInternal         = "INTERNAL_ERROR"
)

const internalMessage = "internal server error"

var statusByCode = map[string]int{
	auth.CodeEmailAlreadyExists:     http.StatusConflict,
	auth.CodeConcurrentModification: http.StatusConflict,
	auth.CodeAccountNotFound:        http.StatusNotFound,
	auth.CodeInvalidEmail:           http.StatusBadRequest,
	auth.CodeInvalidName:            http.StatusBadRequest,
	auth.CodeInvalidRoles:           http.StatusBadRequest,
	auth.CodeEmptyPassword:          http.StatusBadRequest,
	auth.CodeInvalidCredentials:     http.StatusUnauthorized,
	auth.CodeRoleNotFound:           http.StatusBadRequest,
	auth.CodeRoleAlreadyAssigned:    http.StatusBadRequest,
	auth.CodeRoleNotAssigned:        http.StatusBadRequest,
	auth.CodeMinimumRoleViolation:   http.StatusBadRequest,
	auth.CodeInvalidRoleName:        http.StatusBadRequest,
	auth.CodeTokenExpired:           http.StatusUnauthorized,
	auth.CodeTokenInvalid:           http.StatusUnauthorized,
	CodeRequestInvalid:              http.StatusBadRequest,
	CodeUnauthenticated:             http.StatusUnauthorized,
	CodeForbidden:                   http.StatusForbidden,
	CodeRouteNotFound:               http.StatusNotFound,
	CodeMethodNotAllowed:            http.StatusMethodNotAllowed,
}

// statusFor maps an error to its HTTP status and the code reported to the
// client. Unknown codes and configuration faults are internal errors.
func statusFor(err error) (int, string) {
	code := auth.ErrorCode(err)
	if auth.IsConfigurationFault(err) {
		return http.StatusInternalServerError, codeInternal
	}
	if status, ok := statusByCode[code]; ok {
		return status, code
	}
	return http.StatusInternalServerError, codeInternal
}

// writeError translates err into an ErrorDTO response. Internal errors are
// logged and reported with a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		errutil.LogError(r.Context(), h.logger, "request failed", err,
			"method", r.Method,
			"path", r.URL.Path,
		)
		message = internalMessage
	}

	h.writeJSON(w, status, ErrorDTO{
		Message:   message,
		Error:     code,
		Status:    status,
		Timestamp: h.now().UTC(),
		Path:      r.URL.Path,
	})
}
