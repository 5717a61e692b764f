// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package api

import (
	"net/http"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/observability"
)

// Auth operations as reported in metrics.
const (
	opRegister = "register"
	opLogin    = "login"
)

func resultOf(err error) string {
	if err == nil {
		return observability.ResultSuccess
	}
	if status, _ := statusFor(err); status < http.StatusInternalServerError {
		return observability.ResultRejected
	}
	return observability.ResultError
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var body RegisterBody
	if err := h.validator.decode(w, r, "register", &body); err != nil {
		h.metrics.AuthAttempt(opRegister, observability.ResultRejected)
		h.writeError(w, r, err)
		return
	}

	res, err := h.auth.Register(r.Context(), auth.RegisterRequest{
		Email:     body.Email,
		Password:  body.Password,
		FirstName: body.FirstName,
		LastName:  body.LastName,
	})
	h.metrics.AuthAttempt(opRegister, resultOf(err))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, newAuthResponse(res))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var body LoginBody
	if err := h.validator.decode(w, r, "login", &body); err != nil {
		h.metrics.AuthAttempt(opLogin, observability.ResultRejected)
		h.writeError(w, r, err)
		return
	}

	res, err := h.auth.Login(r.Context(), body.Email, body.Password)
	h.metrics.AuthAttempt(opLogin, resultOf(err))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newAuthResponse(res))
}

// ping lets clients check connectivity without credentials.
func (h *Handler) ping(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // client may disconnect
	w.Write([]byte("authcore is up\n"))
}
