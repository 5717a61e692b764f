// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authcore/internal/auth"
)

// Role operations as reported in metrics.
const (
	opAddRoles    = "add"
	opRemoveRoles = "remove"
)

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.directory.ListAll(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]AccountResponse, len(summaries))
	for i := range summaries {
		out[i] = newAccountResponse(&summaries[i])
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) currentAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.auth.CurrentAccount(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if account == nil {
		h.writeError(w, r, oops.Code(auth.CodeAccountNotFound).Errorf("account not found"))
		return
	}
	summary := auth.Summarize(account)
	h.writeJSON(w, http.StatusOK, newAccountResponse(&summary))
}

func (h *Handler) accountByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	summary, err := h.directory.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newAccountResponse(summary))
}

func (h *Handler) accountByEmail(w http.ResponseWriter, r *http.Request) {
	summary, err := h.directory.GetByEmail(r.Context(), mux.Vars(r)["email"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newAccountResponse(summary))
}

func (h *Handler) addRoles(w http.ResponseWriter, r *http.Request) {
	h.changeRoles(w, r, opAddRoles, h.directory.AddRoles)
}

func (h *Handler) removeRoles(w http.ResponseWriter, r *http.Request) {
	h.changeRoles(w, r, opRemoveRoles, h.directory.RemoveRoles)
}

type roleMutation func(ctx context.Context, id ulid.ULID, names []string) (*auth.Summary, error)

func (h *Handler) changeRoles(w http.ResponseWriter, r *http.Request, op string, apply roleMutation) {
	summary, err := h.applyRoles(w, r, apply)
	h.metrics.RoleChange(op, resultOf(err))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newAccountResponse(summary))
}

func (h *Handler) applyRoles(w http.ResponseWriter, r *http.Request, apply roleMutation) (*auth.Summary, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	var body RolesBody
	if err := h.validator.decode(w, r, "roles", &body); err != nil {
		return nil, err
	}
	return apply(r.Context(), id, body.Roles)
}

func pathID(r *http.Request) (ulid.ULID, error) {
	raw := mux.Vars(r)["id"]
	id, err := ulid.Parse(raw)
	if err != nil {
		return ulid.ULID{}, oops.Code(CodeRequestInvalid).
			With("id", raw).
			Errorf("invalid account id %q", raw)
	}
	return id, nil
}
