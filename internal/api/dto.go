// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package api

import (
	"time"

	"github.com/holomush/authcore/internal/auth"
)

// RegisterBody is the body of POST /api/auth/register.
type RegisterBody struct {
	Email     string `json:"email" jsonschema:"format=email,maxLength=254"`
	Password  string `json:"password" jsonschema:"minLength=8,maxLength=128"`
	FirstName string `json:"firstName" jsonschema:"minLength=1,maxLength=100,pattern=\\S"`
	LastName  string `json:"lastName" jsonschema:"minLength=1,maxLength=100,pattern=\\S"`
}

// LoginBody is the body of POST /api/auth/login.
type LoginBody struct {
	Email    string `json:"email" jsonschema:"format=email,maxLength=254"`
	Password string `json:"password" jsonschema:"minLength=1,maxLength=128"`
}

// RolesBody is the body of the role add and remove endpoints.
type RolesBody struct {
	Roles []string `json:"roles" jsonschema:"minItems=1,maxItems=16"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token     string    `json:"token"`
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AccountResponse describes one account.
type AccountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ErrorDTO is the body of every error response.
type ErrorDTO struct {
	Message   string    `json:"message"`
	Error     string    `json:"error"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

func roleStrings(names []auth.RoleName) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n.String()
	}
	return out
}

func newAuthResponse(res *auth.AuthResult) AuthResponse {
	return AuthResponse{
		Token:     res.Token,
		Type:      res.TokenType,
		ID:        res.Account.ID.String(),
		Email:     res.Account.Email,
		FirstName: res.Account.FirstName,
		LastName:  res.Account.LastName,
		Roles:     roleStrings(res.Account.Roles),
		ExpiresAt: res.ExpiresAt,
	}
}

func newAccountResponse(s *auth.Summary) AccountResponse {
	return AccountResponse{
		ID:        s.ID.String(),
		Email:     s.Email,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Roles:     roleStrings(s.Roles),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
