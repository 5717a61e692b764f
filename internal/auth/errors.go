// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned by stores when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Error codes surfaced by the auth core. The transport layer maps these to
// protocol-level status signals.
const (
	CodeEmailAlreadyExists     = "ACCOUNT_EMAIL_EXISTS"
	CodeAccountNotFound        = "ACCOUNT_NOT_FOUND"
	CodeConcurrentModification = "ACCOUNT_CONCURRENT_MODIFICATION"
	CodeInvalidEmail           = "ACCOUNT_INVALID_EMAIL"
	CodeInvalidName            = "ACCOUNT_INVALID_NAME"
	CodeInvalidPasswordHash    = "ACCOUNT_INVALID_PASSWORD_HASH"
	CodeInvalidRoles           = "ACCOUNT_INVALID_ROLES"

	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeEmptyPassword      = "AUTH_EMPTY_PASSWORD"

	CodeRoleNotFound         = "ROLE_NOT_FOUND"
	CodeRoleAlreadyAssigned  = "ROLE_ALREADY_ASSIGNED"
	CodeRoleNotAssigned      = "ROLE_NOT_ASSIGNED"
	CodeMinimumRoleViolation = "ROLE_MINIMUM_VIOLATION"
	CodeInvalidRoleName      = "ROLE_INVALID_NAME"

	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeTokenConfigInvalid = "TOKEN_CONFIG_INVALID"
	CodeTokenSubjectEmpty  = "TOKEN_SUBJECT_EMPTY"
)

// faultKey marks errors that indicate a server misconfiguration rather than
// bad client input.
const faultKey = "fault"

const faultConfiguration = "configuration"

// ErrorCode returns the oops code carried by err, or "" if there is none.
func ErrorCode(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}

// HasCode reports whether err carries the given oops code.
func HasCode(err error, code string) bool {
	return err != nil && ErrorCode(err) == code
}

// IsConfigurationFault reports whether err was raised because the server is
// misconfigured (for example the DEFAULT role is missing from the catalog).
func IsConfigurationFault(err error) bool {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	return oopsErr.Context()[faultKey] == faultConfiguration
}
