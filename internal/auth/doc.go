// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth is the authentication and authorization core of authcore.
//
// # Domain Types
//
// Accounts and roles should be created using their constructors:
//   - NewAccount - creates an Account with a validated email, names and roles
//   - NewRole - creates a catalog Role
//
// An Account always holds at least one Role once it is persisted. Role
// memberships change only through GrantRoles and RevokeRoles, which apply
// a whole request or nothing.
//
// # Services
//
//   - TokenService - issues and verifies HS256 session tokens
//   - Service - registration, login and the current caller's account
//   - DirectoryService - account lookups and role membership changes
//
// Errors carry samber/oops codes (see errors.go); the transport layer is the
// only place that turns them into protocol status.
package auth
