// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package errutil bridges oops errors to slog and to tests.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// Attrs returns slog key/value pairs describing err. oops errors add their
// code and context.
func Attrs(err error) []any {
	attrs := []any{"error", err.Error()}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return attrs
	}
	if code := oopsErr.Code(); code != nil && code != "" {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	return attrs
}

// LogError logs err at error level. args are appended after the error
// attributes.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error, args ...any) {
	if err == nil {
		return
	}
	logger.ErrorContext(ctx, msg, append(Attrs(err), args...)...)
}

// LogWarn is LogError at warn level, for failures the caller recovers from.
func LogWarn(ctx context.Context, logger *slog.Logger, msg string, err error, args ...any) {
	if err == nil {
		return
	}
	logger.WarnContext(ctx, msg, append(Attrs(err), args...)...)
}
