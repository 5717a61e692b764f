// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/holomush/authcore/internal/auth"
)

func TestSubjectContext(t *testing.T) {
	_, ok := auth.SubjectFromContext(context.Background())
	assert.False(t, ok)

	ctx := auth.WithSubject(context.Background(), "01HZYX")
	subject, ok := auth.SubjectFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "01HZYX", subject)

	_, ok = auth.SubjectFromContext(auth.WithSubject(context.Background(), ""))
	assert.False(t, ok)
}
