// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/pkg/errutil"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// fixedClock returns a clock pinned to a whole second, advanced by the
// returned func.
func fixedClock() (func() time.Time, func(time.Duration)) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

func newTokenService(t *testing.T, ttl time.Duration, opts ...auth.TokenOption) *auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService(testSecret, ttl, opts...)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	t.Run("rejects short secret", func(t *testing.T) {
		_, err := auth.NewTokenService([]byte("short"), time.Hour)
		errutil.AssertErrorCode(t, err, auth.CodeTokenConfigInvalid)
	})

	t.Run("rejects missing secret", func(t *testing.T) {
		_, err := auth.NewTokenService(nil, time.Hour)
		errutil.AssertErrorCode(t, err, auth.CodeTokenConfigInvalid)
	})

	t.Run("rejects negative ttl", func(t *testing.T) {
		_, err := auth.NewTokenService(testSecret, -time.Second)
		errutil.AssertErrorCode(t, err, auth.CodeTokenConfigInvalid)
	})

	t.Run("zero value is not configured", func(t *testing.T) {
		var svc auth.TokenService
		_, _, err := svc.Issue("subject", nil)
		errutil.AssertErrorCode(t, err, auth.CodeTokenConfigInvalid)
		_, err = svc.Verify("a.b.c")
		errutil.AssertErrorCode(t, err, auth.CodeTokenConfigInvalid)
		_, err = svc.ExpiryOf("a.b.c")
		errutil.AssertErrorCode(t, err, auth.CodeTokenConfigInvalid)
		assert.False(t, svc.VerifyMatches("a.b.c", "subject"))
	})

	t.Run("accepts zero ttl", func(t *testing.T) {
		svc, err := auth.NewTokenService(testSecret, 0)
		require.NoError(t, err)
		assert.Equal(t, time.Duration(0), svc.TTL())
	})
}

func TestTokenService_IssueVerify(t *testing.T) {
	for _, ttl := range []time.Duration{time.Second, time.Minute, 24 * time.Hour} {
		t.Run("round trip with ttl "+ttl.String(), func(t *testing.T) {
			clock, _ := fixedClock()
			svc := newTokenService(t, ttl, auth.WithClock(clock))

			token, expiresAt, err := svc.Issue("01HZYX", nil)
			require.NoError(t, err)
			assert.Equal(t, clock().Add(ttl), expiresAt)

			subject, err := svc.Verify(token)
			require.NoError(t, err)
			assert.Equal(t, "01HZYX", subject)
			assert.True(t, svc.VerifyMatches(token, "01HZYX"))
			assert.False(t, svc.VerifyMatches(token, "someone-else"))
		})
	}

	t.Run("real clock round trip", func(t *testing.T) {
		svc := newTokenService(t, time.Hour)
		token, _, err := svc.Issue("subject", nil)
		require.NoError(t, err)
		subject, err := svc.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "subject", subject)
	})

	t.Run("empty subject is rejected", func(t *testing.T) {
		svc := newTokenService(t, time.Hour)
		_, _, err := svc.Issue("", nil)
		errutil.AssertErrorCode(t, err, auth.CodeTokenSubjectEmpty)
	})
}

func TestTokenService_Expiry(t *testing.T) {
	t.Run("zero ttl is expired immediately", func(t *testing.T) {
		clock, _ := fixedClock()
		svc := newTokenService(t, 0, auth.WithClock(clock))

		token, _, err := svc.Issue("subject", nil)
		require.NoError(t, err)

		_, err = svc.Verify(token)
		errutil.AssertErrorCode(t, err, auth.CodeTokenExpired)
		assert.False(t, svc.VerifyMatches(token, "subject"))
	})

	t.Run("zero ttl with real clock is expired", func(t *testing.T) {
		svc := newTokenService(t, 0)
		token, _, err := svc.Issue("subject", nil)
		require.NoError(t, err)
		_, err = svc.Verify(token)
		errutil.AssertErrorCode(t, err, auth.CodeTokenExpired)
	})

	t.Run("expired exactly at exp", func(t *testing.T) {
		clock, advance := fixedClock()
		svc := newTokenService(t, time.Minute, auth.WithClock(clock))

		token, _, err := svc.Issue("subject", nil)
		require.NoError(t, err)

		advance(time.Minute - time.Millisecond)
		_, err = svc.Verify(token)
		require.NoError(t, err)

		advance(time.Millisecond)
		_, err = svc.Verify(token)
		errutil.AssertErrorCode(t, err, auth.CodeTokenExpired)
	})

	t.Run("sub-second issue keeps the full ttl", func(t *testing.T) {
		now := time.Date(2026, 3, 1, 12, 0, 0, 999999000, time.UTC)
		svc := newTokenService(t, time.Second, auth.WithClock(func() time.Time { return now }))

		token, expiresAt, err := svc.Issue("subject", nil)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 2, 0, time.UTC), expiresAt)
		assert.False(t, expiresAt.Before(now.Add(time.Second)))

		now = now.Add(2 * time.Microsecond)
		subject, err := svc.Verify(token)
		require.NoError(t, err)
		assert.Equal(t, "subject", subject)

		now = now.Add(time.Second - 3*time.Microsecond)
		_, err = svc.Verify(token)
		require.NoError(t, err)

		now = expiresAt
		_, err = svc.Verify(token)
		errutil.AssertErrorCode(t, err, auth.CodeTokenExpired)
	})

	t.Run("expiry readable after expiring", func(t *testing.T) {
		clock, advance := fixedClock()
		svc := newTokenService(t, time.Minute, auth.WithClock(clock))

		token, expiresAt, err := svc.Issue("subject", nil)
		require.NoError(t, err)
		advance(time.Hour)

		got, err := svc.ExpiryOf(token)
		require.NoError(t, err)
		assert.Equal(t, expiresAt, got)
	})
}

func TestTokenService_Tampering(t *testing.T) {
	svc := newTokenService(t, time.Hour)
	token, _, err := svc.Issue("subject", nil)
	require.NoError(t, err)

	t.Run("altered signature", func(t *testing.T) {
		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		sig := []byte(parts[2])
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}
		tampered := parts[0] + "." + parts[1] + "." + string(sig)

		_, err := svc.Verify(tampered)
		errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
		_, err = svc.ExpiryOf(tampered)
		errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
	})

	t.Run("different secret", func(t *testing.T) {
		other, err := auth.NewTokenService([]byte("ffffffffffffffffffffffffffffffff"), time.Hour)
		require.NoError(t, err)
		_, err = other.Verify(token)
		errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
	})

	t.Run("malformed input", func(t *testing.T) {
		for _, raw := range []string{"", "garbage", "a.b.c", token + "x."} {
			_, err := svc.Verify(raw)
			errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
		}
	})

	t.Run("unexpected algorithm", func(t *testing.T) {
		claims := jwt.MapClaims{"sub": "subject", "exp": time.Now().Add(time.Hour).Unix()}
		none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.Verify(none)
		errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)

		hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
		require.NoError(t, err)
		_, err = svc.Verify(hs512)
		errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
	})

	t.Run("missing subject", func(t *testing.T) {
		claims := jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
		require.NoError(t, err)
		_, err = svc.Verify(signed)
		errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
	})

	t.Run("missing expiry", func(t *testing.T) {
		claims := jwt.MapClaims{"sub": "subject"}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
		require.NoError(t, err)
		_, err = svc.Verify(signed)
		errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
	})
}

func TestTokenService_Parse(t *testing.T) {
	clock, _ := fixedClock()
	svc := newTokenService(t, time.Hour, auth.WithClock(clock), auth.WithIssuer("authcore"))

	token, _, err := svc.Issue("01HZYX", map[string]any{
		auth.ClaimEmail: "a@b.com",
		auth.ClaimRoles: []string{"DEFAULT", "ADMIN"},
		"sub":           "spoofed",
		"exp":           0,
	})
	require.NoError(t, err)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "01HZYX", claims.Subject)
	assert.Equal(t, "authcore", claims.Issuer)
	assert.Equal(t, clock(), claims.IssuedAt)
	assert.Equal(t, clock().Add(time.Hour), claims.ExpiresAt)
	assert.Equal(t, []string{"DEFAULT", "ADMIN"}, claims.Roles)
	assert.Equal(t, "a@b.com", claims.Extra[auth.ClaimEmail])

	t.Run("issuer mismatch is invalid", func(t *testing.T) {
		other := newTokenService(t, time.Hour, auth.WithClock(clock), auth.WithIssuer("elsewhere"))
		_, err := other.Parse(token)
		errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
	})
}
