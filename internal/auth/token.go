// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// MinTokenSecretLength is the shortest HMAC secret accepted, matching the
// HS256 block size guidance.
const MinTokenSecretLength = 32

// Claim names carried alongside the registered claims.
const (
	ClaimEmail = "email"
	ClaimRoles = "roles"
)

var registeredClaims = []string{"sub", "iat", "exp", "nbf", "iss", "aud", "jti"}

// TokenClaims is the verified content of a session token.
type TokenClaims struct {
	Subject   string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Roles     []string
	Extra     map[string]any
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIssuer stamps tokens with an iss claim and requires it on verification.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) {
		s.issuer = issuer
	}
}

// TokenService issues and verifies HS256 session tokens. Timestamps use
// whole-second NumericDate precision: iat is truncated and a positive
// expiry is rounded up, so a token stays valid for at least its TTL.
// A zero value is unusable; construct one with NewTokenService.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenService creates a TokenService. The secret must be at least
// MinTokenSecretLength bytes and ttl must not be negative.
func NewTokenService(secret []byte, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(secret) < MinTokenSecretLength {
		return nil, oops.Code(CodeTokenConfigInvalid).
			With("min_length", MinTokenSecretLength).
			Errorf("token secret must be at least %d bytes", MinTokenSecretLength)
	}
	if ttl < 0 {
		return nil, oops.Code(CodeTokenConfigInvalid).
			With("ttl", ttl.String()).
			Errorf("token ttl cannot be negative")
	}

	s := &TokenService{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for subject. Extra claims are merged in but never
// override registered claims.
func (s *TokenService) Issue(subject string, extra map[string]any) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, oops.Code(CodeTokenSubjectEmpty).Errorf("token subject cannot be empty")
	}

	if err := s.configured(); err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	issuedAt := jwt.NewNumericDate(now)
	expiresAt := jwt.NewNumericDate(s.expiry(now))

	claims := jwt.MapClaims{}
	maps.Copy(claims, extra)
	for _, name := range registeredClaims {
		delete(claims, name)
	}
	claims["sub"] = subject
	claims["iat"] = issuedAt
	claims["exp"] = expiresAt
	if s.issuer != "" {
		claims["iss"] = s.issuer
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, oops.Code(CodeTokenConfigInvalid).Wrap(err)
	}
	return signed, expiresAt.UTC(), nil
}

// Verify checks the signature and expiry of token and returns its subject.
func (s *TokenService) Verify(token string) (string, error) {
	claims, err := s.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// VerifyMatches reports whether token is valid and issued to expected.
func (s *TokenService) VerifyMatches(token, expected string) bool {
	subject, err := s.Verify(token)
	return err == nil && subject == expected
}

// Parse verifies token and returns its claims. A token is expired once the
// clock reaches its exp claim.
func (s *TokenService) Parse(token string) (*TokenClaims, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	mc, err := s.parse(token, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code(CodeTokenExpired).Errorf("token has expired")
		}
		return nil, invalidToken(err)
	}
	return claimsFromMap(mc)
}

// ExpiryOf returns the expiry of a correctly signed token, even if it has
// already passed.
func (s *TokenService) ExpiryOf(token string) (time.Time, error) {
	if err := s.configured(); err != nil {
		return time.Time{}, err
	}
	mc, err := s.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return time.Time{}, invalidToken(err)
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, oops.Code(CodeTokenInvalid).Errorf("token has no expiry")
	}
	return exp.UTC(), nil
}

func (s *TokenService) configured() error {
	if len(s.secret) < MinTokenSecretLength || s.now == nil {
		return oops.Code(CodeTokenConfigInvalid).Errorf("token service is not configured")
	}
	return nil
}

// expiry returns now+ttl on a whole second, rounding up for a positive ttl.
// A zero ttl stays at or before now and is therefore already expired.
func (s *TokenService) expiry(now time.Time) time.Time {
	exp := now.Add(s.ttl)
	whole := exp.Truncate(time.Second)
	if s.ttl > 0 && whole.Before(exp) {
		whole = whole.Add(time.Second)
	}
	return whole
}

func (s *TokenService) parse(token string, opts ...jwt.ParserOption) (jwt.MapClaims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	mc := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, mc, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return mc, nil
}

func claimsFromMap(mc jwt.MapClaims) (*TokenClaims, error) {
	subject, err := mc.GetSubject()
	if err != nil || subject == "" {
		return nil, oops.Code(CodeTokenInvalid).Errorf("token has no subject")
	}

	out := &TokenClaims{Subject: subject, Extra: map[string]any{}}
	if iss, err := mc.GetIssuer(); err == nil {
		out.Issuer = iss
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.UTC()
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.UTC()
	}

	for key, value := range mc {
		switch key {
		case "sub", "iat", "exp", "iss":
		case ClaimRoles:
			roles, ok := stringSlice(value)
			if !ok {
				return nil, oops.Code(CodeTokenInvalid).Errorf("roles claim is malformed")
			}
			out.Roles = roles
		default:
			out.Extra[key] = value
		}
	}
	return out, nil
}

func stringSlice(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func invalidToken(cause error) error {
	return oops.Code(CodeTokenInvalid).
		With("reason", cause.Error()).
		Errorf("token is invalid")
}
