// Package token issues and verifies the signed bearer credential that proves
// an account identity. Verification is stateless and never touches storage.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/apperr"
)

const DefaultTTL = 72 * time.Hour

// Claims is the signed assertion of { accountId, issuedAt, expiresAt }.
// The account id travels in the registered "sub" claim.
type Claims struct {
	jwt.RegisteredClaims
}

// Service signs tokens with a process-wide HMAC key loaded once at startup.
type Service struct {
	key    []byte
	issuer string
	ttl    time.Duration
	clock  clockwork.Clock
}

// NewService constructs a Service. A zero ttl falls back to DefaultTTL and a
// nil clock to the real clock.
func NewService(key []byte, issuer string, ttl time.Duration, clock clockwork.Clock) (*Service, error) {
	if len(key) == 0 {
		return nil, errors.New("token signing key is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Service{key: k, issuer: issuer, ttl: ttl, clock: clock}, nil
}

// Issue creates a signed token for accountID.
func (s *Service) Issue(accountID string) (string, error) {
	if accountID == "" {
		return "", apperr.InvalidArgument("account id is required")
	}
	now := s.clock.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token and returns the embedded account id.
func (s *Service) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parser := jwt.NewParser(opts...)
	_, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil {
		return "", classify(err)
	}
	if claims.Subject == "" {
		return "", apperr.ErrTokenMalformed
	}
	return claims.Subject, nil
}

// TTL returns the lifetime applied to issued tokens.
func (s *Service) TTL() time.Duration { return s.ttl }

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperr.Wrap(apperr.CodeTokenSignatureInvalid, apperr.ErrTokenSignatureInvalid.Message, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperr.Wrap(apperr.CodeTokenExpired, apperr.ErrTokenExpired.Message, err)
	default:
		return apperr.Wrap(apperr.CodeTokenMalformed, apperr.ErrTokenMalformed.Message, err)
	}
}
