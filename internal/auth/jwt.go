// Package auth provides bearer-credential parsing and validation for the
// analytics API. Credentials are JWTs issued by the external auth provider;
// this package only verifies them and extracts the subject.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default leeway for token validation.
const DefaultLeeway = 30 * time.Second

// ErrMalformedToken is returned when the credential is empty or not
// structurally a JWT. Distinct from ErrInvalidToken: a malformed credential
// indicates a caller bug, not a failed verification.
var ErrMalformedToken = errors.New("malformed token")

// ErrInvalidToken is returned when token validation fails.
var ErrInvalidToken = errors.New("invalid token")

// ErrExpiredToken is returned when the token has expired.
var ErrExpiredToken = errors.New("token has expired")

// Claims represents the JWT claims the analytics API consumes.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTService handles JWT token verification.
// Supports dual-key rotation: tokens are validated with either currentSecret
// or previousSecret, so rotation never invalidates in-flight credentials.
type JWTService struct {
	currentSecret  []byte
	previousSecret []byte
	leeway         time.Duration
}

// NewJWTService creates a new JWTService with the given secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		currentSecret: []byte(secret),
		leeway:        DefaultLeeway,
	}
}

// NewJWTServiceWithRotation creates a new JWTService with dual-key support
// for zero-downtime rotation. Set previousSecret to empty string if no
// rotation is in progress.
func NewJWTServiceWithRotation(currentSecret, previousSecret string) *JWTService {
	svc := &JWTService{
		currentSecret: []byte(currentSecret),
		leeway:        DefaultLeeway,
	}
	if previousSecret != "" {
		svc.previousSecret = []byte(previousSecret)
	}
	return svc
}

// BearerToken extracts the token from an Authorization header value.
// Accepts both "Bearer <token>" and a bare token.
// Returns ErrMalformedToken for empty input.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMalformedToken
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		header = strings.TrimSpace(header[7:])
	}
	if header == "" {
		return "", ErrMalformedToken
	}
	return header, nil
}

// GenerateToken creates a signed token for the given subject with the given
// lifetime. Token issuance belongs to the external auth provider; this is
// kept for local development and tests.
func (s *JWTService) GenerateToken(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", ErrInvalidToken
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.currentSecret)
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
// Returns ErrMalformedToken if the credential is not structurally a JWT,
// ErrExpiredToken if it verified but expired, and ErrInvalidToken otherwise.
// Supports dual-key rotation: tries currentSecret first, then previousSecret.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrMalformedToken
	}
	// A JWT is three base64url segments joined by dots. Anything else is a
	// malformed credential, not a failed verification.
	if strings.Count(tokenString, ".") != 2 {
		return nil, ErrMalformedToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return s.currentSecret, nil
	}, jwt.WithLeeway(s.leeway))

	if err == nil {
		claims, ok := token.Claims.(*Claims)
		if ok && token.Valid {
			return claims, nil
		}
		return nil, ErrInvalidToken
	}

	// If current secret fails and previous secret is available, try previous secret
	if s.previousSecret != nil {
		token, err = jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, ErrInvalidToken
			}
			return s.previousSecret, nil
		}, jwt.WithLeeway(s.leeway))

		if err == nil {
			claims, ok := token.Claims.(*Claims)
			if ok && token.Valid {
				return claims, nil
			}
		}
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	if errors.Is(err, jwt.ErrTokenMalformed) {
		return nil, ErrMalformedToken
	}
	return nil, ErrInvalidToken
}
