// Package token issues and verifies the stateless bearer tokens that identify
// a signed-in user. Tokens are HS256 JWTs with a fixed lifetime and cannot be
// revoked before they expire.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/taskmanager/internal/platform/errors"
)

// Lifetime is how long an issued token stays valid.
const Lifetime = 24 * time.Hour

var (
	// ErrMissingKey indicates the service was built without a signing key.
	ErrMissingKey = apperrors.New(apperrors.CodeConfiguration, "token signing key is not configured")
	// ErrEmptyUserID indicates an attempt to issue a token for nobody.
	ErrEmptyUserID = apperrors.Validation("userId", "user id is required")
	// ErrInvalid indicates a malformed, forged, or incomplete token.
	ErrInvalid = apperrors.New(apperrors.CodeTokenInvalid, "token is invalid")
	// ErrExpired indicates a well-formed token past its expiry.
	ErrExpired = apperrors.New(apperrors.CodeTokenExpired, "token is expired")
)

// Issued describes a freshly signed token.
type Issued struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// claims carries the user id under both "id" and the registered "sub".
type claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
}

// Service signs and verifies tokens with one shared secret.
type Service struct {
	key   []byte
	clock func() time.Time
}

// NewService builds a token service. A nil clock selects time.Now. An empty
// key is accepted here and reported by Issue and Verify, so the process can
// start and fail requests with a configuration error.
func NewService(key []byte, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{key: append([]byte(nil), key...), clock: clock}
}

// Issue signs a token for userID valid for Lifetime.
func (s *Service) Issue(userID string) (Issued, error) {
	if len(s.key) == 0 {
		return Issued{}, ErrMissingKey
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Issued{}, ErrEmptyUserID
	}

	issuedAt := s.clock().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(Lifetime)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
	}).SignedString(s.key)
	if err != nil {
		return Issued{}, apperrors.Wrap(apperrors.CodeInternal, "sign token", err)
	}
	return Issued{Token: signed, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// Verify checks signature, algorithm, and expiry and returns the user id.
func (s *Service) Verify(raw string) (string, error) {
	if len(s.key) == 0 {
		return "", ErrMissingKey
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalid
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(raw, &parsed, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", mapJWTError(err)
	}

	userID := strings.TrimSpace(parsed.UserID)
	if userID == "" {
		userID = strings.TrimSpace(parsed.Subject)
	}
	if userID == "" {
		return "", ErrInvalid
	}
	if parsed.Subject != "" && parsed.Subject != userID {
		return "", ErrInvalid
	}
	return userID, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrExpired
	}
	return apperrors.Wrap(apperrors.CodeTokenInvalid, ErrInvalid.Message, err)
}
