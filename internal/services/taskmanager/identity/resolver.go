// Package identity resolves the caller behind an HTTP request from a bearer
// token or the token cookie, and guards protected routes.
package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	apperrors "github.com/louisbranch/taskmanager/internal/platform/errors"
	"github.com/louisbranch/taskmanager/internal/platform/requestctx"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/user"
)

// Rejection reasons used as the metric label.
const (
	ReasonMissingToken = "missing_token"
	ReasonInvalidToken = "invalid_token"
	ReasonExpiredToken = "expired_token"
	ReasonUnknownUser  = "unknown_user"
	ReasonError        = "error"
)

// ErrUnauthenticated is returned for every rejected request.
var ErrUnauthenticated = apperrors.New(apperrors.CodeUnauthenticated, "authentication required")

// TokenVerifier checks a raw token and returns its user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserLookup projects a user id to a public identity.
type UserLookup interface {
	Lookup(ctx context.Context, userID string) (user.Identity, error)
}

// ErrorWriter renders a rejection.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Resolver authenticates requests.
type Resolver struct {
	tokens     TokenVerifier
	users      UserLookup
	writeError ErrorWriter
	logger     logrus.FieldLogger
	rejections *prometheus.CounterVec
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithErrorWriter sets how rejections are rendered.
func WithErrorWriter(writer ErrorWriter) Option {
	return func(r *Resolver) {
		if writer != nil {
			r.writeError = writer
		}
	}
}

// WithLogger sets the logger for unexpected lookup failures.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRejectionCounter records rejections by reason.
func WithRejectionCounter(counter *prometheus.CounterVec) Option {
	return func(r *Resolver) {
		r.rejections = counter
	}
}

// NewResolver builds a resolver over a token verifier and user lookup.
func NewResolver(tokens TokenVerifier, users UserLookup, options ...Option) (*Resolver, error) {
	if tokens == nil {
		return nil, errors.New("token verifier is required")
	}
	if users == nil {
		return nil, errors.New("user lookup is required")
	}
	resolver := &Resolver{
		tokens:     tokens,
		users:      users,
		writeError: writePlainError,
		logger:     logrus.StandardLogger(),
	}
	for _, option := range options {
		option(resolver)
	}
	return resolver, nil
}

// NewRejectionCounter registers the identity rejection counter on reg.
func NewRejectionCounter(reg prometheus.Registerer) (*prometheus.CounterVec, error) {
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskmanager_identity_rejections_total",
			Help: "Requests rejected by the identity resolver, by reason.",
		},
		[]string{"reason"},
	)
	if reg == nil {
		return counter, nil
	}
	if err := reg.Register(counter); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return counter, nil
}

// TokenFromRequest returns the bearer token, falling back to the cookie.
func TokenFromRequest(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		scheme, value, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if value = strings.TrimSpace(value); value != "" {
				return value, true
			}
		}
	}
	return ReadTokenCookie(r)
}

// Resolve returns the identity behind the request. Every failure is reported
// as ErrUnauthenticated wrapping the underlying cause, together with a
// rejection reason.
func (r *Resolver) Resolve(req *http.Request) (user.Identity, string, error) {
	raw, ok := TokenFromRequest(req)
	if !ok {
		return user.Identity{}, ReasonMissingToken, ErrUnauthenticated
	}
	userID, err := r.tokens.Verify(raw)
	if err != nil {
		reason := ReasonInvalidToken
		switch apperrors.CodeOf(err) {
		case apperrors.CodeTokenExpired:
			reason = ReasonExpiredToken
		case apperrors.CodeTokenInvalid:
		default:
			// Configuration and unexpected errors are not the caller's fault.
			return user.Identity{}, ReasonError, err
		}
		return user.Identity{}, reason, apperrors.Wrap(apperrors.CodeUnauthenticated, ErrUnauthenticated.Message, err)
	}
	identity, err := r.users.Lookup(req.Context(), userID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return user.Identity{}, ReasonUnknownUser, apperrors.Wrap(apperrors.CodeUnauthenticated, ErrUnauthenticated.Message, err)
		}
		return user.Identity{}, ReasonError, err
	}
	return identity, "", nil
}

// Middleware rejects unauthenticated requests and attaches the identity to
// the request context for the rest.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		identity, reason, err := r.Resolve(req)
		if err != nil {
			r.reject(w, req, reason, err)
			return
		}
		ctx := requestctx.WithIdentity(req.Context(), requestctx.Identity{
			ID:    identity.ID,
			Email: identity.Email,
			Name:  identity.Name,
		})
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

func (r *Resolver) reject(w http.ResponseWriter, req *http.Request, reason string, err error) {
	if r.rejections != nil {
		r.rejections.WithLabelValues(reason).Inc()
	}
	if reason == ReasonError {
		r.logger.WithError(err).Error("resolve identity")
	} else {
		r.logger.WithField("reason", reason).Debug("request rejected")
	}
	r.writeError(w, req, err)
}

func writePlainError(w http.ResponseWriter, _ *http.Request, err error) {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()
	message := "internal server error"
	if domainErr, ok := apperrors.As(err); ok && code.Public() {
		message = domainErr.Message
	}
	http.Error(w, message, status)
}
