package identity

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	apperrors "github.com/louisbranch/taskmanager/internal/platform/errors"
	"github.com/louisbranch/taskmanager/internal/platform/logging"
	"github.com/louisbranch/taskmanager/internal/platform/requestctx"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/token"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/user"
)

type fakeUsers struct {
	identities map[string]user.Identity
	err        error
}

func (f fakeUsers) Lookup(_ context.Context, userID string) (user.Identity, error) {
	if f.err != nil {
		return user.Identity{}, f.err
	}
	identity, ok := f.identities[userID]
	if !ok {
		return user.Identity{}, apperrors.NotFound("user not found")
	}
	return identity, nil
}

var alice = user.Identity{ID: "alice", Email: "alice@example.com", Name: "Alice"}

type fixture struct {
	resolver *Resolver
	tokens   *token.Service
	counter  *prometheus.CounterVec
	clock    *time.Time
}

func newFixture(t *testing.T, users UserLookup) fixture {
	t.Helper()
	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	clock := &now
	tokens := token.NewService([]byte("secret"), func() time.Time { return *clock })
	counter, err := NewRejectionCounter(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("new counter: %v", err)
	}
	resolver, err := NewResolver(tokens, users, WithRejectionCounter(counter), WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return fixture{resolver: resolver, tokens: tokens, counter: counter, clock: clock}
}

func (f fixture) issue(t *testing.T, userID string) string {
	t.Helper()
	issued, err := f.tokens.Issue(userID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return issued.Token
}

func protected(t *testing.T, seen *requestctx.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := requestctx.IdentityFromContext(r.Context())
		if !ok {
			t.Fatal("expected identity in context")
		}
		*seen = identity
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestNewResolverRequiresDependencies(t *testing.T) {
	if _, err := NewResolver(nil, fakeUsers{}); err == nil {
		t.Fatal("expected error for nil verifier")
	}
	if _, err := NewResolver(token.NewService([]byte("k"), nil), nil); err == nil {
		t.Fatal("expected error for nil lookup")
	}
}

func TestMiddlewareAcceptsBearerToken(t *testing.T) {
	f := newFixture(t, fakeUsers{identities: map[string]user.Identity{"alice": alice}})
	var seen requestctx.Identity
	handler := f.resolver.Middleware(protected(t, &seen))

	req := httptest.NewRequest(http.MethodGet, "/folders", nil)
	req.Header.Set("Authorization", "Bearer "+f.issue(t, "alice"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if seen.ID != "alice" || seen.Email != alice.Email || seen.Name != alice.Name {
		t.Fatalf("identity = %+v", seen)
	}
}

func TestMiddlewareAcceptsCookie(t *testing.T) {
	f := newFixture(t, fakeUsers{identities: map[string]user.Identity{"alice": alice}})
	var seen requestctx.Identity
	handler := f.resolver.Middleware(protected(t, &seen))

	req := httptest.NewRequest(http.MethodGet, "/folders", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: f.issue(t, "alice")})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if seen.ID != "alice" {
		t.Fatalf("identity = %+v", seen)
	}
}

func TestHeaderTakesPrecedenceOverCookie(t *testing.T) {
	bob := user.Identity{ID: "bob", Email: "bob@example.com", Name: "Bob"}
	f := newFixture(t, fakeUsers{identities: map[string]user.Identity{"alice": alice, "bob": bob}})
	var seen requestctx.Identity
	handler := f.resolver.Middleware(protected(t, &seen))

	req := httptest.NewRequest(http.MethodGet, "/folders", nil)
	req.Header.Set("Authorization", "Bearer "+f.issue(t, "bob"))
	req.AddCookie(&http.Cookie{Name: CookieName, Value: f.issue(t, "alice")})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen.ID != "bob" {
		t.Fatalf("identity = %q, want bob", seen.ID)
	}
}

func TestMiddlewareRejections(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(f fixture, req *http.Request)
		reason string
	}{
		{
			name:   "missing token",
			setup:  func(fixture, *http.Request) {},
			reason: ReasonMissingToken,
		},
		{
			name: "wrong scheme",
			setup: func(_ fixture, req *http.Request) {
				req.Header.Set("Authorization", "Basic abc")
			},
			reason: ReasonMissingToken,
		},
		{
			name: "garbage token",
			setup: func(_ fixture, req *http.Request) {
				req.Header.Set("Authorization", "Bearer not-a-token")
			},
			reason: ReasonInvalidToken,
		},
		{
			name: "unknown user",
			setup: func(f fixture, req *http.Request) {
				issued, _ := f.tokens.Issue("ghost")
				req.Header.Set("Authorization", "Bearer "+issued.Token)
			},
			reason: ReasonUnknownUser,
		},
		{
			name: "expired token",
			setup: func(f fixture, req *http.Request) {
				issued, _ := f.tokens.Issue("alice")
				*f.clock = f.clock.Add(25 * time.Hour)
				req.Header.Set("Authorization", "Bearer "+issued.Token)
			},
			reason: ReasonExpiredToken,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fakeUsers{identities: map[string]user.Identity{"alice": alice}})
			handler := f.resolver.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatal("protected handler must not run")
			}))

			req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
			tt.setup(f, req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
			if got := testutil.ToFloat64(f.counter.WithLabelValues(tt.reason)); got != 1 {
				t.Fatalf("rejections{%s} = %v, want 1", tt.reason, got)
			}
		})
	}
}

func TestLookupFailureIsInternal(t *testing.T) {
	f := newFixture(t, fakeUsers{err: apperrors.New(apperrors.CodeInternal, "db down")})
	handler := f.resolver.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("protected handler must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+f.issue(t, "alice"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestCustomErrorWriter(t *testing.T) {
	tokens := token.NewService([]byte("secret"), nil)
	var got error
	resolver, err := NewResolver(tokens, fakeUsers{}, WithLogger(logging.Discard()), WithErrorWriter(func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	}))
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	rec := httptest.NewRecorder()
	resolver.Middleware(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if !apperrors.HasCode(got, apperrors.CodeUnauthenticated) {
		t.Fatalf("error = %v, want unauthenticated", got)
	}
}

func TestTokenCookieAttributes(t *testing.T) {
	tests := []struct {
		name   string
		req    func() *http.Request
		policy CookiePolicy
		secure bool
	}{
		{
			name:   "plain http",
			req:    func() *http.Request { return httptest.NewRequest(http.MethodPost, "/login", nil) },
			secure: false,
		},
		{
			name: "tls",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/login", nil)
				req.TLS = &tls.ConnectionState{}
				return req
			},
			secure: true,
		},
		{
			name: "forwarded untrusted",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/login", nil)
				req.Header.Set("X-Forwarded-Proto", "https")
				return req
			},
			secure: false,
		},
		{
			name: "forwarded trusted",
			req: func() *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/login", nil)
				req.Header.Set("X-Forwarded-Proto", "https")
				return req
			},
			policy: CookiePolicy{TrustForwardedProto: true},
			secure: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteTokenCookie(rec, tt.req(), " tok ", tt.policy)
			cookies := rec.Result().Cookies()
			if len(cookies) != 1 {
				t.Fatalf("cookies = %d, want 1", len(cookies))
			}
			cookie := cookies[0]
			if cookie.Name != CookieName || cookie.Value != "tok" {
				t.Fatalf("cookie = %s=%s", cookie.Name, cookie.Value)
			}
			if !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode || cookie.Path != "/" {
				t.Fatalf("unexpected attributes %+v", cookie)
			}
			if cookie.MaxAge != int(CookieMaxAge.Seconds()) {
				t.Fatalf("max age = %d", cookie.MaxAge)
			}
			if cookie.Secure != tt.secure {
				t.Fatalf("secure = %v, want %v", cookie.Secure, tt.secure)
			}
		})
	}
}

func TestClearTokenCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearTokenCookie(rec, httptest.NewRequest(http.MethodPost, "/logout", nil), CookiePolicy{})
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	if cookies[0].MaxAge >= 0 || cookies[0].Value != "" {
		t.Fatalf("expected expired cookie, got %+v", cookies[0])
	}
}
