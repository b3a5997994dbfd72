package identity

import (
	"net/http"
	"strings"
	"time"
)

// CookieName is the cookie carrying the bearer token for browser clients.
const CookieName = "token"

// CookieMaxAge matches the token lifetime.
const CookieMaxAge = 24 * time.Hour

// CookiePolicy controls how the Secure attribute is decided.
//
// TrustForwardedProto must be enabled for X-Forwarded-Proto to count, since
// the header is client controlled unless a proxy overwrites it.
type CookiePolicy struct {
	TrustForwardedProto bool
}

func (p CookiePolicy) isHTTPS(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	if !p.TrustForwardedProto {
		return false
	}
	proto := strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-Proto"), ",")[0])
	return strings.EqualFold(proto, "https")
}

// ReadTokenCookie returns the trimmed token cookie value when present.
func ReadTokenCookie(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie == nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if value == "" {
		return "", false
	}
	return value, true
}

// WriteTokenCookie sets the token cookie for the current request context.
func WriteTokenCookie(w http.ResponseWriter, r *http.Request, token string, policy CookiePolicy) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    strings.TrimSpace(token),
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   policy.isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookie expires the token cookie for the current request context.
func ClearTokenCookie(w http.ResponseWriter, r *http.Request, policy CookiePolicy) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   policy.isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}
