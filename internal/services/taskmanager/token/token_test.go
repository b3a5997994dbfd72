package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/taskmanager/internal/platform/errors"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func TestIssueThenVerify(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService([]byte("secret"), clock.Now)

	issued, err := svc.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if issued.Token == "" {
		t.Fatal("expected token")
	}
	if !issued.ExpiresAt.Equal(clock.now.Add(Lifetime)) {
		t.Fatalf("expires at = %v, want %v", issued.ExpiresAt, clock.now.Add(Lifetime))
	}

	userID, err := svc.Verify(issued.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("user id = %q, want user-1", userID)
	}
}

func TestVerifyHonorsLifetime(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: issuedAt}
	svc := NewService([]byte("secret"), clock.Now)

	issued, err := svc.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock.now = issuedAt.Add(23*time.Hour + 59*time.Minute)
	if _, err := svc.Verify(issued.Token); err != nil {
		t.Fatalf("expected token valid before expiry, got %v", err)
	}

	clock.now = issuedAt.Add(24*time.Hour + time.Minute)
	_, err = svc.Verify(issued.Token)
	if !apperrors.HasCode(err, apperrors.CodeTokenExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	issuer := NewService([]byte("one"), nil)
	verifier := NewService([]byte("two"), nil)

	issued, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = verifier.Verify(issued.Token)
	if !apperrors.HasCode(err, apperrors.CodeTokenInvalid) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestVerifyRejectsUnexpectedAlgorithms(t *testing.T) {
	svc := NewService([]byte("secret"), nil)
	now := time.Now()
	registered := jwt.RegisteredClaims{
		Subject:   "user-1",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, registered).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, registered).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign hs512: %v", err)
	}

	for name, raw := range map[string]string{"none": none, "hs512": hs512} {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Verify(raw); !apperrors.HasCode(err, apperrors.CodeTokenInvalid) {
				t.Fatalf("expected invalid token, got %v", err)
			}
		})
	}
}

func TestVerifyRejectsMissingExpiryAndSubject(t *testing.T) {
	svc := NewService([]byte("secret"), nil)
	now := time.Now()

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:  "user-1",
		IssuedAt: jwt.NewNumericDate(now),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	for name, raw := range map[string]string{"no exp": noExp, "no subject": noSub, "garbage": "not.a.token", "blank": "  "} {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Verify(raw); !apperrors.HasCode(err, apperrors.CodeTokenInvalid) {
				t.Fatalf("expected invalid token, got %v", err)
			}
		})
	}
}

func TestTamperedPayloadIsRejected(t *testing.T) {
	svc := NewService([]byte("secret"), nil)
	issued, err := svc.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(issued.Token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 token segments, got %d", len(parts))
	}
	other, err := svc.Issue("user-2")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	otherParts := strings.Split(other.Token, ".")
	forged := parts[0] + "." + otherParts[1] + "." + parts[2]

	if _, err := svc.Verify(forged); !apperrors.HasCode(err, apperrors.CodeTokenInvalid) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestMissingKeyIsConfigurationError(t *testing.T) {
	svc := NewService(nil, nil)
	if _, err := svc.Issue("user-1"); !apperrors.HasCode(err, apperrors.CodeConfiguration) {
		t.Fatalf("issue: expected configuration error, got %v", err)
	}
	if _, err := svc.Verify("x.y.z"); !apperrors.HasCode(err, apperrors.CodeConfiguration) {
		t.Fatalf("verify: expected configuration error, got %v", err)
	}
}

func TestIssueRequiresUserID(t *testing.T) {
	svc := NewService([]byte("secret"), nil)
	if _, err := svc.Issue(" "); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
