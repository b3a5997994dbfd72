package requestctx

import (
	"context"
	"testing"
)

func TestIdentityFromContextRoundTrip(t *testing.T) {
	want := Identity{ID: "user-42", Email: "a@x.com", Name: "Alice"}
	ctx := WithIdentity(context.Background(), want)

	got, ok := IdentityFromContext(ctx)
	if !ok {
		t.Fatal("expected identity")
	}
	if got != want {
		t.Fatalf("IdentityFromContext = %+v, want %+v", got, want)
	}
	if UserIDFromContext(ctx) != "user-42" {
		t.Fatalf("UserIDFromContext = %q", UserIDFromContext(ctx))
	}
}

func TestIdentityFromContextEmpty(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatal("expected no identity")
	}
	if got := UserIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}

func TestIdentityFromContextNil(t *testing.T) {
	if _, ok := IdentityFromContext(nil); ok {
		t.Fatal("expected no identity for nil context")
	}
}

func TestIdentityWithoutIDIsIgnored(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{Email: "a@x.com"})
	if _, ok := IdentityFromContext(ctx); ok {
		t.Fatal("expected identity without id to be rejected")
	}
}

func TestWithIdentityNilContext(t *testing.T) {
	ctx := WithIdentity(nil, Identity{ID: "user-1"})
	if UserIDFromContext(ctx) != "user-1" {
		t.Fatal("expected identity on fallback context")
	}
}
