package user

import (
	"errors"
	"testing"
	"time"
)

func TestCreateUserNormalizesInput(t *testing.T) {
	fixedTime := time.Date(2026, 1, 23, 10, 0, 0, 0, time.UTC)
	input := CreateUserInput{Email: "  A@X.com ", PasswordHash: "hash", Name: "  Alice  "}

	created, err := CreateUser(input, func() time.Time { return fixedTime }, func() (string, error) {
		return "user-123", nil
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.ID != "user-123" {
		t.Fatalf("expected id user-123, got %q", created.ID)
	}
	if created.Email != "a@x.com" {
		t.Fatalf("expected folded email, got %q", created.Email)
	}
	if created.Name != "Alice" {
		t.Fatalf("expected trimmed name, got %q", created.Name)
	}
	if !created.CreatedAt.Equal(fixedTime) || !created.UpdatedAt.Equal(fixedTime) {
		t.Fatal("expected timestamps to match fixed time")
	}
}

func TestCreateUserDefaults(t *testing.T) {
	created, err := CreateUser(CreateUserInput{Email: "a@x.com", PasswordHash: "hash", Name: "Alice"}, nil, nil)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if len(created.ID) != 26 {
		t.Fatalf("expected generated id, got %q", created.ID)
	}

	_, err = CreateUser(CreateUserInput{Email: "a@x.com", PasswordHash: "hash", Name: "Alice"}, nil, func() (string, error) {
		return "", errors.New("id generator error")
	})
	if err == nil {
		t.Fatal("expected id generator error")
	}
}

func TestNormalizeCreateUserInputValidation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateUserInput
		want  error
	}{
		{name: "empty email", input: CreateUserInput{Email: "  ", PasswordHash: "h", Name: "A"}, want: ErrEmptyEmail},
		{name: "missing domain", input: CreateUserInput{Email: "alice@", PasswordHash: "h", Name: "A"}, want: ErrInvalidEmail},
		{name: "missing local part", input: CreateUserInput{Email: "@x.com", PasswordHash: "h", Name: "A"}, want: ErrInvalidEmail},
		{name: "empty name", input: CreateUserInput{Email: "a@x.com", PasswordHash: "h", Name: " "}, want: ErrEmptyName},
		{name: "empty hash", input: CreateUserInput{Email: "a@x.com", Name: "A"}, want: ErrEmptyPasswordHash},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeCreateUserInput(tt.input)
			if err != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestIdentityOmitsHash(t *testing.T) {
	u := User{ID: "u1", Email: "a@x.com", PasswordHash: "secret", Name: "Alice"}
	got := u.Identity()
	if got != (Identity{ID: "u1", Email: "a@x.com", Name: "Alice"}) {
		t.Fatalf("unexpected identity %+v", got)
	}
}

func TestNormalizeEmailFoldsCase(t *testing.T) {
	if got := NormalizeEmail(" Bob@Example.COM "); got != "bob@example.com" {
		t.Fatalf("NormalizeEmail = %q", got)
	}
}
