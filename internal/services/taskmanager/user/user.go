package user

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/taskmanager/internal/platform/errors"
	"github.com/louisbranch/taskmanager/internal/platform/id"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrEmptyEmail indicates a missing email.
	ErrEmptyEmail = apperrors.Validation("email", "email is required")
	// ErrInvalidEmail indicates an email without a local part and domain.
	ErrInvalidEmail = apperrors.Validation("email", "email is invalid")
	// ErrEmptyName indicates a missing display name.
	ErrEmptyName = apperrors.Validation("name", "name is required")
	// ErrEmptyPasswordHash indicates a user record built without a hash.
	ErrEmptyPasswordHash = apperrors.Validation("password", "password hash is required")
)

// User represents a registered account, including its password hash.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the public projection of a user. It never carries the hash.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Identity projects the user to its public fields.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Name: u.Name}
}

// CreateUserInput describes the data needed to create a user.
type CreateUserInput struct {
	Email        string
	PasswordHash string
	Name         string
}

// NormalizeEmail trims and case-folds an email so uniqueness checks are
// insensitive to letter case.
func NormalizeEmail(email string) string {
	// Casers carry state, so each call builds its own.
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(email)))
}

// ValidateEmail checks the normalized email has a local part and a domain.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmptyEmail
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " \t\r\n") {
		return ErrInvalidEmail
	}
	return nil
}

// NormalizeCreateUserInput trims and normalizes input before validation.
func NormalizeCreateUserInput(input CreateUserInput) (CreateUserInput, error) {
	input.Email = NormalizeEmail(input.Email)
	if err := ValidateEmail(input.Email); err != nil {
		return CreateUserInput{}, err
	}
	input.Name = norm.NFC.String(strings.TrimSpace(input.Name))
	if input.Name == "" {
		return CreateUserInput{}, ErrEmptyName
	}
	if input.PasswordHash == "" {
		return CreateUserInput{}, ErrEmptyPasswordHash
	}
	return input, nil
}

// CreateUser builds a new user record from validated input.
func CreateUser(input CreateUserInput, now func() time.Time, idGenerator func() (string, error)) (User, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateUserInput(input)
	if err != nil {
		return User{}, err
	}

	userID, err := idGenerator()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}

	createdAt := now().UTC()
	return User{
		ID:           userID,
		Email:        normalized.Email,
		PasswordHash: normalized.PasswordHash,
		Name:         normalized.Name,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}, nil
}
