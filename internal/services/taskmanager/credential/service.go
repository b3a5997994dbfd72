package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/taskmanager/internal/platform/errors"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/storage"
	"github.com/louisbranch/taskmanager/internal/services/taskmanager/user"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

var (
	// ErrEmptyPassword indicates a blank password.
	ErrEmptyPassword = apperrors.Validation("password", "password is required")
	// ErrPasswordTooLong indicates a password bcrypt cannot hash.
	ErrPasswordTooLong = apperrors.Validation("password", "password must be at most 72 bytes")
	// ErrEmailTaken indicates the email already belongs to an account.
	ErrEmailTaken = apperrors.New(apperrors.CodeConflict, "user already exists")
	// ErrUserNotFound indicates no account matches the email or id.
	ErrUserNotFound = apperrors.NotFound("user not found")
	// ErrInvalidCredentials indicates a password mismatch.
	ErrInvalidCredentials = apperrors.New(apperrors.CodeInvalidCredentials, "invalid credentials")
)

// UserStore persists and retrieves user records.
type UserStore interface {
	PutUser(ctx context.Context, u user.User) error
	GetUser(ctx context.Context, userID string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
}

// Options tunes hashing and login disclosure.
type Options struct {
	// Cost is the bcrypt cost; zero selects DefaultCost.
	Cost int
	// UniformLoginErrors reports unknown emails as invalid credentials so
	// login responses do not reveal which emails are registered.
	UniformLoginErrors bool
}

// Service registers and verifies credentials.
type Service struct {
	store       UserStore
	cost        int
	uniform     bool
	clock       func() time.Time
	idGenerator func() (string, error)
}

// NewService builds a credential service over store.
func NewService(store UserStore, options Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("user store is required")
	}
	cost := options.Cost
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Service{
		store:   store,
		cost:    cost,
		uniform: options.UniformLoginErrors,
		clock:   time.Now,
	}, nil
}

// Register creates an account and returns its public identity.
func (s *Service) Register(ctx context.Context, email, password, name string) (user.Identity, error) {
	if strings.TrimSpace(password) == "" {
		return user.Identity{}, ErrEmptyPassword
	}
	// Validate everything except the hash before paying for bcrypt.
	input, err := user.NormalizeCreateUserInput(user.CreateUserInput{
		Email:        email,
		Name:         name,
		PasswordHash: "pending",
	})
	if err != nil {
		return user.Identity{}, err
	}

	if _, err := s.store.GetUserByEmail(ctx, input.Email); err == nil {
		return user.Identity{}, ErrEmailTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return user.Identity{}, fmt.Errorf("lookup user by email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return user.Identity{}, ErrPasswordTooLong
		}
		return user.Identity{}, fmt.Errorf("hash password: %w", err)
	}
	input.PasswordHash = string(hash)

	created, err := user.CreateUser(input, s.clock, s.idGenerator)
	if err != nil {
		return user.Identity{}, err
	}
	if err := s.store.PutUser(ctx, created); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return user.Identity{}, ErrEmailTaken
		}
		return user.Identity{}, fmt.Errorf("put user: %w", err)
	}
	return created.Identity(), nil
}

// Verify checks an email/password pair and returns the matching identity.
func (s *Service) Verify(ctx context.Context, email, password string) (user.Identity, error) {
	normalized := user.NormalizeEmail(email)
	if normalized == "" {
		return user.Identity{}, user.ErrEmptyEmail
	}
	if strings.TrimSpace(password) == "" {
		return user.Identity{}, ErrEmptyPassword
	}

	record, err := s.store.GetUserByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			if s.uniform {
				return user.Identity{}, ErrInvalidCredentials
			}
			return user.Identity{}, ErrUserNotFound
		}
		return user.Identity{}, fmt.Errorf("lookup user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(record.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return user.Identity{}, ErrInvalidCredentials
		}
		return user.Identity{}, fmt.Errorf("compare password: %w", err)
	}
	return record.Identity(), nil
}

// Lookup returns the identity for a user id.
func (s *Service) Lookup(ctx context.Context, userID string) (user.Identity, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return user.Identity{}, ErrUserNotFound
	}
	record, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return user.Identity{}, ErrUserNotFound
		}
		return user.Identity{}, fmt.Errorf("get user: %w", err)
	}
	return record.Identity(), nil
}
