package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lakay-market/storefront/internal/validation"
)

// Service manages customer identity lifecycle.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Register creates a new customer and stores a hashed password.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	reg.Phone = strings.TrimSpace(reg.Phone)
	reg.Name = strings.TrimSpace(reg.Name)
	if err := validation.Struct(reg); err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.New().String(),
		Phone:        reg.Phone,
		Name:         reg.Name,
		Email:        strings.ToLower(strings.TrimSpace(reg.Email)),
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate verifies credentials and records the login time.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByPhone(ctx, strings.TrimSpace(creds.Phone))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return User{}, err
	}
	user.LastLogin = &now

	return user, nil
}

// Get returns the user with the given id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// ExtendUnionPlus adds period to the membership, starting from the current
// expiry when still active and from now otherwise.
func (s *Service) ExtendUnionPlus(ctx context.Context, userID string, period time.Duration) (time.Time, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	start := s.now().UTC()
	if user.HasUnionPlus(start) {
		start = *user.UnionPlusUntil
	}
	until := start.Add(period)
	if err := s.repo.UpdateUnionPlus(ctx, userID, until); err != nil {
		return time.Time{}, err
	}
	return until, nil
}
