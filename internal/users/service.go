package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"service-finder/internal/events"
	"service-finder/internal/store"
	"service-finder/pkg/apperr"
	"service-finder/pkg/jwt"
	"service-finder/pkg/logger"
	"service-finder/pkg/validation"
)

const publishTimeout = 5 * time.Second

// Store persists user documents.
type Store interface {
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// Service contains user business logic.
type Service struct {
	store      Store
	events     events.Publisher
	bcryptCost int
	log        zerolog.Logger
}

// NewService creates a user service backed by the given store.
func NewService(s Store, pub events.Publisher, bcryptCost int) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		store:      s,
		events:     pub,
		bcryptCost: bcryptCost,
		log:        logger.Component("users"),
	}
}

// Register creates a new customer account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	email := strings.TrimSpace(req.Email)
	if !validation.ValidateEmail(email) {
		return nil, apperr.Validation("a valid email is required")
	}
	if !validation.ValidatePassword(req.Password) {
		return nil, apperr.Validation("password is required and must be at most 72 bytes")
	}

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("User already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal("lookup user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	u := &User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("User already exists")
		}
		return nil, apperr.Internal("insert user", err)
	}

	s.log.Info().Str("user_id", u.ID).Msg("user registered")
	s.publish(events.TopicUserRegistered, u.ID, events.UserRegisteredEvent{
		UserID:       u.ID,
		Email:        u.Email,
		RegisteredAt: u.CreatedAt,
	})

	return &RegisterResponse{Message: "User registered successfully!"}, nil
}

// Login authenticates a user and returns a session token.
// A missing account and a wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	u, err := s.store.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.InvalidCredentials()
		}
		return nil, apperr.Internal("lookup user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, apperr.InvalidCredentials()
	}

	token, err := jwt.Generate(u.ID, u.Name, u.Email, jwt.RoleUser)
	if err != nil {
		return nil, apperr.Internal("sign token", err)
	}
	return &LoginResponse{
		Message: "Login successful!",
		User:    Identity{Name: u.Name, Email: u.Email},
		Token:   token,
	}, nil
}

// publish is fire-and-forget; a broker outage never fails the request.
func (s *Service) publish(topic, key string, ev any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.events.Publish(ctx, topic, key, ev); err != nil {
			s.log.Warn().Err(err).Str("topic", topic).Str("key", key).Msg("publish failed")
		}
	}()
}
