package providers

import (
	"context"
	"errors"
	"math"
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

const (
	maxUserNameLen = 200
	maxCommentLen  = 2000
	publishTimeout = 5 * time.Second
)

// Store persists provider documents.
type Store interface {
	Create(ctx context.Context, p *Provider) error
	FindByEmail(ctx context.Context, email string) (*Provider, error)
	FindByID(ctx context.Context, id string) (*Provider, error)
	// List returns every provider, or only those in category when it is non-empty.
	List(ctx context.Context, category Category) ([]*Provider, error)
	// AppendReview atomically appends r and returns the updated document.
	AppendReview(ctx context.Context, id string, r Review) (*Provider, error)
}

// Service contains provider business logic.
type Service struct {
	store      Store
	events     events.Publisher
	bcryptCost int
	log        zerolog.Logger
	now        func() time.Time
}

// NewService creates a provider service.
func NewService(s Store, pub events.Publisher, bcryptCost int) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		store:      s,
		events:     pub,
		bcryptCost: bcryptCost,
		log:        logger.Component("providers"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a provider account with an empty review history.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Provider, error) {
	email := strings.TrimSpace(req.Email)
	name := strings.TrimSpace(req.Name)
	switch {
	case !validation.ValidateName(name):
		return nil, apperr.Validation("name must be between 2 and 200 characters")
	case !validation.ValidateEmail(email):
		return nil, apperr.Validation("a valid email is required")
	case !validation.ValidatePassword(req.Password):
		return nil, apperr.Validation("password is required and must be at most 72 bytes")
	case !req.ServiceCategory.Valid():
		return nil, apperr.Validation("serviceCategory must be one of: " + categoryList())
	}

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("A provider with this email already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Internal("lookup provider", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	p := &Provider{
		ID:               uuid.New().String(),
		Name:             name,
		Email:            email,
		PasswordHash:     string(hash),
		ServiceCategory:  req.ServiceCategory,
		Location:         strings.TrimSpace(req.Location),
		EmergencyService: req.EmergencyService,
		Profile: Profile{
			Description: strings.TrimSpace(req.Profile.Description),
			Phone:       strings.TrimSpace(req.Profile.Phone),
			Email:       email,
		},
		Reviews:   []Review{},
		CreatedAt: s.now(),
	}
	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("A provider with this email already exists")
		}
		return nil, apperr.Internal("insert provider", err)
	}

	s.log.Info().Str("provider_id", p.ID).Str("category", string(p.ServiceCategory)).Msg("provider registered")
	s.publish(events.TopicProviderRegistered, p.ID, events.ProviderRegisteredEvent{
		ProviderID:      p.ID,
		Email:           p.Email,
		ServiceCategory: string(p.ServiceCategory),
		RegisteredAt:    p.CreatedAt,
	})
	return p, nil
}

// Login authenticates a provider and returns its identity and a session token.
// A missing account and a wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	p, err := s.store.FindByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.InvalidCredentials()
		}
		return nil, apperr.Internal("lookup provider", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(req.Password)) != nil {
		return nil, apperr.InvalidCredentials()
	}

	token, err := jwt.Generate(p.ID, p.Name, p.Email, jwt.RoleProvider)
	if err != nil {
		return nil, apperr.Internal("sign token", err)
	}
	return &LoginResponse{
		Message:  "Provider login successful!",
		Provider: Identity{ID: p.ID, Name: p.Name, Email: p.Email},
		Token:    token,
	}, nil
}

// List returns all providers, filtered by exact category when one is given.
func (s *Service) List(ctx context.Context, category string) ([]*Provider, error) {
	ps, err := s.store.List(ctx, Category(strings.TrimSpace(category)))
	if err != nil {
		return nil, apperr.Internal("list providers", err)
	}
	return ps, nil
}

// GetByID fetches a provider by primary key.
func (s *Service) GetByID(ctx context.Context, id string) (*Provider, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Provider not found")
		}
		return nil, apperr.Internal("get provider", err)
	}
	return p, nil
}

// AddReview validates and appends a review, returning the updated provider.
func (s *Service) AddReview(ctx context.Context, providerID string, req ReviewRequest) (*Provider, error) {
	userName := strings.TrimSpace(req.UserName)
	comment := strings.TrimSpace(req.Comment)
	rating, whole := wholeRating(req.Rating)
	switch {
	case !whole || !validation.ValidateRating(rating):
		return nil, apperr.Validation("rating must be between 1 and 5")
	case !validation.ValidateText(userName, maxUserNameLen):
		return nil, apperr.Validation("userName is required and must be at most 200 characters")
	case !validation.ValidateText(comment, maxCommentLen):
		return nil, apperr.Validation("comment is required and must be at most 2000 characters")
	}

	review := Review{
		ID:        uuid.New().String(),
		UserName:  userName,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: s.now(),
	}
	p, err := s.store.AppendReview(ctx, providerID, review)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Provider not found")
		}
		return nil, apperr.Internal("append review", err)
	}

	s.log.Info().Str("provider_id", p.ID).Str("review_id", review.ID).Int("rating", review.Rating).Msg("review added")
	s.publish(events.TopicReviewAdded, p.ID, events.ReviewAddedEvent{
		ProviderID:    p.ID,
		ReviewID:      review.ID,
		UserName:      review.UserName,
		Rating:        review.Rating,
		Comment:       review.Comment,
		CreatedAt:     review.CreatedAt,
		AverageRating: AverageRating(p.Reviews),
		ReviewCount:   len(p.Reviews),
	})
	return p, nil
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

// wholeRating converts r to an int when it has no fractional part and is
// small enough to compare safely.
func wholeRating(r float64) (int, bool) {
	if r != math.Trunc(r) || math.Abs(r) > math.MaxInt32 {
		return 0, false
	}
	return int(r), true
}

func categoryList() string {
	names := make([]string, 0, len(Categories()))
	for _, c := range Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}
