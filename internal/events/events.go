package events

import (
	"context"
	"time"
)

// Topic names.
const (
	TopicUserRegistered     = "user.registered"
	TopicProviderRegistered = "provider.registered"
	TopicReviewAdded        = "review.added"
)

// Topics lists every topic this service produces.
func Topics() []string {
	return []string{TopicUserRegistered, TopicProviderRegistered, TopicReviewAdded}
}

// Publisher delivers an event to a topic. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) error { return nil }

// UserRegisteredEvent is published to user.registered.
type UserRegisteredEvent struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

// ProviderRegisteredEvent is published to provider.registered.
type ProviderRegisteredEvent struct {
	ProviderID      string    `json:"provider_id"`
	Email           string    `json:"email"`
	ServiceCategory string    `json:"service_category"`
	RegisteredAt    time.Time `json:"registered_at"`
}

// ReviewAddedEvent is published to review.added and pushed to live feed
// subscribers of the provider.
type ReviewAddedEvent struct {
	ProviderID    string    `json:"provider_id"`
	ReviewID      string    `json:"review_id"`
	UserName      string    `json:"user_name"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"created_at"`
	AverageRating float64   `json:"average_rating"`
	ReviewCount   int       `json:"review_count"`
}
