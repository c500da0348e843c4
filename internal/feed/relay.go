package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"service-finder/internal/events"
	"service-finder/pkg/kafka"
)

// Subscriber is the consuming side of the event bus.
type Subscriber interface {
	Subscribe(ctx context.Context, topic, groupID string, startOffset int64, handler func([]byte) error)
}

// Relay consumes review.added and broadcasts each event to the local hub.
// Every instance uses its own consumer group so all of them see every review.
// A new group starts at the end of the topic; history is never replayed.
type Relay struct {
	sub     Subscriber
	hub     *Hub
	groupID string
}

func NewRelay(sub Subscriber, hub *Hub) *Relay {
	return &Relay{sub: sub, hub: hub, groupID: "review-feed-" + uuid.NewString()}
}

// Start begins consuming in the background until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) {
	r.sub.Subscribe(ctx, events.TopicReviewAdded, r.groupID, kafka.LastOffset, r.handle)
}

func (r *Relay) handle(data []byte) error {
	var ev events.ReviewAddedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("decode review.added: %w", err)
	}
	r.hub.BroadcastReview(ev)
	return nil
}

// Fanout is a Publisher that delivers review.added straight to the hub before
// forwarding every event to Next. It is used when no broker is configured.
type Fanout struct {
	Hub  *Hub
	Next events.Publisher
}

func (f Fanout) Publish(ctx context.Context, topic, key string, value any) error {
	if ev, ok := value.(events.ReviewAddedEvent); ok && topic == events.TopicReviewAdded {
		f.Hub.BroadcastReview(ev)
	}
	if f.Next == nil {
		return nil
	}
	return f.Next.Publish(ctx, topic, key, value)
}
