package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"service-finder/pkg/logger"
)

const ensureAttempts = 20

// Start offsets for a consumer group that has no committed position yet.
const (
	FirstOffset = kafkago.FirstOffset
	LastOffset  = kafkago.LastOffset
)

// Client wraps Kafka operations. Writers are created per topic on first use
// and reused until Close.
type Client struct {
	brokers []string
	log     zerolog.Logger

	mu      sync.Mutex
	writers map[string]*kafkago.Writer
}

// NewClient returns a Client for the given brokers.
func NewClient(brokers []string) *Client {
	return &Client{
		brokers: brokers,
		log:     logger.Component("kafka"),
		writers: make(map[string]*kafkago.Writer),
	}
}

// EnsureTopics creates topics if they don't already exist (with retry).
func (c *Client) EnsureTopics(ctx context.Context, topics ...string) error {
	if len(c.brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}
	for attempt := 1; attempt <= ensureAttempts; attempt++ {
		conn, err := kafkago.DialContext(ctx, "tcp", c.brokers[0])
		if err != nil {
			c.log.Warn().Err(err).Int("attempt", attempt).Msg("kafka not ready")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
			continue
		}

		configs := make([]kafkago.TopicConfig, len(topics))
		for i, t := range topics {
			configs[i] = kafkago.TopicConfig{
				Topic:             t,
				NumPartitions:     3,
				ReplicationFactor: 1,
			}
		}

		err = conn.CreateTopics(configs...)
		_ = conn.Close()
		if err != nil {
			c.log.Debug().Err(err).Msg("create topics returned (may already exist)")
		}
		c.log.Info().Strs("topics", topics).Msg("kafka topics ensured")
		return nil
	}
	return fmt.Errorf("kafka: could not connect after %d attempts", ensureAttempts)
}

// Publish sends a JSON-serialised message to a topic.
func (c *Client) Publish(ctx context.Context, topic, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kafka: encode %s: %w", topic, err)
	}
	return c.writer(topic).WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: data,
	})
}

func (c *Client) writer(topic string) *kafkago.Writer {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.writers[topic]
	if !ok {
		w = &kafkago.Writer{
			Addr:                   kafkago.TCP(c.brokers...),
			Topic:                  topic,
			Balancer:               &kafkago.Hash{},
			AllowAutoTopicCreation: true,
		}
		c.writers[topic] = w
	}
	return w
}

// Subscribe starts a background goroutine that reads from a topic until ctx
// is cancelled. startOffset applies only when groupID has no committed
// offset. Handler errors are logged and the message is skipped.
func (c *Client) Subscribe(ctx context.Context, topic, groupID string, startOffset int64, handler func([]byte) error) {
	r := kafkago.NewReader(c.readerConfig(topic, groupID, startOffset))

	go func() {
		defer r.Close()
		for {
			msg, err := r.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log.Error().Err(err).Str("topic", topic).Msg("read failed")
				time.Sleep(time.Second)
				continue
			}
			if err := handler(msg.Value); err != nil {
				c.log.Error().Err(err).Str("topic", topic).Msg("handler failed")
			}
		}
	}()
}

func (c *Client) readerConfig(topic, groupID string, startOffset int64) kafkago.ReaderConfig {
	return kafkago.ReaderConfig{
		Brokers:     c.brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: startOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	}
}

// Close flushes and closes every writer.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for topic, w := range c.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close writer %s: %w", topic, err))
		}
		delete(c.writers, topic)
	}
	return errors.Join(errs...)
}
