package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestWriterReusedPerTopic(t *testing.T) {
	c := NewClient([]string{"localhost:9092"})
	a := c.writer("review.added")
	b := c.writer("review.added")
	other := c.writer("user.registered")

	assert.Same(t, a, b)
	assert.NotSame(t, a, other)
	require.NoError(t, c.Close())
	assert.Empty(t, c.writers)
}

func TestPublish_RejectsUnencodableValue(t *testing.T) {
	c := NewClient([]string{"localhost:9092"})
	err := c.Publish(context.Background(), "review.added", "k", make(chan int))
	assert.Error(t, err)
}

func TestReaderConfig_StartOffset(t *testing.T) {
	c := NewClient([]string{"k1:9092", "k2:9092"})
	cfg := c.readerConfig("review.added", "review-feed-1", LastOffset)

	assert.Equal(t, "review.added", cfg.Topic)
	assert.Equal(t, "review-feed-1", cfg.GroupID)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.Equal(t, kafkago.LastOffset, cfg.StartOffset)
	assert.NoError(t, cfg.Validate())
}

func TestEnsureTopics_NoBrokers(t *testing.T) {
	c := NewClient(nil)
	assert.Error(t, c.EnsureTopics(context.Background(), "t"))
}
