package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/forager/internal/models"
	"github.com/segmentio/kafka-go"
)

// DefaultTopic receives one message per newly harvested place.
const DefaultTopic = "places.discovered"

// Publisher announces places written by a run, so enrichment can pick up rows tagged
// models.TagAutoDiscovered without polling the table.
type Publisher interface {
	PublishDiscovered(ctx context.Context, places []models.Place) error
	Close() error
}

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DiscoveredEvent is the JSON value of a discovery message.
type DiscoveredEvent struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Latitude     float64   `json:"lat"`
	Longitude    float64   `json:"lng"`
	Tags         string    `json:"tags"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// KafkaPublisher writes discovery events keyed by place id.
type KafkaPublisher struct {
	writer MessageWriter
	log    *slog.Logger
	now    func() time.Time
}

// NewKafkaPublisher creates a publisher writing to topic on the given brokers.
func NewKafkaPublisher(brokers []string, topic string, log *slog.Logger) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	const batchTimeout = 50 * time.Millisecond

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: batchTimeout,
	}

	return NewKafkaPublisherWithWriter(writer, log)
}

// NewKafkaPublisherWithWriter allows injecting a custom writer.
func NewKafkaPublisherWithWriter(writer MessageWriter, log *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, log: log, now: time.Now}
}

// PublishDiscovered writes one message per place in a single call.
func (kp *KafkaPublisher) PublishDiscovered(ctx context.Context, places []models.Place) error {
	if len(places) == 0 {
		return nil
	}

	discoveredAt := kp.now().UTC()
	msgs := make([]kafka.Message, 0, len(places))
	for _, place := range places {
		value, err := json.Marshal(DiscoveredEvent{
			ID:           place.ID,
			Name:         place.Name,
			Latitude:     place.Latitude,
			Longitude:    place.Longitude,
			Tags:         place.Tags,
			DiscoveredAt: discoveredAt,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal discovery event for %s: %w", place.ID, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(place.ID), Value: value})
	}

	if err := kp.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish discovery events: %w", err)
	}

	kp.log.InfoContext(ctx, "Published discovery events", "count", len(msgs))
	return nil
}

// Close flushes pending messages and closes the writer.
func (kp *KafkaPublisher) Close() error {
	return kp.writer.Close()
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishDiscovered(context.Context, []models.Place) error { return nil }

func (NopPublisher) Close() error { return nil }
