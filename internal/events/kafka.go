package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink forwards bus events to a Kafka topic, keyed by user id.
type KafkaSink struct {
	writer  MessageWriter
	timeout time.Duration
	logger  zerolog.Logger
}

// NewKafkaSink creates an asynchronous producer for topic on brokers.
func NewKafkaSink(brokers []string, topic string, logger zerolog.Logger) *KafkaSink {
	log := logger.With().Str("component", "kafka_sink").Str("topic", topic).Logger()
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		Async:                  true,
		AllowAutoTopicCreation: true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Error().Err(err).Int("messages", len(messages)).Msg("failed to deliver events")
			}
		},
	}
	return NewKafkaSinkWithWriter(w, log)
}

func NewKafkaSinkWithWriter(w MessageWriter, logger zerolog.Logger) *KafkaSink {
	return &KafkaSink{writer: w, timeout: 5 * time.Second, logger: logger}
}

type envelope struct {
	Type      string          `json:"type"`
	UserID    string          `json:"user_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Message converts an event into a Kafka message.
func Message(e Event) (kafka.Message, error) {
	value, err := json.Marshal(envelope{
		Type:      e.Type,
		UserID:    e.UserID,
		Payload:   json.RawMessage(e.Payload),
		CreatedAt: e.CreatedAt.UTC(),
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event %s: %w", e.Type, err)
	}
	return kafka.Message{
		Key:     []byte(e.UserID),
		Value:   value,
		Headers: []kafka.Header{{Key: "event-type", Value: []byte(e.Type)}},
		Time:    e.CreatedAt,
	}, nil
}

// Handle is an EventHandler that writes e to Kafka.
func (s *KafkaSink) Handle(e Event) error {
	msg, err := Message(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to send event to kafka: %w", err)
	}
	return nil
}

// Attach subscribes the sink to every event on bus.
func (s *KafkaSink) Attach(bus *EventBus) {
	bus.SubscribeAll(s.Handle)
}

func (s *KafkaSink) Close() error {
	if err := s.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}
