package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/davidngn/go-order-system/internal/entity"
	"github.com/davidngn/go-order-system/internal/messaging"
)

// envelope wraps a domain event with metadata for consumers.
type envelope struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   entity.Event `json:"payload"`
	EmittedAt time.Time    `json:"emitted_at"`
}

type kafkaPublisher struct {
	brokers []string

	mu      sync.Mutex
	writers map[string]*kafkaGo.Writer
}

// NewPublisher creates a Kafka-backed event publisher. Writers are
// created lazily per topic and reused.
func NewPublisher(brokers []string) messaging.Publisher {
	return &kafkaPublisher{
		brokers: brokers,
		writers: make(map[string]*kafkaGo.Writer),
	}
}

func (k *kafkaPublisher) writer(topic string) *kafkaGo.Writer {
	k.mu.Lock()
	defer k.mu.Unlock()

	w, ok := k.writers[topic]
	if !ok {
		w = &kafkaGo.Writer{
			Addr:     kafkaGo.TCP(k.brokers...),
			Topic:    topic,
			Balancer: &kafkaGo.Hash{},
		}
		k.writers[topic] = w
	}
	return w
}

func (k *kafkaPublisher) PublishEvent(ctx context.Context, topic string, key string, event entity.Event) error {
	payload, err := json.Marshal(envelope{
		EventID:   uuid.NewString(),
		EventType: event.EventType(),
		Payload:   event,
		EmittedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
	}

	return k.writer(topic).WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte(key),
		Value: payload,
	})
}
