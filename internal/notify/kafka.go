package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/segmentio/kafka-go"
)

// Event names, used as the Kafka message key.
const (
	EventPasswordReset = "account.password_reset"
	EventPostCommented = "post.commented"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes notices to a Kafka topic for the mail service.
type KafkaNotifier struct {
	writer messageWriter
	clock  clockwork.Clock
}

// NewKafkaNotifier creates a synchronous producer for topic on brokers.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return newKafkaNotifier(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: 10 * time.Second,
	}, clockwork.NewRealClock())
}

func newKafkaNotifier(w messageWriter, clock clockwork.Clock) *KafkaNotifier {
	return &KafkaNotifier{writer: w, clock: clock}
}

func (n *KafkaNotifier) NotifyPasswordReset(ctx context.Context, notice ResetNotice) error {
	return n.publish(ctx, EventPasswordReset, notice)
}

func (n *KafkaNotifier) NotifyComment(ctx context.Context, notice CommentNotice) error {
	return n.publish(ctx, EventPostCommented, notice)
}

func (n *KafkaNotifier) publish(ctx context.Context, event string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event),
		Value: payload,
		Time:  n.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
