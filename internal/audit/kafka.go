package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// PublisherConfig configures the Kafka-backed audit publisher.
type PublisherConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
}

// Publisher publishes audit events to Kafka, one message per lifecycle
// event, keyed by job ID so that all events for one job land on the same
// partition and stay in order.
type Publisher struct {
	writer *kafka.Writer
	topic  string
}

// NewPublisher constructs a Publisher from cfg.
func NewPublisher(cfg PublisherConfig) *Publisher {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}

	requiredAcks := kafka.RequireOne
	switch cfg.RequiredAcks {
	case 0:
		requiredAcks = kafka.RequireNone
	case -1:
		requiredAcks = kafka.RequireAll
	}

	return &Publisher{
		topic: cfg.Topic,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			BatchSize:    batchSize,
			BatchTimeout: batchTimeout,
			RequiredAcks: requiredAcks,
		},
	}
}

// Publish writes event as a JSON-encoded Kafka message keyed by job ID.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.JobID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("audit: publish event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// CreateTopic idempotently creates the audit topic via a direct controller
// connection, mirroring the teacher's bootstrap step for its own topics.
func CreateTopic(ctx context.Context, brokers []string, topic string, partitions, replicationFactor int) error {
	if len(brokers) == 0 {
		return fmt.Errorf("audit: no brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("audit: dial broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("audit: find controller: %w", err)
	}

	controllerConn, err := kafka.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return fmt.Errorf("audit: dial controller: %w", err)
	}
	defer controllerConn.Close()

	return controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replicationFactor,
	})
}
