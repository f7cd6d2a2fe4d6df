package events

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher feeds durable mutation events onto a Kafka topic for downstream
// consumers (analytics, moderation). Delivery is fire-and-forget: a broker
// outage never fails the triggering request.
type Publisher struct {
	writer *kafka.Writer
}

type Config struct {
	Brokers string
	Topic   string
}

func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		Brokers: strings.TrimSpace(os.Getenv("KAFKA_BROKERS")),
		Topic:   strings.TrimSpace(os.Getenv("KAFKA_TOPIC")),
	}
	if cfg.Brokers == "" {
		return Config{}, errors.New("missing required kafka env: KAFKA_BROKERS")
	}
	if cfg.Topic == "" {
		cfg.Topic = "social.events"
	}
	return cfg, nil
}

func NewPublisher(cfg Config) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(cfg.Brokers, ",")...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			Async:        true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					log.Printf("kafka publish failed (%d messages): %v", len(messages), err)
				}
			},
		},
	}
}

// Envelope is the wire shape of one published event.
type Envelope struct {
	Event      string      `json:"event"`
	ActorID    uint        `json:"actor_id"`
	Recipients []uint      `json:"recipients,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
	At         time.Time   `json:"at"`
}

func (p *Publisher) Publish(ctx context.Context, env Envelope) {
	if p == nil {
		return
	}
	env.At = time.Now().UTC()
	value, err := json.Marshal(env)
	if err != nil {
		log.Printf("kafka envelope marshal failed: %v", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(env.ActorID), 10)),
		Value: value,
	}
	// Async writer: WriteMessages only queues; errors surface via Completion.
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Printf("kafka enqueue failed: %v", err)
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
