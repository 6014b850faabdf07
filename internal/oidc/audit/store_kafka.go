package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaStore publishes audit events to a Kafka topic so downstream
// compliance consumers can replay them. ListByAccount is not supported on
// this sink; pair it with a queryable store when reads are needed.
type KafkaStore struct {
	client *kgo.Client
	topic  string
}

// NewKafkaStore connects to the brokers and ensures the topic exists.
func NewKafkaStore(ctx context.Context, brokers []string, topic string) (*KafkaStore, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("audit kafka: connect: %w", err)
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("audit kafka: ensure topic %s: %w", topic, err)
	}
	// Already-exists races are fine; anything else is surfaced.
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("audit kafka: ensure topic %s: %w", topic, resp.Err)
	}
	return &KafkaStore{client: client, topic: topic}, nil
}

// Append produces the event synchronously, keyed by account for per-account
// ordering.
func (s *KafkaStore) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit kafka: marshal: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.AccountID),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("audit kafka: produce: %w", err)
	}
	return nil
}

// ListByAccount is unsupported on the Kafka sink.
func (s *KafkaStore) ListByAccount(context.Context, string) ([]Event, error) {
	return nil, fmt.Errorf("audit kafka: listing is not supported on the kafka sink")
}

func (s *KafkaStore) Close() {
	s.client.Close()
}
