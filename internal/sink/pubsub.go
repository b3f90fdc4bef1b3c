package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/jobsift/jobsift/internal/scraper"
)

// PubSubConfig identifies the target Pub/Sub topic.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// PubSub publishes each record as one JSON message.
type PubSub struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSub connects to Pub/Sub and binds the configured topic.
func NewPubSub(ctx context.Context, cfg PubSubConfig) (*PubSub, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("sink.pubsub.project_id is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("sink.pubsub.topic is required")
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("connect pubsub: %w", err)
	}
	return &PubSub{
		client: client,
		topic:  client.Topic(cfg.Topic),
	}, nil
}

// Append publishes the record and waits for the server ack.
func (s *PubSub) Append(ctx context.Context, record scraper.JobRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", record.JobID, err)
	}
	result := s.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"job_id": record.JobID,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish record %s: %w", record.JobID, err)
	}
	return nil
}

// Close stops the topic's publish goroutines and closes the client.
func (s *PubSub) Close() error {
	s.topic.Stop()
	return s.client.Close()
}
