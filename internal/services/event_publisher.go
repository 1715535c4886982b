package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventChannel is the Redis channel kept-insight events are published on.
const EventChannel = "curiosity:events"

// InsightEvent announces a kept insight to other processes (the
// conversation layer, dashboards) via Redis pub/sub.
type InsightEvent struct {
	Type         string  `json:"type"`
	Tangent      string  `json:"tangent"`
	QualityScore float64 `json:"quality_score"`
	InstanceID   string  `json:"instance_id"`
	Timestamp    string  `json:"timestamp"`
}

// EventPublisher publishes insight events over Redis. Publishing is best
// effort: failures are logged and never propagate.
type EventPublisher struct {
	client     *redis.Client
	instanceID string
}

// NewEventPublisher connects to Redis and returns a publisher.
func NewEventPublisher(redisURL string) (*EventPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = 5
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("✅ Redis connection established")

	return &EventPublisher{
		client:     client,
		instanceID: uuid.New().String(),
	}, nil
}

// PublishInsightKept announces a kept insight on the event channel.
func (p *EventPublisher) PublishInsightKept(ctx context.Context, tangent string, qualityScore float64) {
	event := InsightEvent{
		Type:         "insight_kept",
		Tangent:      tangent,
		QualityScore: qualityScore,
		InstanceID:   p.instanceID,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("⚠️ [PUBSUB] Failed to marshal insight event: %v", err)
		return
	}

	if err := p.client.Publish(ctx, EventChannel, payload).Err(); err != nil {
		log.Printf("⚠️ [PUBSUB] Failed to publish insight event: %v", err)
	}
}

// Close closes the Redis connection.
func (p *EventPublisher) Close() error {
	return p.client.Close()
}
