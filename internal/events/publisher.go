package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Channel carries committed stage transition events for real-time consumers.
const Channel = "EVENT_APPLICATION_TRANSITIONED"

// TransitionEvent describes a committed stage change on an application.
type TransitionEvent struct {
	Type          string `json:"type"`
	ApplicationID string `json:"applicationId"`
	JobID         string `json:"jobId"`
	EmployeeID    string `json:"employeeId"`
	Stage         string `json:"stage"`
	At            string `json:"at"`
}

// Publisher publishes transition events on Redis pub/sub. Publishing is
// best-effort; callers treat failures as non-fatal.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher connects to Redis and verifies connectivity.
func NewPublisher(ctx context.Context, redisURL string) (*Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Publisher{rdb: rdb}, nil
}

// Publish sends the event on the transition channel.
func (p *Publisher) Publish(ctx context.Context, event TransitionEvent) error {
	if p == nil || p.rdb == nil {
		return nil
	}
	if event.Type == "" {
		event.Type = Channel
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode transition event: %w", err)
	}
	return p.rdb.Publish(ctx, Channel, payload).Err()
}

// Close releases the underlying Redis connection.
func (p *Publisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}
