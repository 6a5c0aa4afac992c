package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (in-process) or NATS (multi-service).
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// Standard topic names for the scoring pipeline.
const (
	// TopicAssessmentCompleted carries inbound assessments from the
	// upstream assessment pipeline for batch scoring.
	TopicAssessmentCompleted = "leadscore.assessment.completed"

	// TopicLeadScored carries every ScoreResult.
	TopicLeadScored = "leadscore.lead.scored"

	// TopicLeadHot carries top-tier leads for outreach prioritization.
	TopicLeadHot = "leadscore.lead.hot"

	// TopicRulesReloaded announces a successful rule set publish.
	TopicRulesReloaded = "leadscore.rules.reloaded"

	// TopicRulesRejected announces a rejected candidate document.
	TopicRulesRejected = "leadscore.rules.rejected"
)
