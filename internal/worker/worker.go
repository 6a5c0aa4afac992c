// Package worker provides async assessment processing off the event bus.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/leadfactory/leadscore/internal/domain"
	"github.com/leadfactory/leadscore/internal/scoring"
)

// Worker consumes completed assessments from the EventBus and scores
// them through the facade, so the upstream assessment pipeline never
// calls the HTTP API directly.
type Worker struct {
	bus    domain.EventBus
	facade *scoring.Facade

	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a new async scoring worker.
func NewWorker(bus domain.EventBus, facade *scoring.Facade) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		facade: facade,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to the assessment-completed topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicAssessmentCompleted, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("scoring worker started", "topic", domain.TopicAssessmentCompleted)
	return nil
}

// Stop cancels all subscriptions.
func (w *Worker) Stop() {
	w.cancel()
	for _, sub := range w.subscriptions {
		_ = sub.Unsubscribe()
	}
	w.subscriptions = nil
	slog.Info("scoring worker stopped")
}

// handleMessage scores one inbound assessment.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var assessment domain.Assessment
	if err := json.Unmarshal(msg.Payload, &assessment); err != nil {
		slog.Error("failed to parse assessment message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	result, err := w.facade.Score(ctx, &assessment)
	if err != nil {
		slog.Error("async scoring failed",
			"message_id", msg.ID,
			"business_id", assessment.BusinessID,
			"error", err,
		)
		return err
	}

	slog.Debug("assessment scored",
		"business_id", result.BusinessID,
		"score", result.OverallScore,
		"tier", result.Tier,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}
