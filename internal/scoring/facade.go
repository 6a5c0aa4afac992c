// Package scoring provides the facade external collaborators depend on:
// score an assessment, trigger a reload, inspect the active rule set.
// It hides whether reload is file-watch-based or explicitly triggered.
package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/leadfactory/leadscore/internal/domain"
	"github.com/leadfactory/leadscore/internal/reload"
	"github.com/leadfactory/leadscore/internal/rules"
)

var tracer = otel.Tracer("leadscore-scoring")

var (
	scoresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leadscore_scores_total",
		Help: "Assessments scored, by resolved tier.",
	}, []string{"tier"})

	scoreCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leadscore_score_cache_hits_total",
		Help: "Score requests served from cache.",
	})
)

// ErrInvalidAssessment is returned for assessments the facade refuses
// to score (missing business ID).
var ErrInvalidAssessment = errors.New("assessment requires a business id")

// Facade is the public entry point for the scoring core. It owns the
// engine reference and injects the current rule set into every score,
// so tests can run isolated facades with distinct rule sets.
type Facade struct {
	engine     *rules.Engine
	controller *reload.Controller
	repo       domain.Repository // optional
	cache      domain.Cache      // optional
	bus        domain.EventBus   // optional
	cacheTTL   time.Duration
}

// Option configures optional facade collaborators.
type Option func(*Facade)

// WithRepository enables score persistence.
func WithRepository(repo domain.Repository) Option {
	return func(f *Facade) { f.repo = repo }
}

// WithCache enables score caching.
func WithCache(cache domain.Cache, ttl time.Duration) Option {
	return func(f *Facade) {
		f.cache = cache
		f.cacheTTL = ttl
	}
}

// WithEventBus enables scored-lead events.
func WithEventBus(bus domain.EventBus) Option {
	return func(f *Facade) { f.bus = bus }
}

// New creates a scoring facade around an engine and its reload
// controller.
func New(engine *rules.Engine, controller *reload.Controller, opts ...Option) *Facade {
	f := &Facade{
		engine:     engine,
		controller: controller,
		cacheTTL:   5 * time.Minute,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Score computes a ScoreResult for one assessment using the currently
// active rule set. Safe for concurrent use; the only synchronization is
// the engine's atomic pointer read.
func (f *Facade) Score(ctx context.Context, a *domain.Assessment) (*domain.ScoreResult, error) {
	ctx, span := tracer.Start(ctx, "facade.Score")
	defer span.End()

	if a == nil || a.BusinessID == "" {
		return nil, ErrInvalidAssessment
	}

	span.SetAttributes(
		attribute.String("business.id", a.BusinessID),
		attribute.String("business.vertical", a.Vertical),
	)

	rulesVersion := f.engine.ActiveVersion()
	checksum := a.Checksum()

	if f.cache != nil && rulesVersion != "" && checksum != "" {
		if cached, err := f.cache.GetScore(ctx, rulesVersion, checksum); err == nil && cached != nil {
			scoreCacheHits.Inc()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		}
	}

	result, err := f.engine.Score(a)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Float64("score.overall", result.OverallScore),
		attribute.String("score.tier", result.Tier),
	)
	scoresTotal.WithLabelValues(result.Tier).Inc()

	if f.cache != nil && checksum != "" {
		if err := f.cache.SetScore(ctx, result.RulesVersion, checksum, result, f.cacheTTL); err != nil {
			slog.Warn("failed to cache score", "business_id", a.BusinessID, "error", err)
		}
	}

	if f.repo != nil {
		if err := f.repo.SaveScoreResult(ctx, result); err != nil {
			slog.Error("failed to save score result", "business_id", a.BusinessID, "error", err)
		}
	}

	f.publishScored(ctx, result)

	return result, nil
}

// Reload delegates to the hot-reload controller.
func (f *Facade) Reload(ctx context.Context) domain.ReloadOutcome {
	return f.controller.Reload(ctx)
}

// ActiveRuleSet exposes the published rule set for admin/introspection
// surfaces. May be nil before the first successful load.
func (f *Facade) ActiveRuleSet() *domain.ActiveRuleSet {
	return f.engine.Active()
}

// Ready reports whether a validated rule set is loaded.
func (f *Facade) Ready() bool {
	return f.engine.Active() != nil
}

func (f *Facade) publishScored(ctx context.Context, result *domain.ScoreResult) {
	if f.bus == nil {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return
	}

	if err := f.bus.Publish(ctx, domain.TopicLeadScored, payload); err != nil {
		slog.Error("failed to publish scored lead", "business_id", result.BusinessID, "error", err)
	}

	// Top-tier leads also go to the hot-lead topic for outreach.
	if rs := f.engine.Active(); rs != nil && len(rs.Tiers) > 0 && result.Tier == rs.Tiers[0].Name {
		if err := f.bus.Publish(ctx, domain.TopicLeadHot, payload); err != nil {
			slog.Error("failed to publish hot lead", "business_id", result.BusinessID, "error", err)
		}
	}
}
