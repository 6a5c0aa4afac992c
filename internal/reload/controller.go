// Package reload owns the rule-file reload lifecycle: it reads and
// validates candidate documents and atomically publishes the result to
// the engine, retaining the last-good rule set on any failure.
package reload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/leadfactory/leadscore/internal/domain"
	"github.com/leadfactory/leadscore/internal/rules"
)

// Controller states. The machine is STABLE -> VALIDATING -> STABLE: a
// candidate either replaces the active set or is rejected with the
// previous set untouched; no intermediate state is ever observable by
// scorers.
const (
	StateStable     = "stable"
	StateValidating = "validating"
)

// Reload triggers recorded in the audit trail.
const (
	TriggerStartup  = "startup"
	TriggerExplicit = "explicit"
	TriggerWatch    = "watch"
)

// ErrReloadTimeout marks a reload attempt that exceeded the configured
// validation deadline. Treated exactly like a validation failure.
var ErrReloadTimeout = errors.New("reload timed out")

// Controller serializes reloads of the rule file and publishes
// validated rule sets to the engine. Only the controller writes the
// engine's active pointer; score() readers never block on a reload
// because no lock is held across the read+validate sequence that a
// reader would also need.
type Controller struct {
	path    string
	engine  *rules.Engine
	repo    domain.Repository // optional, audit trail
	bus     domain.EventBus   // optional, reload announcements
	timeout time.Duration

	// mu serializes reload attempts (single-writer discipline).
	mu    sync.Mutex
	state atomic.Value // string, StateStable or StateValidating
}

// NewController creates a reload controller for the given rule file.
// repo and bus may be nil; audit and announcements are then skipped.
func NewController(path string, engine *rules.Engine, repo domain.Repository, bus domain.EventBus, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &Controller{
		path:    path,
		engine:  engine,
		repo:    repo,
		bus:     bus,
		timeout: timeout,
	}
	c.state.Store(StateStable)
	return c
}

// State returns the current controller state.
func (c *Controller) State() string {
	return c.state.Load().(string)
}

// Reload re-reads the rule source, validates it, and on success
// publishes it as the new active rule set. On failure the previous rule
// set stays in effect and every violated invariant is returned and
// logged. Explicit reloads always re-validate, even for byte-identical
// content; that makes the operation idempotent by construction.
func (c *Controller) Reload(ctx context.Context) domain.ReloadOutcome {
	return c.reload(ctx, TriggerExplicit, false)
}

// Load performs the initial load at process startup. Same path as
// Reload, recorded under the startup trigger.
func (c *Controller) Load(ctx context.Context) domain.ReloadOutcome {
	return c.reload(ctx, TriggerStartup, false)
}

func (c *Controller) reload(ctx context.Context, trigger string, skipUnchanged bool) domain.ReloadOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	reloadAttempts.WithLabelValues(trigger).Inc()

	c.state.Store(StateValidating)
	defer c.state.Store(StateStable)

	candidate, raw, verrs := c.validateBounded(ctx)

	if len(verrs) > 0 {
		outcome := domain.ReloadOutcome{
			Success:      false,
			Errors:       verrs,
			RulesVersion: c.engine.ActiveVersion(),
			DurationMs:   time.Since(start).Milliseconds(),
		}
		for _, e := range verrs {
			slog.Error("rule reload rejected",
				"trigger", trigger,
				"rule", e.Rule,
				"tier", e.Tier,
				"field", e.Field,
				"reason", e.Message,
			)
		}
		reloadFailures.WithLabelValues(trigger).Inc()
		c.record(ctx, trigger, checksumOf(raw), outcome)
		c.announce(ctx, domain.TopicRulesRejected, outcome)
		return outcome
	}

	if skipUnchanged && candidate.SourceChecksum == c.engine.ActiveVersion() {
		return domain.ReloadOutcome{
			Success:      true,
			Unchanged:    true,
			RulesVersion: candidate.SourceChecksum,
			DurationMs:   time.Since(start).Milliseconds(),
		}
	}

	// Single pointer swap: in-flight score() calls finish against the
	// old set; calls starting after this line observe the new one.
	c.engine.Publish(candidate)

	rulesLoadedAt.Set(float64(candidate.LoadedAt.Unix()))
	activeRules.Set(float64(len(candidate.Rules)))
	reloadSuccesses.WithLabelValues(trigger).Inc()

	outcome := domain.ReloadOutcome{
		Success:      true,
		RulesVersion: candidate.SourceChecksum,
		DurationMs:   time.Since(start).Milliseconds(),
	}

	slog.Info("rule set published",
		"trigger", trigger,
		"rules_version", candidate.SourceChecksum,
		"rules_count", len(candidate.Rules),
		"tiers_count", len(candidate.Tiers),
		"duration_ms", outcome.DurationMs,
	)

	c.record(ctx, trigger, candidate.SourceChecksum, outcome)
	c.announce(ctx, domain.TopicRulesReloaded, outcome)
	return outcome
}

type validateResult struct {
	ruleSet *domain.ActiveRuleSet
	raw     []byte
	errs    []domain.ValidationError
}

// validateBounded runs read+validate under the configured deadline so a
// pathological document cannot hang reload; a timeout is reported as a
// validation failure and the previous rule set is retained.
func (c *Controller) validateBounded(ctx context.Context) (*domain.ActiveRuleSet, []byte, []domain.ValidationError) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resCh := make(chan validateResult, 1)
	go func() {
		raw, err := os.ReadFile(c.path)
		if err != nil {
			resCh <- validateResult{errs: []domain.ValidationError{{
				Field:   "document",
				Message: "cannot read rule source: " + err.Error(),
			}}}
			return
		}
		rs, errs := rules.Validate(raw)
		resCh <- validateResult{ruleSet: rs, raw: raw, errs: errs}
	}()

	select {
	case res := <-resCh:
		return res.ruleSet, res.raw, res.errs
	case <-ctx.Done():
		return nil, nil, []domain.ValidationError{{
			Field:   "document",
			Message: ErrReloadTimeout.Error() + ": " + ctx.Err().Error(),
		}}
	}
}

// record persists the reload attempt to the audit trail, best-effort.
func (c *Controller) record(ctx context.Context, trigger, checksum string, outcome domain.ReloadOutcome) {
	if c.repo == nil {
		return
	}
	audit := &domain.ReloadAudit{
		ID:             uuid.New().String(),
		SourceChecksum: checksum,
		Success:        outcome.Success,
		Errors:         outcome.Errors,
		Trigger:        trigger,
		AttemptedAt:    time.Now().UTC(),
		DurationMs:     outcome.DurationMs,
	}
	if err := c.repo.SaveReloadAudit(ctx, audit); err != nil {
		slog.Error("failed to save reload audit", "error", err)
	}
}

// announce publishes the outcome on the event bus, best-effort.
func (c *Controller) announce(ctx context.Context, topic string, outcome domain.ReloadOutcome) {
	if c.bus == nil {
		return
	}
	payload, err := json.Marshal(outcome)
	if err != nil {
		return
	}
	if err := c.bus.Publish(ctx, topic, payload); err != nil {
		slog.Error("failed to publish reload event", "topic", topic, "error", err)
	}
}

func checksumOf(raw []byte) string {
	if raw == nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
