package rules

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/leadfactory/leadscore/internal/domain"
)

// ErrNoRuleSet is returned by Score before any rule set has been
// published (e.g. the startup load failed and no fallback exists).
var ErrNoRuleSet = errors.New("no active rule set")

// Engine computes weighted scores against the currently published rule
// set. The active set is held behind an atomic pointer: Score reads it
// once without locking, and Publish swaps it wholesale, so concurrent
// readers always observe a fully consistent (old or new, never mixed)
// rule set.
type Engine struct {
	active atomic.Pointer[domain.ActiveRuleSet]
}

// NewEngine creates an engine with no rule set loaded. A rule set must
// be published (normally by the reload controller) before Score works.
func NewEngine() *Engine {
	return &Engine{}
}

// Publish atomically swaps the active rule set. Only the reload
// controller writes; in-flight Score calls complete against the set
// they started with.
func (e *Engine) Publish(rs *domain.ActiveRuleSet) {
	e.active.Store(rs)
}

// Active returns the currently published rule set, or nil.
func (e *Engine) Active() *domain.ActiveRuleSet {
	return e.active.Load()
}

// ActiveVersion returns the source checksum of the published rule set,
// or "" when none is loaded.
func (e *Engine) ActiveVersion() string {
	if rs := e.active.Load(); rs != nil {
		return rs.SourceChecksum
	}
	return ""
}

// Score evaluates every rule against the assessment and aggregates the
// weighted contributions into a 0-100 score with a resolved tier.
//
// Pure in-memory computation: no I/O on this path. For each rule the
// effective weight is the vertical override (re-normalized for that
// vertical) when the assessment's vertical matches, else the normalized
// default. A fired rule contributes weight x 100; everything else
// contributes zero but still appears in Contributions so callers can
// explain exactly why a lead scored as it did.
func (e *Engine) Score(a *domain.Assessment) (*domain.ScoreResult, error) {
	rs := e.active.Load()
	if rs == nil {
		return nil, ErrNoRuleSet
	}
	return ScoreWith(rs, a), nil
}

// ScoreWith scores against an explicit rule set, independent of the
// engine's published pointer. Used by the engine itself and by tests
// that need isolated rule sets.
func ScoreWith(rs *domain.ActiveRuleSet, a *domain.Assessment) *domain.ScoreResult {
	start := time.Now()

	contributions := make(map[string]float64, len(rs.Rules))
	var total float64

	for _, rule := range rs.Rules {
		weight := rs.EffectiveWeight(rule.Name, a.Vertical)

		var points float64
		if EvaluateCondition(rule.Condition, a) {
			points = weight * 100
		}
		contributions[rule.Name] = points
		total += points
	}

	// Floating error on a degenerate document could overshoot slightly.
	total = clamp(total, 0, 100)

	tier := rs.ResolveTier(total)

	return &domain.ScoreResult{
		ID:            uuid.New().String(),
		BusinessID:    a.BusinessID,
		Vertical:      a.Vertical,
		OverallScore:  total,
		Tier:          tier.Name,
		Contributions: contributions,
		RulesVersion:  rs.SourceChecksum,
		Timestamp:     time.Now().UTC(),
		ProcessMs:     time.Since(start).Milliseconds(),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
