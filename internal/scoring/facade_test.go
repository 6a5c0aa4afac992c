package scoring

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leadfactory/leadscore/internal/bus"
	"github.com/leadfactory/leadscore/internal/cache"
	"github.com/leadfactory/leadscore/internal/domain"
	"github.com/leadfactory/leadscore/internal/reload"
	"github.com/leadfactory/leadscore/internal/rules"
)

const testDoc = `
version: "1"
rules:
  seo_low:
    weight: 3
    condition: {field: seo.organic_keywords, operator: "<", value: 10}
  slow_site:
    weight: 1
    condition: {field: performance.mobile_score, operator: "<", value: 50}
tiers:
  - {name: A, min: 70}
  - {name: B, min: 30}
  - {name: D, min: 0}
`

func newTestFacade(t *testing.T, opts ...Option) (*Facade, *rules.Engine) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(testDoc), 0644); err != nil {
		t.Fatalf("failed to write rule file: %v", err)
	}

	engine := rules.NewEngine()
	controller := reload.NewController(path, engine, nil, nil, 0)
	if outcome := controller.Load(context.Background()); !outcome.Success {
		t.Fatalf("rule load failed: %v", outcome.Errors)
	}

	return New(engine, controller, opts...), engine
}

func hotAssessment() *domain.Assessment {
	return &domain.Assessment{
		BusinessID: "biz-001",
		Metrics: map[string]any{
			"seo":         map[string]any{"organic_keywords": 2},
			"performance": map[string]any{"mobile_score": 30},
		},
	}
}

func TestFacade_Score(t *testing.T) {
	facade, _ := newTestFacade(t)
	ctx := context.Background()

	result, err := facade.Score(ctx, hotAssessment())
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if result.OverallScore != 100 {
		t.Errorf("expected score 100, got %v", result.OverallScore)
	}
	if result.Tier != "A" {
		t.Errorf("expected tier A, got %s", result.Tier)
	}
	if _, ok := result.QuickWin(); !ok {
		t.Error("expected a quick win for a fired rule set")
	}
}

func TestFacade_InvalidAssessment(t *testing.T) {
	facade, _ := newTestFacade(t)
	ctx := context.Background()

	if _, err := facade.Score(ctx, nil); err != ErrInvalidAssessment {
		t.Errorf("nil assessment: expected ErrInvalidAssessment, got %v", err)
	}
	if _, err := facade.Score(ctx, &domain.Assessment{}); err != ErrInvalidAssessment {
		t.Errorf("missing business id: expected ErrInvalidAssessment, got %v", err)
	}
}

func TestFacade_NoRuleSet(t *testing.T) {
	engine := rules.NewEngine()
	controller := reload.NewController("/nonexistent.yaml", engine, nil, nil, 0)
	facade := New(engine, controller)

	if _, err := facade.Score(context.Background(), hotAssessment()); err != rules.ErrNoRuleSet {
		t.Errorf("expected ErrNoRuleSet, got %v", err)
	}
	if facade.Ready() {
		t.Error("facade must not be ready without a rule set")
	}
}

func TestFacade_ScoreCache(t *testing.T) {
	lru := cache.NewLRUCache(100)
	facade, _ := newTestFacade(t, WithCache(lru, time.Minute))
	ctx := context.Background()

	first, err := facade.Score(ctx, hotAssessment())
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	// Identical assessment under the same rules version hits the cache
	// and returns the stored result, ID included.
	second, err := facade.Score(ctx, hotAssessment())
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected cached result %s, got %s", first.ID, second.ID)
	}

	// A different assessment misses.
	other := hotAssessment()
	other.BusinessID = "biz-002"
	third, err := facade.Score(ctx, other)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if third.ID == first.ID {
		t.Error("different assessment must not hit the cache")
	}
}

func TestFacade_PublishesScoredEvents(t *testing.T) {
	channelBus := bus.NewChannelBus(16)
	defer channelBus.Close()

	facade, _ := newTestFacade(t, WithEventBus(channelBus))
	ctx := context.Background()

	var mu sync.Mutex
	got := make(map[string]int)
	subscribe := func(topic string) {
		_, err := channelBus.Subscribe(ctx, topic, func(ctx context.Context, msg *domain.Message) error {
			mu.Lock()
			got[topic]++
			mu.Unlock()
			return nil
		})
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
	}
	subscribe(domain.TopicLeadScored)
	subscribe(domain.TopicLeadHot)

	if _, err := facade.Score(ctx, hotAssessment()); err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	// Bus delivery is async.
	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		scored, hot := got[domain.TopicLeadScored], got[domain.TopicLeadHot]
		mu.Unlock()
		if scored >= 1 && hot >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected scored and hot events, got %v", got)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestFacade_Reload(t *testing.T) {
	facade, engine := newTestFacade(t)

	outcome := facade.Reload(context.Background())
	if !outcome.Success {
		t.Fatalf("reload failed: %v", outcome.Errors)
	}
	if outcome.RulesVersion != engine.ActiveVersion() {
		t.Errorf("outcome version %q != engine version %q", outcome.RulesVersion, engine.ActiveVersion())
	}
	if facade.ActiveRuleSet() == nil {
		t.Error("expected an active rule set")
	}
}
