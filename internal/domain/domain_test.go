package domain

import (
	"testing"
)

func TestAssessment_Field(t *testing.T) {
	a := &Assessment{
		BusinessID: "biz-001",
		Metrics: map[string]any{
			"seo": map[string]any{
				"organic_keywords": 3,
				"nested": map[string]any{
					"depth": "three",
				},
			},
			"flag": true,
		},
	}

	tests := []struct {
		path        string
		wantPresent bool
		want        any
	}{
		{"seo.organic_keywords", true, 3},
		{"seo.nested.depth", true, "three"},
		{"flag", true, true},
		{"seo.missing", false, nil},
		{"missing.path", false, nil},
		{"seo.organic_keywords.deeper", false, nil}, // scalar intermediate
		{"", false, nil},
	}

	for _, tt := range tests {
		got, present := a.Field(tt.path)
		if present != tt.wantPresent {
			t.Errorf("Field(%q) present = %v, want %v", tt.path, present, tt.wantPresent)
			continue
		}
		if present && got != tt.want {
			t.Errorf("Field(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	t.Run("NilAssessment", func(t *testing.T) {
		var nilA *Assessment
		if _, present := nilA.Field("a.b"); present {
			t.Error("nil assessment should resolve nothing")
		}
	})
}

func TestAssessment_Checksum(t *testing.T) {
	a := &Assessment{
		BusinessID: "biz-001",
		Metrics:    map[string]any{"seo": map[string]any{"organic_keywords": 3}},
	}
	b := &Assessment{
		BusinessID: "biz-001",
		Metrics:    map[string]any{"seo": map[string]any{"organic_keywords": 3}},
	}
	c := &Assessment{
		BusinessID: "biz-002",
		Metrics:    map[string]any{"seo": map[string]any{"organic_keywords": 3}},
	}

	if a.Checksum() == "" {
		t.Fatal("expected a checksum")
	}
	if a.Checksum() != b.Checksum() {
		t.Error("identical assessments must share a checksum")
	}
	if a.Checksum() == c.Checksum() {
		t.Error("different assessments must not share a checksum")
	}
}

func TestScoreResult_QuickWin(t *testing.T) {
	t.Run("HighestContribution", func(t *testing.T) {
		r := &ScoreResult{Contributions: map[string]float64{
			"a": 10,
			"b": 40,
			"c": 25,
		}}
		win, ok := r.QuickWin()
		if !ok || win != "b" {
			t.Errorf("QuickWin = %q, %v; want b, true", win, ok)
		}
	})

	t.Run("TieBreaksByName", func(t *testing.T) {
		r := &ScoreResult{Contributions: map[string]float64{
			"zeta":  30,
			"alpha": 30,
		}}
		win, _ := r.QuickWin()
		if win != "alpha" {
			t.Errorf("tie should break alphabetically, got %q", win)
		}
	})

	t.Run("NothingFired", func(t *testing.T) {
		r := &ScoreResult{Contributions: map[string]float64{"a": 0, "b": 0}}
		if _, ok := r.QuickWin(); ok {
			t.Error("expected no quick win when nothing fired")
		}
	})
}

func TestActiveRuleSet_EffectiveWeight(t *testing.T) {
	rs := &ActiveRuleSet{
		NormalizedWeights: map[string]float64{"r1": 0.75, "r2": 0.25},
		VerticalWeights: map[string]map[string]float64{
			"restaurant": {"r1": 0.5, "r2": 0.5},
		},
	}

	if w := rs.EffectiveWeight("r1", ""); w != 0.75 {
		t.Errorf("no vertical: expected 0.75, got %v", w)
	}
	if w := rs.EffectiveWeight("r1", "restaurant"); w != 0.5 {
		t.Errorf("override vertical: expected 0.5, got %v", w)
	}
	if w := rs.EffectiveWeight("r1", "plumber"); w != 0.75 {
		t.Errorf("unknown vertical falls back to default: expected 0.75, got %v", w)
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		err  ValidationError
		want string
	}{
		{ValidationError{Rule: "seo_low", Message: "bad weight"}, "rule seo_low: bad weight"},
		{ValidationError{Tier: "A", Message: "bad min"}, "tier A: bad min"},
		{ValidationError{Field: "tiers", Message: "empty"}, "tiers: empty"},
		{ValidationError{Message: "plain"}, "plain"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestScoreCacheKey(t *testing.T) {
	if got := ScoreCacheKey("v1", "c1"); got != "score:v1:c1" {
		t.Errorf("ScoreCacheKey = %q", got)
	}
}
