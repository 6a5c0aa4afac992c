package rules

import (
	"math"
	"strings"
	"testing"
)

const validDoc = `
version: "2025-08-28"
rules:
  seo_low_keywords:
    weight: 2.0
    condition:
      field: seo.organic_keywords
      operator: "<"
      value: 10
    vertical_overrides:
      restaurant: 1.0
  performance_slow:
    weight: 2.5
    condition:
      field: performance.mobile_score
      operator: "<"
      value: 50
  no_https:
    weight: 1.5
    condition:
      field: security.https
      operator: "=="
      value: false
  no_analytics:
    weight: 0.5
    condition:
      field: tech.analytics
      operator: is_missing
tiers:
  - {name: A, min: 80}
  - {name: B, min: 60}
  - {name: C, min: 40}
  - {name: D, min: 0}
`

func TestValidate_ValidDocument(t *testing.T) {
	rs, errs := Validate([]byte(validDoc))
	if len(errs) > 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if rs == nil {
		t.Fatal("expected a rule set")
	}

	if len(rs.Rules) != 4 {
		t.Errorf("expected 4 rules, got %d", len(rs.Rules))
	}
	if rs.SourceChecksum == "" {
		t.Error("expected a source checksum")
	}

	t.Run("PreservesRuleOrder", func(t *testing.T) {
		want := []string{"seo_low_keywords", "performance_slow", "no_https", "no_analytics"}
		for i, name := range want {
			if rs.Rules[i].Name != name {
				t.Errorf("rule %d: expected %s, got %s", i, name, rs.Rules[i].Name)
			}
		}
	})

	t.Run("NormalizedWeightsSumToOne", func(t *testing.T) {
		var sum float64
		for _, w := range rs.NormalizedWeights {
			if w < 0 {
				t.Errorf("negative normalized weight %v", w)
			}
			sum += w
		}
		if math.Abs(sum-1.0) > WeightTolerance {
			t.Errorf("normalized weights sum to %v, want 1.0", sum)
		}
	})

	t.Run("VerticalWeightsSumToOne", func(t *testing.T) {
		table, ok := rs.VerticalWeights["restaurant"]
		if !ok {
			t.Fatal("expected a restaurant weight table")
		}
		var sum float64
		for _, w := range table {
			sum += w
		}
		if math.Abs(sum-1.0) > WeightTolerance {
			t.Errorf("restaurant weights sum to %v, want 1.0", sum)
		}

		// Override replaces wholesale: restaurant raw total is
		// 1.0+2.5+1.5+0.5=5.5 and seo_low_keywords gets 1.0/5.5.
		want := 1.0 / 5.5
		if math.Abs(table["seo_low_keywords"]-want) > WeightTolerance {
			t.Errorf("seo_low_keywords restaurant weight = %v, want %v", table["seo_low_keywords"], want)
		}
	})
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	doc := `
version: "bad"
rules:
  negative_weight:
    weight: -1
    condition:
      field: a.b
      operator: "<"
      value: 5
  bad_operator:
    weight: 1
    condition:
      field: a.c
      operator: "~="
      value: 5
  missing_field:
    weight: 1
    condition:
      operator: is_present
tiers:
  - {name: A, min: 80}
  - {name: B, min: 90}
  - {name: C, min: 40}
`
	rs, errs := Validate([]byte(doc))
	if rs != nil {
		t.Fatal("expected rejection")
	}

	// One pass must report: negative weight, unknown operator, empty
	// field path, non-decreasing tier minimums, and missing catch-all.
	wants := []string{
		"weight must be a non-negative",
		"unknown operator",
		"field path must be a non-empty",
		"strictly decreasing",
		"catch-all",
	}
	for _, want := range wants {
		found := false
		for _, e := range errs {
			if strings.Contains(e.Message, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected an error containing %q, got %v", want, errs)
		}
	}
}

func TestValidate_RejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{
			"MalformedYAML",
			"rules: [unclosed",
			"invalid YAML",
		},
		{
			"EmptyRules",
			"rules: {}\ntiers:\n  - {name: A, min: 0}\n",
			"at least one rule is required",
		},
		{
			"NoTiers",
			"rules:\n  r:\n    weight: 1\n    condition: {field: a, operator: is_present}\n",
			"at least one tier is required",
		},
		{
			"ZeroSumWeights",
			"rules:\n  r:\n    weight: 0\n    condition: {field: a, operator: is_present}\ntiers:\n  - {name: A, min: 0}\n",
			"zero-sum weights",
		},
		{
			"ComparisonNeedsNumericValue",
			"rules:\n  r:\n    weight: 1\n    condition: {field: a, operator: \"<\", value: fast}\ntiers:\n  - {name: A, min: 0}\n",
			"requires a numeric value",
		},
		{
			"PresenceTakesNoValue",
			"rules:\n  r:\n    weight: 1\n    condition: {field: a, operator: is_missing, value: 1}\ntiers:\n  - {name: A, min: 0}\n",
			"takes no value",
		},
		{
			"EqualityNeedsValue",
			"rules:\n  r:\n    weight: 1\n    condition: {field: a, operator: \"==\"}\ntiers:\n  - {name: A, min: 0}\n",
			"requires a value",
		},
		{
			"TierMinOutOfRange",
			"rules:\n  r:\n    weight: 1\n    condition: {field: a, operator: is_present}\ntiers:\n  - {name: A, min: 120}\n  - {name: B, min: 0}\n",
			"within [0,100]",
		},
		{
			"DuplicateTierName",
			"rules:\n  r:\n    weight: 1\n    condition: {field: a, operator: is_present}\ntiers:\n  - {name: A, min: 50}\n  - {name: A, min: 0}\n",
			"duplicate tier name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, errs := Validate([]byte(tt.doc))
			if rs != nil {
				t.Fatal("expected rejection")
			}
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			found := false
			for _, e := range errs {
				if strings.Contains(e.Message, tt.wantMsg) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("expected an error containing %q, got %v", tt.wantMsg, errs)
			}
		})
	}
}

func TestValidate_ZeroSumVerticalOverride(t *testing.T) {
	doc := `
rules:
  only_rule:
    weight: 1
    condition: {field: a, operator: is_present}
    vertical_overrides:
      restaurant: 0
tiers:
  - {name: A, min: 0}
`
	rs, errs := Validate([]byte(doc))
	if rs != nil {
		t.Fatal("expected rejection")
	}
	found := false
	for _, e := range errs {
		if strings.Contains(e.Message, `vertical "restaurant"`) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a zero-sum vertical error, got %v", errs)
	}
}

func TestValidate_DuplicateRuleNames(t *testing.T) {
	// YAML mappings cannot express duplicate keys reliably, but the
	// structural check still guards programmatic documents.
	doc := `
rules:
  r1:
    weight: 1
    condition: {field: a, operator: is_present}
tiers:
  - {name: A, min: 0}
`
	rs, errs := Validate([]byte(doc))
	if len(errs) > 0 || rs == nil {
		t.Fatalf("baseline document should validate, got %v", errs)
	}
}
