package domain

import "time"

// Operator is the closed set of condition operators a rule may use.
type Operator string

const (
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpIsMissing    Operator = "is_missing"
	OpIsPresent    Operator = "is_present"
)

// KnownOperator reports whether op is one of the supported operators.
func KnownOperator(op Operator) bool {
	switch op {
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual,
		OpEqual, OpNotEqual, OpIsMissing, OpIsPresent:
		return true
	}
	return false
}

// Condition is a single predicate over an assessment field.
// Value is unused for is_missing / is_present.
type Condition struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    any      `json:"value,omitempty" yaml:"value,omitempty"`
}

// Rule is one scoring factor: a named, weighted condition. Weight is the
// authored relative contribution before normalization; the validator
// computes normalized weights. Immutable once part of an ActiveRuleSet.
type Rule struct {
	Name        string    `json:"name" yaml:"-"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Weight      float64   `json:"weight" yaml:"weight"`
	Condition   Condition `json:"condition" yaml:"condition"`

	// VerticalOverrides maps a business vertical to a replacement raw
	// weight, applied wholesale before normalization when the
	// assessment's vertical matches. Overrides are never summed.
	VerticalOverrides map[string]float64 `json:"verticalOverrides,omitempty" yaml:"vertical_overrides,omitempty"`
}

// Tier is a named score bracket. Min is the inclusive lower bound.
type Tier struct {
	Name string  `json:"name" yaml:"name"`
	Min  float64 `json:"min" yaml:"min"`
}

// RuleDocument is the deserialized YAML rule file, before validation.
// Rules preserve the document's authoring order.
type RuleDocument struct {
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"-"`
	Tiers   []Tier `yaml:"tiers"`
}

// ActiveRuleSet is a validated, normalized rule document plus load
// metadata. Exactly one is live at any instant; reload replaces it
// wholesale via an atomic pointer swap, never mutates it in place.
type ActiveRuleSet struct {
	Version string
	Rules   []Rule
	Tiers   []Tier // sorted descending by Min, last is the catch-all

	// NormalizedWeights maps rule name to its normalized default weight
	// (sums to 1.0 across all rules).
	NormalizedWeights map[string]float64

	// VerticalWeights maps vertical -> rule name -> normalized weight
	// for every vertical that appears in any override. Each inner table
	// also sums to 1.0.
	VerticalWeights map[string]map[string]float64

	// SourceChecksum is the SHA-256 of the raw document bytes.
	SourceChecksum string

	LoadedAt time.Time
}

// EffectiveWeight returns the normalized weight of a rule for the given
// vertical, falling back to the default table when the vertical carries
// no overrides.
func (rs *ActiveRuleSet) EffectiveWeight(ruleName, vertical string) float64 {
	if vertical != "" {
		if table, ok := rs.VerticalWeights[vertical]; ok {
			return table[ruleName]
		}
	}
	return rs.NormalizedWeights[ruleName]
}

// ResolveTier returns the highest tier whose inclusive minimum is at or
// below score. Boundaries are inclusive on the lower bound: a score
// exactly at a tier cut-off earns that tier.
func (rs *ActiveRuleSet) ResolveTier(score float64) Tier {
	for _, t := range rs.Tiers {
		if score >= t.Min {
			return t
		}
	}
	// Tiers are validated to include a catch-all at the global minimum,
	// so this is only reachable on an empty set.
	if len(rs.Tiers) > 0 {
		return rs.Tiers[len(rs.Tiers)-1]
	}
	return Tier{}
}
