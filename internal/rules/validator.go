package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/leadfactory/leadscore/internal/domain"
)

// WeightTolerance is the floating tolerance for normalized weight sums.
const WeightTolerance = 1e-6

// Validate parses and validates a raw rule document. On success it
// returns a normalized ActiveRuleSet whose default and per-vertical
// weight tables each sum to 1.0. On failure it returns the full list of
// violated invariants, never a single opaque error.
//
// Pure function: no I/O, no shared state.
func Validate(raw []byte) (*domain.ActiveRuleSet, []domain.ValidationError) {
	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, []domain.ValidationError{{Field: "document", Message: err.Error()}}
	}

	var errs []domain.ValidationError
	errs = append(errs, checkRules(doc.Rules)...)
	errs = append(errs, checkTiers(doc.Tiers)...)
	if len(errs) > 0 {
		return nil, errs
	}

	defaults, verticals, werrs := normalizeWeights(doc.Rules)
	if len(werrs) > 0 {
		return nil, werrs
	}

	sum := sha256.Sum256(raw)

	return &domain.ActiveRuleSet{
		Version:           doc.Version,
		Rules:             doc.Rules,
		Tiers:             doc.Tiers,
		NormalizedWeights: defaults,
		VerticalWeights:   verticals,
		SourceChecksum:    hex.EncodeToString(sum[:]),
		LoadedAt:          time.Now().UTC(),
	}, nil
}

// checkRules performs the structural pass over rule definitions,
// collecting every violation before returning.
func checkRules(ruleList []domain.Rule) []domain.ValidationError {
	var errs []domain.ValidationError

	if len(ruleList) == 0 {
		return []domain.ValidationError{{Field: "rules", Message: "at least one rule is required"}}
	}

	seen := make(map[string]bool, len(ruleList))
	for _, r := range ruleList {
		if seen[r.Name] {
			errs = append(errs, domain.ValidationError{
				Rule: r.Name, Field: "rules", Message: "duplicate rule name",
			})
			continue
		}
		seen[r.Name] = true

		if r.Weight < 0 || math.IsNaN(r.Weight) || math.IsInf(r.Weight, 0) {
			errs = append(errs, domain.ValidationError{
				Rule: r.Name, Field: fmt.Sprintf("rules.%s.weight", r.Name),
				Message: fmt.Sprintf("weight must be a non-negative finite number, got %v", r.Weight),
			})
		}

		errs = append(errs, checkCondition(r)...)

		for vertical, w := range r.VerticalOverrides {
			if vertical == "" {
				errs = append(errs, domain.ValidationError{
					Rule: r.Name, Field: fmt.Sprintf("rules.%s.vertical_overrides", r.Name),
					Message: "vertical name must be non-empty",
				})
			}
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				errs = append(errs, domain.ValidationError{
					Rule: r.Name, Field: fmt.Sprintf("rules.%s.vertical_overrides.%s", r.Name, vertical),
					Message: fmt.Sprintf("override weight must be a non-negative finite number, got %v", w),
				})
			}
		}
	}

	return errs
}

func checkCondition(r domain.Rule) []domain.ValidationError {
	var errs []domain.ValidationError
	cond := r.Condition
	fieldPath := fmt.Sprintf("rules.%s.condition", r.Name)

	if cond.Field == "" {
		errs = append(errs, domain.ValidationError{
			Rule: r.Name, Field: fieldPath + ".field",
			Message: "field path must be a non-empty dotted string",
		})
	}

	if !domain.KnownOperator(cond.Operator) {
		errs = append(errs, domain.ValidationError{
			Rule: r.Name, Field: fieldPath + ".operator",
			Message: fmt.Sprintf("unknown operator %q", cond.Operator),
		})
		return errs
	}

	switch cond.Operator {
	case domain.OpLess, domain.OpLessEqual, domain.OpGreater, domain.OpGreaterEqual:
		if _, ok := toFloat(cond.Value); !ok {
			errs = append(errs, domain.ValidationError{
				Rule: r.Name, Field: fieldPath + ".value",
				Message: fmt.Sprintf("operator %q requires a numeric value", cond.Operator),
			})
		}
	case domain.OpEqual, domain.OpNotEqual:
		if cond.Value == nil {
			errs = append(errs, domain.ValidationError{
				Rule: r.Name, Field: fieldPath + ".value",
				Message: fmt.Sprintf("operator %q requires a value", cond.Operator),
			})
		}
	case domain.OpIsMissing, domain.OpIsPresent:
		if cond.Value != nil {
			errs = append(errs, domain.ValidationError{
				Rule: r.Name, Field: fieldPath + ".value",
				Message: fmt.Sprintf("operator %q takes no value", cond.Operator),
			})
		}
	}

	return errs
}

// checkTiers verifies the tier list is non-empty, strictly decreasing by
// minimum score, bounded to [0,100], and ends at the catch-all minimum 0.
// With inclusive lower bounds this guarantees contiguous, non-overlapping
// coverage of the whole score space.
func checkTiers(tiers []domain.Tier) []domain.ValidationError {
	var errs []domain.ValidationError

	if len(tiers) == 0 {
		return []domain.ValidationError{{Field: "tiers", Message: "at least one tier is required"}}
	}

	seen := make(map[string]bool, len(tiers))
	for i, t := range tiers {
		if t.Name == "" {
			errs = append(errs, domain.ValidationError{
				Field: fmt.Sprintf("tiers[%d].name", i), Message: "tier name must be non-empty",
			})
		} else if seen[t.Name] {
			errs = append(errs, domain.ValidationError{
				Tier: t.Name, Message: "duplicate tier name",
			})
		}
		seen[t.Name] = true

		if math.IsNaN(t.Min) || t.Min < 0 || t.Min > 100 {
			errs = append(errs, domain.ValidationError{
				Tier: t.Name, Field: fmt.Sprintf("tiers[%d].min", i),
				Message: fmt.Sprintf("minimum score must be within [0,100], got %v", t.Min),
			})
		}

		if i > 0 && t.Min >= tiers[i-1].Min {
			errs = append(errs, domain.ValidationError{
				Tier: t.Name, Field: fmt.Sprintf("tiers[%d].min", i),
				Message: fmt.Sprintf("tier minimums must be strictly decreasing: %v >= %v (%s)",
					t.Min, tiers[i-1].Min, tiers[i-1].Name),
			})
		}
	}

	if last := tiers[len(tiers)-1]; last.Min != 0 {
		errs = append(errs, domain.ValidationError{
			Tier: last.Name, Field: "tiers",
			Message: fmt.Sprintf("lowest tier must be a catch-all with minimum 0, got %v", last.Min),
		})
	}

	return errs
}

// normalizeWeights divides each weight by the total so effective weights
// sum to 1.0, both for the default table and for every vertical that
// carries an override. The engine never trusts authored sums.
func normalizeWeights(ruleList []domain.Rule) (map[string]float64, map[string]map[string]float64, []domain.ValidationError) {
	var total float64
	verticals := make(map[string]bool)
	for _, r := range ruleList {
		total += r.Weight
		for v := range r.VerticalOverrides {
			verticals[v] = true
		}
	}

	if total < WeightTolerance {
		return nil, nil, []domain.ValidationError{{
			Field:   "rules",
			Message: "cannot normalize zero-sum weights: all rule weights are zero",
		}}
	}

	defaults := make(map[string]float64, len(ruleList))
	for _, r := range ruleList {
		defaults[r.Name] = r.Weight / total
	}

	var errs []domain.ValidationError
	verticalTables := make(map[string]map[string]float64, len(verticals))
	for vertical := range verticals {
		var vTotal float64
		for _, r := range ruleList {
			vTotal += effectiveRawWeight(r, vertical)
		}
		if vTotal < WeightTolerance {
			errs = append(errs, domain.ValidationError{
				Field:   "rules",
				Message: fmt.Sprintf("cannot normalize zero-sum weights for vertical %q", vertical),
			})
			continue
		}

		table := make(map[string]float64, len(ruleList))
		for _, r := range ruleList {
			table[r.Name] = effectiveRawWeight(r, vertical) / vTotal
		}
		verticalTables[vertical] = table
	}

	if len(errs) > 0 {
		return nil, nil, errs
	}
	return defaults, verticalTables, nil
}

// effectiveRawWeight resolves the pre-normalization weight of a rule for
// a vertical: a matching override replaces the default wholesale.
func effectiveRawWeight(r domain.Rule, vertical string) float64 {
	if w, ok := r.VerticalOverrides[vertical]; ok {
		return w
	}
	return r.Weight
}
