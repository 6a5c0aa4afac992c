// Package rules provides the scoring rule engine: document parsing,
// validation, condition evaluation, and weighted score computation.
package rules

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/leadfactory/leadscore/internal/domain"
)

// document is the YAML shape of a rule file:
//
//	version: "2025-08-01"
//	rules:
//	  seo_low_keywords:
//	    weight: 0.5
//	    condition: {field: seo.organic_keywords, operator: "<", value: 10}
//	    vertical_overrides: {restaurant: 0.3}
//	tiers:
//	  - {name: A, min: 80}
//	  - {name: D, min: 0}
//
// Rules are an ordered mapping; yaml.Node decoding preserves the
// authoring order, which becomes the engine's iteration order.
type document struct {
	Version string        `yaml:"version"`
	Rules   yaml.Node     `yaml:"rules"`
	Tiers   []domain.Tier `yaml:"tiers"`
}

// ParseDocument deserializes a raw rule file into a RuleDocument,
// preserving rule order. Parse errors cover malformed YAML and wrong
// top-level shapes only; semantic checks belong to Validate.
func ParseDocument(raw []byte) (*domain.RuleDocument, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	out := &domain.RuleDocument{
		Version: doc.Version,
		Tiers:   doc.Tiers,
	}

	if doc.Rules.Kind == 0 {
		return out, nil // missing rules key, reported by the validator
	}
	if doc.Rules.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("rules: expected a mapping of rule name to definition")
	}

	// MappingNode content alternates key, value.
	for i := 0; i+1 < len(doc.Rules.Content); i += 2 {
		keyNode := doc.Rules.Content[i]
		valNode := doc.Rules.Content[i+1]

		var rule domain.Rule
		if err := valNode.Decode(&rule); err != nil {
			return nil, fmt.Errorf("rules.%s: %w", keyNode.Value, err)
		}
		rule.Name = keyNode.Value
		out.Rules = append(out.Rules, rule)
	}

	return out, nil
}
