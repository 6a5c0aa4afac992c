package domain

import (
	"sort"
	"time"
)

// ScoreResult is the output of scoring one assessment.
type ScoreResult struct {
	ID         string `json:"id"`
	BusinessID string `json:"businessId"`
	Vertical   string `json:"vertical,omitempty"`

	// OverallScore is the weighted sum of fired rules, 0-100.
	OverallScore float64 `json:"overallScore"`

	// Tier is the resolved score bracket (e.g. "A".."D").
	Tier string `json:"tier"`

	// Contributions maps every rule name to the points it contributed,
	// including zero-contribution rules, for explainability and audit.
	Contributions map[string]float64 `json:"contributions"`

	// RulesVersion identifies the rule set that produced this score
	// (the source checksum of the active document).
	RulesVersion string `json:"rulesVersion"`

	Timestamp time.Time `json:"timestamp"`

	// Processing metadata
	ProcessMs int64 `json:"processMs,omitempty"`
}

// QuickWin returns the name of the highest-contributing rule, i.e. the
// most impactful negative factor for outreach copy. Ties break by rule
// name so the result is deterministic. Returns false when nothing fired.
func (r *ScoreResult) QuickWin() (string, bool) {
	names := make([]string, 0, len(r.Contributions))
	for name, pts := range r.Contributions {
		if pts > 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := r.Contributions[names[i]], r.Contributions[names[j]]
		if ci != cj {
			return ci > cj
		}
		return names[i] < names[j]
	})
	return names[0], true
}

// ValidationError describes one violated invariant in a candidate rule
// document. Reload failures always carry the full list, never a single
// opaque error.
type ValidationError struct {
	// Rule or Tier names the offending element, when applicable.
	Rule string `json:"rule,omitempty"`
	Tier string `json:"tier,omitempty"`

	// Field is the document path of the violation (e.g. "rules.seo_low.weight").
	Field string `json:"field,omitempty"`

	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	switch {
	case e.Rule != "":
		return "rule " + e.Rule + ": " + e.Message
	case e.Tier != "":
		return "tier " + e.Tier + ": " + e.Message
	case e.Field != "":
		return e.Field + ": " + e.Message
	}
	return e.Message
}

// ReloadOutcome reports the result of a reload attempt. Success=false is
// the library analog of a non-zero exit for the reload operation.
type ReloadOutcome struct {
	Success bool              `json:"success"`
	Errors  []ValidationError `json:"errors,omitempty"`

	// RulesVersion is the checksum of the rule set in effect after the
	// attempt: the candidate's on success, the retained last-good set's
	// on failure.
	RulesVersion string `json:"rulesVersion,omitempty"`

	// Unchanged is set when a watcher-triggered reload found the source
	// checksum identical to the active set and skipped publishing.
	Unchanged bool `json:"unchanged,omitempty"`

	DurationMs int64 `json:"durationMs"`
}
