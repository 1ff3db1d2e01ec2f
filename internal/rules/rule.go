package rules

import (
	"encoding/json"
	"fmt"
	"sort"
)

// RuleObject is a single declarative behavior rule as produced by the
// generation oracle. The pipeline treats its contents as opaque except for
// the "key" discriminant and a small per-kind required-field table; unknown
// fields pass through untouched so the rule catalog can evolve without
// co-evolving this package.
type RuleObject map[string]interface{}

// DiscriminantField identifies the rule kind inside a RuleObject.
const DiscriminantField = "key"

// Key returns the rule kind discriminant, or "" when absent or non-string.
func (r RuleObject) Key() string {
	v, ok := r[DiscriminantField]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// requiredFields lists the kind-specific fields the pipeline itself inspects.
// Kinds not listed here only need the discriminant.
var requiredFields = map[string][]string{
	"FlatModifier": {"selector"},
	"DamageDice":   {"selector"},
	"RollOption":   {"option"},
	"GrantItem":    {"uuid"},
	"Note":         {"selector", "text"},
}

// Validate checks the minimal shared contract: the discriminant is present
// and any kind-specific required fields exist. Everything else is opaque.
func (r RuleObject) Validate() error {
	key := r.Key()
	if key == "" {
		return fmt.Errorf("rule object missing %q discriminant: %w", DiscriminantField, ErrInvalidRule)
	}
	for _, field := range requiredFields[key] {
		if _, ok := r[field]; !ok {
			return fmt.Errorf("rule %q missing required field %q: %w", key, field, ErrInvalidRule)
		}
	}
	return nil
}

// ValidateAll rejects the whole batch on the first invalid rule. Used before
// any persistence call so a bad rule never reaches the store.
func ValidateAll(set []RuleObject) error {
	if len(set) == 0 {
		return fmt.Errorf("empty rule set: %w", ErrInvalidRule)
	}
	for i, r := range set {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}

// Clone deep-copies a rule set via a JSON round trip. Rule objects come out
// of json.Unmarshal anyway, so every value is JSON-representable.
func Clone(set []RuleObject) []RuleObject {
	if set == nil {
		return nil
	}
	raw, err := json.Marshal(set)
	if err != nil {
		// Values originate from JSON decoding; marshal cannot fail on them.
		panic(fmt.Sprintf("rules: clone marshal: %v", err))
	}
	var out []RuleObject
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("rules: clone unmarshal: %v", err))
	}
	return out
}

// Equal reports structural equality of two rule sets, ignoring map ordering.
func Equal(a, b []RuleObject) bool {
	if len(a) != len(b) {
		return false
	}
	return canonicalJSON(a) == canonicalJSON(b)
}

func canonicalJSON(set []RuleObject) string {
	parts := make([]string, 0, len(set))
	for _, r := range set {
		keys := make([]string, 0, len(r))
		for k := range r {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(map[string]interface{}, len(r))
		for _, k := range keys {
			ordered[k] = r[k]
		}
		// encoding/json sorts map keys, so this is deterministic.
		raw, _ := json.Marshal(ordered)
		parts = append(parts, string(raw))
	}
	raw, _ := json.Marshal(parts)
	return string(raw)
}
