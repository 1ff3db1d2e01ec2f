// Package corpus provides the read-only knowledge text injected verbatim
// into synthesis and corrective prompts.
package corpus

import (
	"sort"
	"strings"
)

// Corpus is the knowledge source for rule-kind documentation. Implementations
// are read-only and safe for concurrent use.
type Corpus interface {
	// FullText returns the whole corpus.
	FullText() string
	// Section returns the documentation for one rule kind, or "" when the
	// corpus has no section for it.
	Section(ruleKind string) string
}

// Static is a Corpus backed by an in-memory section map.
type Static struct {
	preamble string
	sections map[string]string
	order    []string
}

// NewStatic builds a corpus from a preamble and per-kind sections.
func NewStatic(preamble string, sections map[string]string) *Static {
	order := make([]string, 0, len(sections))
	for k := range sections {
		order = append(order, k)
	}
	sort.Strings(order)
	return &Static{preamble: preamble, sections: sections, order: order}
}

// FullText concatenates the preamble and every section in stable order.
func (s *Static) FullText() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(s.preamble))
	for _, k := range s.order {
		b.WriteString("\n\n## ")
		b.WriteString(k)
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(s.sections[k]))
	}
	return b.String()
}

// Section returns one kind's documentation.
func (s *Static) Section(ruleKind string) string {
	return s.sections[ruleKind]
}

// Default returns the built-in rule-kind corpus. Deployments with a richer
// corpus construct their own Static and inject it.
func Default() *Static {
	return NewStatic(defaultPreamble, map[string]string{
		"FlatModifier": flatModifierDoc,
		"DamageDice":   damageDiceDoc,
		"RollOption":   rollOptionDoc,
		"GrantItem":    grantItemDoc,
		"Aura":         auraDoc,
		"Note":         noteDoc,
	})
}

const defaultPreamble = `Behavior rules are JSON objects. Every rule carries a
"key" field naming its kind; the remaining fields depend on the kind. Rules
must be emitted exactly as documented: wrong field names or values outside the
documented enumerations are rejected by the host rule engine at load time.`

const flatModifierDoc = `FlatModifier adds a numeric modifier to a statistic.
Required: "selector" (the statistic to modify, e.g. "attack", "ac",
"fortitude", "damage"), "value" (number or bracketed expression). Optional:
"type" ("circumstance", "status", "item", "untyped"), "predicate" (array of
condition options that must hold), "label".`

const damageDiceDoc = `DamageDice adds or upgrades damage dice. Required:
"selector" (usually "damage"). Optional: "diceNumber", "dieSize" (e.g. "d6"),
"damageType", "predicate".`

const rollOptionDoc = `RollOption publishes a toggleable flag other rules can
predicate on. Required: "option" (the flag name, kebab-case). Optional:
"domain" (defaults to "all"), "toggleable" (true for operator-facing toggles),
"label".`

const grantItemDoc = `GrantItem attaches another document to the owner when
this rule loads. Required: "uuid" (stable reference of the granted document).
Optional: "onDeleteActions", "allowDuplicate".`

const auraDoc = `Aura projects an emanation around the owner. Required:
"radius" (feet, multiple of 5). Optional: "effects" (array of
{"uuid", "affects"} entries applied to creatures inside), "traits",
"appearance". Companion effect documents referenced from "effects" must exist
before the aura rule is committed.`

const noteDoc = `Note attaches flavor or reminder text to rolls. Required:
"selector", "text". Optional: "title", "predicate".`
