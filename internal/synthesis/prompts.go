package synthesis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/rules"
)

// Prompt construction for the synthesis, planning and corrective stages.
// Precedence rules: operator-supplied custom requirements always outrank the
// subject's own description; mechanics guidance is included only when no
// custom requirements were supplied; reference examples are always included
// when present and labeled as structure references that must not be copied.

const synthesisSystemPrompt = `You are a rule-authoring assistant for a tabletop
game engine. You translate natural-language entity descriptions into behavior
rules: JSON objects with a "key" field naming the rule kind and kind-specific
fields exactly as documented in the reference below. Output only what the
schema asks for. Never invent field names. Never return an empty rules array.

RULE KIND REFERENCE:
%s`

const fixSystemPrompt = `You are a rule-repair assistant for a tabletop game
engine. You receive a rule set that was rejected by the engine's structural
validator, together with the validator's diagnostics. Diagnose the field-level
problems (missing "key" discriminant, wrong field name, value outside the
documented enumeration) against the reference below and return a complete
corrected rule set. Return the full replacement set, not a diff, plus an
explanation of what you changed and why.

RULE KIND REFERENCE:
%s`

// mechanicsVocabulary is the closed set of mechanic categories the analyzer
// offers the oracle as guidance. Keywords outside this list are still
// accepted; the list just anchors the model.
var mechanicsVocabulary = []string{
	"attack bonus",
	"damage bonus",
	"damage dice",
	"armor class",
	"saving throws",
	"skill bonus",
	"speed",
	"resistance",
	"weakness",
	"immunity",
	"aura",
	"toggle",
	"off-guard",
	"persistent damage",
	"temporary hit points",
	"darkvision",
}

const mechanicsPromptTemplate = `Identify the game mechanics present in the
following description. Answer with short keyword tags. Prefer tags from this
vocabulary when they apply: %s.

DESCRIPTION:
%s`

func buildMechanicsPrompt(description string) string {
	return fmt.Sprintf(mechanicsPromptTemplate,
		strings.Join(mechanicsVocabulary, ", "),
		strings.TrimSpace(description))
}

func buildSynthesisPrompt(subject rules.SubjectDescription, req rules.GenerationRequest, mechanics []rules.MechanicKeyword, examples []rules.ReferenceExample) string {
	var b strings.Builder

	b.WriteString("Author behavior rules for the following entity.\n\n")

	if !req.IgnoreOriginalDescription {
		b.WriteString("ENTITY:\n")
		fmt.Fprintf(&b, "Name: %s\nKind: %s\nLevel: %d\n", subject.Name, subject.EntityKind, subject.Level)
		if len(subject.Traits) > 0 {
			fmt.Fprintf(&b, "Traits: %s\n", strings.Join(subject.Traits, ", "))
		}
		fmt.Fprintf(&b, "Description: %s\n\n", strings.TrimSpace(subject.Description))
	} else {
		fmt.Fprintf(&b, "ENTITY: %s (%s, level %d). Ignore any prior description of this entity.\n\n",
			subject.Name, subject.EntityKind, subject.Level)
	}

	if req.CustomRequirements != "" {
		b.WriteString("OPERATOR REQUIREMENTS (HIGHEST PRIORITY: satisfy these even where they conflict with the entity description):\n")
		b.WriteString(strings.TrimSpace(req.CustomRequirements))
		b.WriteString("\n\n")
	} else if len(mechanics) > 0 {
		tags := make([]string, len(mechanics))
		for i, m := range mechanics {
			tags[i] = string(m)
		}
		fmt.Fprintf(&b, "IDENTIFIED MECHANICS (guidance): %s\n\n", strings.Join(tags, ", "))
	}

	if len(examples) > 0 {
		b.WriteString("REFERENCE EXAMPLES (style and structure only; do NOT copy these verbatim, the new rules must implement the entity above, not the examples):\n")
		for _, ex := range examples {
			raw, err := json.MarshalIndent(ex.Rules, "", "  ")
			if err != nil {
				continue
			}
			fmt.Fprintf(&b, "- %s (%s, %s):\n%s\n", ex.Name, ex.EntityKind, ex.SourceLabel, string(raw))
		}
		b.WriteString("\n")
	}

	b.WriteString("Produce the complete rule set and a short explanation of your choices.")
	return b.String()
}

const plannerPromptTemplate = `The entity below has transient effects that need
companion effect documents before its rules can reference them. Produce one
effect configuration per suggested effect. Each configuration needs a name, a
player-facing description, a duration classification (one of "unlimited",
"rounds", "minutes", "hours"), a rarity (usually "common"), and the rules the
effect itself carries (often a single FlatModifier or RollOption). Effect
documents never carry traits; leave the traits array empty.
%s

ENTITY:
Name: %s
Description: %s

SUGGESTED EFFECTS:
%s`

func buildPlannerPrompt(subject rules.SubjectDescription, mode rules.SideEffectMode, suggestions []EffectSuggestion) string {
	var sb strings.Builder
	for _, s := range suggestions {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", s.Name, s.DurationClass, s.Description)
	}
	modeNote := ""
	if mode == rules.SideEffectToggle {
		modeNote = "\nThe operator wants toggleable effects: use \"unlimited\" durations and include a toggleable RollOption rule in each effect."
	}
	return fmt.Sprintf(plannerPromptTemplate,
		modeNote,
		subject.Name,
		strings.TrimSpace(subject.Description),
		sb.String())
}

func buildFixPrompt(priorRules []rules.RuleObject, signals []rules.ValidationSignal) string {
	var b strings.Builder
	b.WriteString("The engine rejected parts of this rule set.\n\nCURRENT RULES:\n")
	raw, _ := json.MarshalIndent(priorRules, "", "  ")
	b.Write(raw)
	b.WriteString("\n\nVALIDATOR DIAGNOSTICS (verbatim):\n")
	for _, sig := range signals {
		b.WriteString("- ")
		b.WriteString(sig.Message)
		b.WriteString("\n")
	}
	b.WriteString("\nReturn the complete corrected rule set and explain what you changed.")
	return b.String()
}
