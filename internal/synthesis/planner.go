package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/extract"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/oracle"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/rules"
)

// EffectSuggestion is the external shape heuristic's verdict that part of a
// subject's effect is transient rather than permanent. The heuristic itself
// lives outside this package; the planner only consumes its suggestions.
type EffectSuggestion struct {
	Name          string
	Description   string
	DurationClass string // one of the rules.Duration* values
}

// SuggestionSource is the external collaborator that inspects a subject's
// shape and suggests transient effects.
type SuggestionSource interface {
	Suggest(subject rules.SubjectDescription, ruleSet []rules.RuleObject) []EffectSuggestion
}

// Planner asks the oracle to configure one companion effect per suggestion.
// The planner is advisory and non-blocking: oracle failure degrades to
// deterministic local defaults, and out-of-enumeration durations are
// normalized rather than rejected.
type Planner struct {
	client oracle.Client
	logger *zap.Logger
}

// NewPlanner builds a side-effect planner.
func NewPlanner(client oracle.Client, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{client: client, logger: logger}
}

// Plan produces one SideEffectPlan per suggestion. Never returns an error.
func (p *Planner) Plan(ctx context.Context, subject rules.SubjectDescription, mode rules.SideEffectMode, suggestions []EffectSuggestion) []rules.SideEffectPlan {
	if len(suggestions) == 0 {
		return nil
	}

	messages := []oracle.Message{
		{Role: oracle.RoleSystem, Content: "You configure companion effect documents for a tabletop game engine. Answer through the provided schema."},
		{Role: oracle.RoleUser, Content: buildPlannerPrompt(subject, mode, suggestions)},
	}
	raw, err := p.client.Invoke(ctx, messages, effectPlansSchema())
	if err != nil {
		p.logger.Warn("effect planning oracle call failed, using default plans", zap.Error(err))
		return p.defaultPlans(subject, mode, suggestions)
	}

	plans := decodePlans(raw)
	if len(plans) == 0 {
		p.logger.Warn("effect planning produced no usable plans, using defaults")
		return p.defaultPlans(subject, mode, suggestions)
	}

	for i := range plans {
		plans[i] = p.normalize(plans[i], mode)
	}
	// Top up with defaults if the oracle configured fewer effects than
	// suggested, so every suggestion gets a plan.
	for i := len(plans); i < len(suggestions); i++ {
		plans = append(plans, p.defaultPlan(subject, mode, suggestions[i]))
	}
	return plans
}

// normalize clamps oracle output to the plan invariants.
func (p *Planner) normalize(plan rules.SideEffectPlan, mode rules.SideEffectMode) rules.SideEffectPlan {
	if mode == rules.SideEffectToggle {
		plan.Duration = rules.DurationUnlimited
	} else {
		plan.Duration = rules.NormalizeDuration(plan.Duration)
	}
	if plan.Rarity == "" {
		plan.Rarity = "common"
	}
	// The domain disallows tags on effect documents.
	plan.Traits = []string{}
	if mode == rules.SideEffectToggle && !hasToggle(plan.Rules) {
		plan.Rules = append(plan.Rules, toggleRule(plan.Name))
	}
	return plan
}

func hasToggle(set []rules.RuleObject) bool {
	for _, r := range set {
		if r.Key() == "RollOption" {
			if t, ok := r["toggleable"].(bool); ok && t {
				return true
			}
		}
	}
	return false
}

func toggleRule(name string) rules.RuleObject {
	return rules.RuleObject{
		"key":        "RollOption",
		"domain":     "all",
		"option":     slugify(name),
		"toggleable": true,
	}
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// defaultPlans synthesizes plans locally from the suggestions themselves so
// the pipeline never stalls on this stage.
func (p *Planner) defaultPlans(subject rules.SubjectDescription, mode rules.SideEffectMode, suggestions []EffectSuggestion) []rules.SideEffectPlan {
	out := make([]rules.SideEffectPlan, 0, len(suggestions))
	for _, s := range suggestions {
		out = append(out, p.defaultPlan(subject, mode, s))
	}
	return out
}

func (p *Planner) defaultPlan(subject rules.SubjectDescription, mode rules.SideEffectMode, s EffectSuggestion) rules.SideEffectPlan {
	name := s.Name
	if name == "" {
		name = fmt.Sprintf("Effect: %s", subject.Name)
	}
	desc := s.Description
	if desc == "" {
		desc = fmt.Sprintf("Companion effect of %s.", subject.Name)
	}
	plan := rules.SideEffectPlan{
		Name:        name,
		Description: desc,
		Duration:    rules.NormalizeDuration(s.DurationClass),
		Rules:       []rules.RuleObject{},
		Traits:      []string{},
		Rarity:      "common",
	}
	return p.normalize(plan, mode)
}

// decodePlans reads the effect configurations out of any response envelope.
func decodePlans(raw *oracle.RawResponse) []rules.SideEffectPlan {
	var env struct {
		Effects []rules.SideEffectPlan `json:"effects"`
	}
	try := func(text string) bool {
		if strings.TrimSpace(text) == "" {
			return false
		}
		if err := json.Unmarshal([]byte(text), &env); err != nil {
			if err := json.Unmarshal([]byte(extract.Repair(text)), &env); err != nil {
				return false
			}
		}
		return len(env.Effects) > 0
	}

	for _, call := range raw.ToolCalls {
		if try(call.Arguments) {
			return env.Effects
		}
	}
	if raw.FunctionCall != nil && try(raw.FunctionCall.Arguments) {
		return env.Effects
	}
	if try(raw.Content) {
		return env.Effects
	}
	return nil
}
