package synthesis

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/extract"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/oracle"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/rules"
)

// Analyzer extracts short mechanic keywords from a description. The result
// is purely advisory: on any failure the analyzer returns an empty list and
// logs, and downstream stages proceed unfiltered.
type Analyzer struct {
	client oracle.Client
	logger *zap.Logger
}

// NewAnalyzer builds a mechanics analyzer.
func NewAnalyzer(client oracle.Client, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{client: client, logger: logger}
}

// Analyze asks the oracle for mechanic keywords. Never returns an error.
func (a *Analyzer) Analyze(ctx context.Context, description string) []rules.MechanicKeyword {
	if strings.TrimSpace(description) == "" {
		return nil
	}

	messages := []oracle.Message{
		{Role: oracle.RoleSystem, Content: "You classify game mechanics. Answer through the provided schema."},
		{Role: oracle.RoleUser, Content: buildMechanicsPrompt(description)},
	}
	raw, err := a.client.Invoke(ctx, messages, mechanicsSchema())
	if err != nil {
		a.logger.Warn("mechanics analysis failed, proceeding without mechanics", zap.Error(err))
		return nil
	}

	if kws := decodeMechanics(raw); len(kws) > 0 {
		return kws
	}

	// Degraded fallback: scan whatever text came back, then the description
	// itself, for vocabulary terms.
	if raw.Content != "" {
		if found := extract.LooseKeywords(raw.Content, mechanicsVocabulary); len(found) > 0 {
			a.logger.Debug("mechanics recovered from free text", zap.Int("count", len(found)))
			return toKeywords(found)
		}
	}
	if found := extract.LooseKeywords(description, mechanicsVocabulary); len(found) > 0 {
		return toKeywords(found)
	}
	a.logger.Warn("no mechanics identified")
	return nil
}

// decodeMechanics pulls the keyword list out of any of the response shapes.
func decodeMechanics(raw *oracle.RawResponse) []rules.MechanicKeyword {
	var env struct {
		Mechanics []string `json:"mechanics"`
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
		return len(env.Mechanics) > 0
	}

	for _, call := range raw.ToolCalls {
		if try(call.Arguments) {
			return toKeywords(env.Mechanics)
		}
	}
	if raw.FunctionCall != nil && try(raw.FunctionCall.Arguments) {
		return toKeywords(env.Mechanics)
	}
	if try(raw.Content) {
		return toKeywords(env.Mechanics)
	}
	return nil
}

func toKeywords(terms []string) []rules.MechanicKeyword {
	var out []rules.MechanicKeyword
	seen := make(map[string]bool)
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, rules.MechanicKeyword(t))
	}
	return out
}
