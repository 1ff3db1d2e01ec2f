package synthesis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/corpus"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/extract"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/oracle"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/rules"
)

// Corrector drives the corrective regeneration loop: prior rules plus the
// captured validation signals go back to the oracle, which must return a
// complete replacement set. The prior commit is never rolled back here; on
// failure the last-applied rule set simply remains in place.
type Corrector struct {
	client oracle.Client
	corpus corpus.Corpus
	logger *zap.Logger
}

// NewCorrector builds a corrective loop stage.
func NewCorrector(client oracle.Client, kc corpus.Corpus, logger *zap.Logger) *Corrector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Corrector{client: client, corpus: kc, logger: logger}
}

// ReviewAndFix returns a repaired rule set as a fresh SynthesisResult. The
// result's explanation is the fix explanation prepended to the prior one so
// both survive for audit. When signals are non-empty, a result structurally
// identical to the prior set is a failure: returning the broken set as a
// "fix" would loop the operator forever.
func (c *Corrector) ReviewAndFix(ctx context.Context, subject rules.SubjectDescription, priorRules []rules.RuleObject, priorExplanation string, signals []rules.ValidationSignal) (*rules.SynthesisResult, error) {
	if len(priorRules) == 0 {
		return nil, &rules.GenerationFailure{Stage: "corrective", Reason: "no prior rules to fix"}
	}

	schema := ruleSetSchema("fix_rules",
		"Return the complete corrected rule set for the described entity.")
	messages := []oracle.Message{
		{Role: oracle.RoleSystem, Content: fmt.Sprintf(fixSystemPrompt, c.corpus.FullText())},
		{Role: oracle.RoleUser, Content: buildFixPrompt(priorRules, signals)},
	}

	c.logger.Info("running corrective regeneration",
		zap.String("subject", subject.Name),
		zap.Int("priorRules", len(priorRules)),
		zap.Int("signals", len(signals)))

	raw, err := c.client.Invoke(ctx, messages, schema)
	if err != nil {
		return nil, &rules.GenerationFailure{Stage: "corrective", Reason: "oracle invocation failed", Err: err}
	}
	payload, err := extract.Extract(raw)
	if err != nil {
		return nil, err
	}
	if err := rules.ValidateAll(payload.Rules); err != nil {
		return nil, &rules.GenerationFailure{Stage: "corrective", Reason: "corrected rules failed validation", Err: err}
	}
	if len(signals) > 0 && rules.Equal(priorRules, payload.Rules) {
		return nil, &rules.GenerationFailure{
			Stage:  "corrective",
			Reason: "oracle returned the prior rule set unchanged despite diagnostics",
		}
	}

	explanation := strings.TrimSpace(payload.Explanation)
	if priorExplanation != "" {
		if explanation != "" {
			explanation += "\n\n---\n\n"
		}
		explanation += priorExplanation
	}

	return &rules.SynthesisResult{
		Rules:       payload.Rules,
		Explanation: explanation,
	}, nil
}
