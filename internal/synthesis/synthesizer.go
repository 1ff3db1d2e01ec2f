// Package synthesis implements the oracle-facing stages of the authoring
// pipeline: mechanics analysis, rule synthesis, side-effect planning and the
// corrective regeneration loop.
package synthesis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/corpus"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/extract"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/oracle"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/rules"
)

// Synthesizer turns a subject description into a validated rule set.
type Synthesizer struct {
	client oracle.Client
	corpus corpus.Corpus
	logger *zap.Logger
}

// NewSynthesizer builds a synthesizer over injected collaborators.
func NewSynthesizer(client oracle.Client, kc corpus.Corpus, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{client: client, corpus: kc, logger: logger}
}

// Synthesize invokes the oracle with the full prompt stack and returns an
// immutable result. Failures surface explicitly; no partial result is
// retained. The rules array is never recovered from loose natural language:
// an unvalidatable rules array is worse than an explicit failure.
func (s *Synthesizer) Synthesize(ctx context.Context, subject rules.SubjectDescription, req rules.GenerationRequest, mechanics []rules.MechanicKeyword, examples []rules.ReferenceExample) (*rules.SynthesisResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	schema := ruleSetSchema("author_rules",
		"Produce the complete behavior rule set for the described entity.")
	messages := []oracle.Message{
		{Role: oracle.RoleSystem, Content: fmt.Sprintf(synthesisSystemPrompt, s.corpus.FullText())},
		{Role: oracle.RoleUser, Content: buildSynthesisPrompt(subject, req, mechanics, examples)},
	}

	s.logger.Info("synthesizing rules",
		zap.String("subject", subject.Name),
		zap.Int("mechanics", len(mechanics)),
		zap.Int("examples", len(examples)),
		zap.Bool("customRequirements", req.CustomRequirements != ""))

	raw, err := s.client.Invoke(ctx, messages, schema)
	if err != nil {
		return nil, &rules.GenerationFailure{Stage: "synthesis", Reason: "oracle invocation failed", Err: err}
	}

	payload, err := extract.Extract(raw)
	if err != nil {
		return nil, err
	}
	if err := s.validate(schema, payload); err != nil {
		return nil, &rules.GenerationFailure{Stage: "synthesis", Reason: "generated rules failed validation", Err: err}
	}

	s.logger.Info("synthesis complete",
		zap.String("subject", subject.Name),
		zap.Int("rules", len(payload.Rules)))

	return &rules.SynthesisResult{
		Rules:             payload.Rules,
		Explanation:       payload.Explanation,
		ReferenceExamples: examples,
	}, nil
}

// validate checks the payload against both the minimal rule contract and the
// schema that was sent to the oracle.
func (s *Synthesizer) validate(schema *oracle.Schema, payload *extract.Payload) error {
	if err := rules.ValidateAll(payload.Rules); err != nil {
		return err
	}
	compiled, err := compileSchema(schema)
	if err != nil {
		// A schema we cannot compile is our bug, not the oracle's; the rule
		// contract above already gates correctness.
		s.logger.Warn("schema compilation failed, skipping schema validation", zap.Error(err))
		return nil
	}
	if err := validateAgainst(compiled, payload); err != nil {
		return fmt.Errorf("payload violates output schema: %w", err)
	}
	return nil
}
