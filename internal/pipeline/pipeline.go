// Package pipeline wires the authoring stages into one session-scoped
// orchestrator. Stages run strictly sequentially; the only shared state
// between concurrent sessions is the read-only reference index and knowledge
// corpus, plus the commit gate inside the apply controller.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/apply"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/index"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/rules"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/synthesis"
)

// Deps are the constructed collaborators a pipeline needs. Everything is
// injected; the pipeline owns nothing ambient.
type Deps struct {
	Analyzer    *synthesis.Analyzer
	Retriever   *index.Retriever
	Synthesizer *synthesis.Synthesizer
	Planner     *synthesis.Planner
	Suggestions synthesis.SuggestionSource
	Controller  *apply.Controller
	Corrector   *synthesis.Corrector
	Logger      *zap.Logger
}

// Pipeline drives one subject's authoring session: synthesize, apply, and
// optionally review-and-fix, in that order, at the operator's pace.
type Pipeline struct {
	deps Deps
}

// New builds a pipeline. A nil logger is replaced with a no-op logger.
func New(deps Deps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Pipeline{deps: deps}
}

// Synthesize runs mechanics analysis, reference retrieval, rule synthesis and
// side-effect planning, and returns the immutable result for operator review.
// The request preconditions are checked before any oracle call.
func (p *Pipeline) Synthesize(ctx context.Context, subject rules.SubjectDescription, req rules.GenerationRequest) (*rules.SynthesisResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	mechanics := p.deps.Analyzer.Analyze(ctx, subject.Description)
	examples := p.deps.Retriever.Retrieve(ctx, subject.EntityKind, mechanics)

	result, err := p.deps.Synthesizer.Synthesize(ctx, subject, req, mechanics, examples)
	if err != nil {
		return nil, err
	}

	if p.deps.Suggestions != nil {
		if suggestions := p.deps.Suggestions.Suggest(subject, result.Rules); len(suggestions) > 0 {
			p.deps.Logger.Info("transient effects suggested",
				zap.String("subject", subject.Name),
				zap.Int("count", len(suggestions)))
			result.SideEffectPlans = p.deps.Planner.Plan(ctx, subject, req.SideEffectMode, suggestions)
		}
	}
	return result, nil
}

// Mechanics exposes the advisory mechanics analysis on its own, for
// operator inspection.
func (p *Pipeline) Mechanics(ctx context.Context, subject rules.SubjectDescription) []rules.MechanicKeyword {
	return p.deps.Analyzer.Analyze(ctx, subject.Description)
}

// Apply commits a reviewed result. Validation signals captured during the
// post-commit window ride along on the outcome; they are findings for the
// operator, not an error.
func (p *Pipeline) Apply(ctx context.Context, subject rules.SubjectDescription, result *rules.SynthesisResult) (*rules.ApplyOutcome, error) {
	return p.deps.Controller.Apply(ctx, subject, result.Rules, result.SideEffectPlans)
}

// ReviewAndFix feeds the applied rules and their validation signals back to
// the oracle and returns a replacement result, which the operator can apply
// again. The prior commit stays in place on failure.
func (p *Pipeline) ReviewAndFix(ctx context.Context, subject rules.SubjectDescription, prior *rules.SynthesisResult, signals []rules.ValidationSignal) (*rules.SynthesisResult, error) {
	return p.deps.Corrector.ReviewAndFix(ctx, subject, prior.Rules, prior.Explanation, signals)
}
