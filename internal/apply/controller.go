package apply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/rules"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/store"
)

// State of one apply call. Terminal states are Done and Failed.
type State string

const (
	StateIdle              State = "idle"
	StateCreatingSideFx    State = "creating-side-effects"
	StateRollingBack       State = "rolling-back"
	StateLinkingReferences State = "linking-references"
	StateCommitting        State = "committing"
	StateMonitoring        State = "monitoring"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// EffectDocumentKind is the store kind used for companion effect documents.
const EffectDocumentKind = "effect"

// Controller commits a rule set and its planned side effects transactionally:
// every planned effect document exists before the rule set referencing it is
// written, and a failure anywhere rolls the batch back and leaves the
// subject's stored rules untouched.
//
// Commits serialize behind a weighted semaphore held for the whole validation
// window: the diagnostic channel is process-wide, and two commits inside
// overlapping windows would misattribute signals between sessions.
type Controller struct {
	store   store.DocumentStore
	monitor *Monitor
	gate    *semaphore.Weighted
	window  time.Duration
	logger  *zap.Logger
}

// NewController builds a controller. window <= 0 selects DefaultWindow.
func NewController(docs store.DocumentStore, monitor *Monitor, window time.Duration, logger *zap.Logger) *Controller {
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		store:   docs,
		monitor: monitor,
		gate:    semaphore.NewWeighted(1),
		window:  window,
		logger:  logger,
	}
}

// Apply runs the commit state machine:
//
//	Idle -> CreatingSideEffects -> {RollingBack -> Failed}
//	     |> LinkingReferences -> Committing -> Monitoring -> Done
//
// Every rule is validated before any persistence call. Cancellation during
// side-effect creation takes the same rollback path as a creation failure.
func (c *Controller) Apply(ctx context.Context, subject rules.SubjectDescription, ruleSet []rules.RuleObject, plans []rules.SideEffectPlan) (*rules.ApplyOutcome, error) {
	state := StateIdle
	transition := func(next State) {
		c.logger.Debug("apply state transition",
			zap.String("subject", subject.ID),
			zap.String("from", string(state)),
			zap.String("to", string(next)))
		state = next
	}

	if err := rules.ValidateAll(ruleSet); err != nil {
		return nil, err
	}
	for i, plan := range plans {
		for j, r := range plan.Rules {
			if err := r.Validate(); err != nil {
				return nil, fmt.Errorf("side-effect plan %d rule %d: %w", i, j, err)
			}
		}
	}

	if err := c.gate.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("commit gate: %w", err)
	}
	defer c.gate.Release(1)

	transition(StateCreatingSideFx)
	created, commitErr := c.createSideEffects(ctx, plans)
	if commitErr != nil {
		transition(StateRollingBack)
		c.rollback(ctx, created, commitErr)
		transition(StateFailed)
		return nil, commitErr
	}

	transition(StateLinkingReferences)
	rewritten, descLines := linkReferences(ruleSet, plans, created)

	transition(StateCommitting)
	obs := c.monitor.Begin(ctx)
	update := map[string]interface{}{"rules": rewritten}
	if len(descLines) > 0 {
		update["description"] = appendReferenceLines(subject.Description, descLines)
	}
	if err := c.store.Update(ctx, subject.ID, update); err != nil {
		c.monitor.End(ctx, obs, 0) // uninstall immediately; nothing was committed
		fail := &rules.CommitFailure{Stage: "update", Err: err}
		transition(StateRollingBack)
		c.rollback(ctx, created, fail)
		transition(StateFailed)
		return nil, fail
	}

	transition(StateMonitoring)
	signals := c.monitor.End(ctx, obs, c.window)

	transition(StateDone)
	c.logger.Info("rule set committed",
		zap.String("subject", subject.ID),
		zap.Int("rules", len(rewritten)),
		zap.Int("sideEffects", len(created)),
		zap.Int("signals", len(signals)))

	return &rules.ApplyOutcome{
		CommittedRules:     rewritten,
		CreatedSideEffects: created,
		Signals:            signals,
	}, nil
}

// createSideEffects creates each planned document in sequence, stopping at
// the first failure (including ctx cancellation between creations).
func (c *Controller) createSideEffects(ctx context.Context, plans []rules.SideEffectPlan) ([]rules.CreatedSideEffect, *rules.CommitFailure) {
	var created []rules.CreatedSideEffect
	for i, plan := range plans {
		if err := ctx.Err(); err != nil {
			return created, &rules.CommitFailure{Stage: "side-effects", Err: fmt.Errorf("cancelled before creating %q: %w", plan.Name, err)}
		}
		data := map[string]interface{}{
			"name":        plan.Name,
			"description": plan.Description,
			"duration":    plan.Duration,
			"rules":       plan.Rules,
			"traits":      plan.Traits,
			"rarity":      plan.Rarity,
		}
		id, stableRef, err := c.store.Create(ctx, EffectDocumentKind, data)
		if err != nil {
			return created, &rules.CommitFailure{Stage: "side-effects", Err: fmt.Errorf("creating side effect %d (%q): %w", i, plan.Name, err)}
		}
		created = append(created, rules.CreatedSideEffect{
			Name:            plan.Name,
			StableReference: stableRef,
			ContainerID:     id,
		})
	}
	return created, nil
}

// rollback deletes every document created in this batch, best-effort.
// Deletion failures are logged and recorded on the failure, never re-raised.
// Runs detached from the caller's cancellation so an abandoned session still
// cleans up after itself.
func (c *Controller) rollback(ctx context.Context, created []rules.CreatedSideEffect, fail *rules.CommitFailure) {
	cleanupCtx := context.WithoutCancel(ctx)
	for _, eff := range created {
		if err := c.store.Delete(cleanupCtx, eff.ContainerID); err != nil {
			c.logger.Error("failed to roll back side effect",
				zap.String("id", eff.ContainerID),
				zap.String("name", eff.Name),
				zap.Error(err))
			fail.RollbackErrs = append(fail.RollbackErrs, err)
			continue
		}
		fail.RolledBack = append(fail.RolledBack, eff.ContainerID)
		c.logger.Debug("side effect rolled back", zap.String("id", eff.ContainerID))
	}
}

// linkReferences rewrites the rule set so every created side effect is
// reachable: effects backing an aura-style relationship are inserted into the
// aura rule's own effects list; everything else gets an appended reference
// note rule plus a line for the descriptive text. With no side effects the
// set passes through structurally unchanged.
func linkReferences(ruleSet []rules.RuleObject, plans []rules.SideEffectPlan, created []rules.CreatedSideEffect) ([]rules.RuleObject, []string) {
	if len(created) == 0 {
		return ruleSet, nil
	}
	rewritten := rules.Clone(ruleSet)
	var descLines []string

	auraIdx := -1
	for i, r := range rewritten {
		if r.Key() == "Aura" {
			auraIdx = i
			break
		}
	}

	for _, eff := range created {
		if auraIdx >= 0 {
			aura := rewritten[auraIdx]
			var effects []interface{}
			if existing, ok := aura["effects"].([]interface{}); ok {
				effects = existing
			}
			aura["effects"] = append(effects, map[string]interface{}{
				"uuid":    eff.StableReference,
				"affects": "allies",
			})
			continue
		}
		rewritten = append(rewritten, rules.RuleObject{
			"key":      "Note",
			"selector": "all",
			"title":    eff.Name,
			"text":     fmt.Sprintf("Companion effect: @%s", eff.StableReference),
		})
		descLines = append(descLines, fmt.Sprintf("Effect: @%s{%s}", eff.StableReference, eff.Name))
	}
	return rewritten, descLines
}

func appendReferenceLines(description string, lines []string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(description, "\n"))
	for _, line := range lines {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return b.String()
}
