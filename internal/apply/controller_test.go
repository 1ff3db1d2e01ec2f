package apply

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/rules"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/store"
)

// flakyStore wraps a MemoryStore with programmable failure points.
type flakyStore struct {
	*store.MemoryStore
	failCreateAt int // 1-based create index to fail on; 0 disables
	failUpdate   bool
	afterCreate  func()
	onUpdate     func()
	creates      int
}

func (f *flakyStore) Create(ctx context.Context, kind string, data map[string]interface{}) (string, string, error) {
	f.creates++
	if f.failCreateAt > 0 && f.creates == f.failCreateAt {
		return "", "", errors.New("disk full")
	}
	id, ref, err := f.MemoryStore.Create(ctx, kind, data)
	if err == nil && f.afterCreate != nil {
		f.afterCreate()
	}
	return id, ref, err
}

func (f *flakyStore) Update(ctx context.Context, id string, partial map[string]interface{}) error {
	if f.failUpdate {
		return errors.New("write conflict")
	}
	if f.onUpdate != nil {
		f.onUpdate()
	}
	return f.MemoryStore.Update(ctx, id, partial)
}

func testController(docs store.DocumentStore, b *Broadcaster) *Controller {
	return NewController(docs, NewMonitor(b, nil, nil), 20*time.Millisecond, nil)
}

// seedSubject creates a subject document and returns its description.
func seedSubject(t *testing.T, mem *store.MemoryStore) rules.SubjectDescription {
	t.Helper()
	id, _, err := mem.Create(context.Background(), "feat", map[string]interface{}{
		"name":        "Weapon Focus",
		"description": "A +1 bonus to attack rolls.",
		"rules":       []interface{}{},
	})
	require.NoError(t, err)
	return rules.SubjectDescription{
		ID:          id,
		Name:        "Weapon Focus",
		EntityKind:  "feat",
		Level:       1,
		Description: "A +1 bonus to attack rolls.",
	}
}

func attackBonusSet() []rules.RuleObject {
	return []rules.RuleObject{
		{"key": "FlatModifier", "selector": "attack", "value": float64(1), "type": "circumstance"},
	}
}

func stancePlan() rules.SideEffectPlan {
	return rules.SideEffectPlan{
		Name:        "Effect: Defensive Stance",
		Description: "A +2 circumstance bonus to AC.",
		Duration:    rules.DurationUnlimited,
		Rules:       []rules.RuleObject{{"key": "FlatModifier", "selector": "ac", "value": float64(2)}},
		Traits:      []string{},
		Rarity:      "common",
	}
}

func TestApplyWithoutSideEffects(t *testing.T) {
	mem := store.NewMemoryStore()
	subject := seedSubject(t, mem)
	c := testController(mem, NewBroadcaster())

	set := attackBonusSet()
	outcome, err := c.Apply(context.Background(), subject, set, nil)
	require.NoError(t, err)

	// With no side effects the committed set is structurally identical to the
	// input.
	assert.True(t, rules.Equal(set, outcome.CommittedRules), cmp.Diff(set, outcome.CommittedRules))
	assert.Empty(t, outcome.CreatedSideEffects)
	assert.Empty(t, outcome.Signals)

	doc, err := mem.Get(context.Background(), subject.ID)
	require.NoError(t, err)
	stored, ok := doc.Data["rules"].([]interface{})
	require.True(t, ok)
	assert.Len(t, stored, 1)
	assert.Equal(t, "A +1 bonus to attack rolls.", doc.Data["description"],
		"description untouched when nothing needed linking")
}

func TestApplyCreatesAndLinksSideEffect(t *testing.T) {
	mem := store.NewMemoryStore()
	subject := seedSubject(t, mem)
	c := testController(mem, NewBroadcaster())

	outcome, err := c.Apply(context.Background(), subject, attackBonusSet(), []rules.SideEffectPlan{stancePlan()})
	require.NoError(t, err)

	require.Len(t, outcome.CreatedSideEffects, 1)
	eff := outcome.CreatedSideEffects[0]
	assert.Equal(t, "Effect: Defensive Stance", eff.Name)
	assert.NotEmpty(t, eff.StableReference)
	assert.Equal(t, 1, mem.CountKind(EffectDocumentKind))

	// The rewritten set carries an appended reference note.
	require.Len(t, outcome.CommittedRules, 2)
	note := outcome.CommittedRules[1]
	assert.Equal(t, "Note", note.Key())
	assert.Contains(t, note["text"], eff.StableReference)

	doc, err := mem.Get(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.Contains(t, doc.Data["description"], eff.StableReference,
		"description gains a reference line for non-aura effects")
}

func TestApplyLinksAuraEffectsInline(t *testing.T) {
	mem := store.NewMemoryStore()
	subject := seedSubject(t, mem)
	c := testController(mem, NewBroadcaster())

	set := []rules.RuleObject{{"key": "Aura", "radius": float64(15), "effects": []interface{}{}}}
	outcome, err := c.Apply(context.Background(), subject, set, []rules.SideEffectPlan{stancePlan()})
	require.NoError(t, err)

	// The effect lands inside the aura rule, not as an extra Note.
	require.Len(t, outcome.CommittedRules, 1)
	aura := outcome.CommittedRules[0]
	effects, ok := aura["effects"].([]interface{})
	require.True(t, ok)
	require.Len(t, effects, 1)
	entry, ok := effects[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, outcome.CreatedSideEffects[0].StableReference, entry["uuid"])

	doc, err := mem.Get(context.Background(), subject.ID)
	require.NoError(t, err)
	assert.Equal(t, subject.Description, doc.Data["description"],
		"aura linking leaves the description alone")
}

func TestApplyRollsBackOnCreateFailure(t *testing.T) {
	mem := store.NewMemoryStore()
	subject := seedSubject(t, mem)
	fs := &flakyStore{MemoryStore: mem, failCreateAt: 2}
	c := testController(fs, NewBroadcaster())

	plans := []rules.SideEffectPlan{stancePlan(), stancePlan()}
	_, err := c.Apply(context.Background(), subject, attackBonusSet(), plans)

	var cf *rules.CommitFailure
	require.True(t, errors.As(err, &cf))
	assert.Equal(t, "side-effects", cf.Stage)
	assert.Len(t, cf.RolledBack, 1, "the one created document is deleted again")
	assert.Empty(t, cf.RollbackErrs)
	assert.Zero(t, mem.CountKind(EffectDocumentKind), "no effect documents survive the rollback")

	doc, err := mem.Get(context.Background(), subject.ID)
	require.NoError(t, err)
	stored, ok := doc.Data["rules"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, stored, "subject rules stay untouched after a failed commit")
}

func TestApplyRollsBackOnUpdateFailure(t *testing.T) {
	mem := store.NewMemoryStore()
	subject := seedSubject(t, mem)
	fs := &flakyStore{MemoryStore: mem, failUpdate: true}
	c := testController(fs, NewBroadcaster())

	_, err := c.Apply(context.Background(), subject, attackBonusSet(), []rules.SideEffectPlan{stancePlan()})

	var cf *rules.CommitFailure
	require.True(t, errors.As(err, &cf))
	assert.Equal(t, "update", cf.Stage)
	assert.Zero(t, mem.CountKind(EffectDocumentKind))
}

func TestApplyCancellationDuringCreationRollsBack(t *testing.T) {
	mem := store.NewMemoryStore()
	subject := seedSubject(t, mem)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fs := &flakyStore{MemoryStore: mem, afterCreate: cancel}
	c := testController(fs, NewBroadcaster())

	plans := []rules.SideEffectPlan{stancePlan(), stancePlan()}
	_, err := c.Apply(ctx, subject, attackBonusSet(), plans)

	var cf *rules.CommitFailure
	require.True(t, errors.As(err, &cf))
	assert.Equal(t, "side-effects", cf.Stage)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, mem.CountKind(EffectDocumentKind),
		"rollback runs even under a cancelled context")
}

func TestApplyRejectsInvalidRulesBeforePersistence(t *testing.T) {
	mem := store.NewMemoryStore()
	subject := seedSubject(t, mem)
	fs := &flakyStore{MemoryStore: mem}
	c := testController(fs, NewBroadcaster())

	t.Run("main_set", func(t *testing.T) {
		bad := []rules.RuleObject{{"selector": "attack"}} // no discriminant
		_, err := c.Apply(context.Background(), subject, bad, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, rules.ErrInvalidRule))
	})

	t.Run("plan_rules", func(t *testing.T) {
		plan := stancePlan()
		plan.Rules = []rules.RuleObject{{"key": "FlatModifier"}} // missing selector
		_, err := c.Apply(context.Background(), subject, attackBonusSet(), []rules.SideEffectPlan{plan})
		require.Error(t, err)
		assert.True(t, errors.Is(err, rules.ErrInvalidRule))
	})

	assert.Zero(t, fs.creates, "validation failures must not touch the store")
}

func TestApplyCapturesSignalsEmittedDuringWindow(t *testing.T) {
	mem := store.NewMemoryStore()
	subject := seedSubject(t, mem)
	b := NewBroadcaster()
	fs := &flakyStore{MemoryStore: mem, onUpdate: func() {
		b.Publish("rule element validation failed: unknown selector \"atack\"")
	}}
	c := testController(fs, b)

	outcome, err := c.Apply(context.Background(), subject, attackBonusSet(), nil)
	require.NoError(t, err)
	require.Len(t, outcome.Signals, 1)
	assert.Contains(t, outcome.Signals[0].Message, "atack")
}

func TestApplySerializesConcurrentCommits(t *testing.T) {
	mem := store.NewMemoryStore()
	subject := seedSubject(t, mem)
	c := testController(mem, NewBroadcaster())

	const n = 4
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := c.Apply(context.Background(), subject, attackBonusSet(), nil)
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
}
