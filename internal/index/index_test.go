package index

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/rules"
)

func modifierRule() []rules.RuleObject {
	return []rules.RuleObject{{"key": "FlatModifier", "selector": "attack", "value": 1}}
}

func kw(terms ...string) []rules.MechanicKeyword {
	out := make([]rules.MechanicKeyword, len(terms))
	for i, t := range terms {
		out[i] = rules.MechanicKeyword(t)
	}
	return out
}

func TestRetrieveScoringAndOrdering(t *testing.T) {
	idx := NewStaticIndex([]Entry{
		{ID: "1", Name: "Attack Bonus Feat", EntityKind: "feat", Description: "grants an attack bonus", Rules: modifierRule()},
		{ID: "2", Name: "Unrelated Feat", EntityKind: "feat", Description: "mentions an attack bonus in passing", Rules: modifierRule()},
		{ID: "3", Name: "Nothing Relevant", EntityKind: "feat", Description: "toughness", Rules: modifierRule()},
	})
	r := NewRetriever(idx, nil)

	got := r.Retrieve(context.Background(), "feat", kw("attack bonus"))
	require.Len(t, got, 2, "entries below the relevance threshold are dropped")

	// Name + body match outranks body-only match.
	assert.Equal(t, "1", got[0].ID)
	assert.InDelta(t, 0.7, got[0].RelevanceScore, 1e-9)
	assert.Equal(t, "2", got[1].ID)
	assert.InDelta(t, 0.2, got[1].RelevanceScore, 1e-9)
}

func TestRetrieveScoreIsCapped(t *testing.T) {
	idx := NewStaticIndex([]Entry{{
		ID:          "spam",
		Name:        "aura resistance weakness immunity toggle",
		EntityKind:  "feat",
		Description: "aura resistance weakness immunity toggle",
		Rules:       modifierRule(),
	}})
	r := NewRetriever(idx, nil)

	got := r.Retrieve(context.Background(), "feat", kw("aura", "resistance", "weakness", "immunity", "toggle"))
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].RelevanceScore)
}

func TestRetrieveTieBreakByRuleCount(t *testing.T) {
	twoRules := append(modifierRule(), rules.RuleObject{"key": "Note", "selector": "all", "text": "t"})
	idx := NewStaticIndex([]Entry{
		{ID: "lean", Name: "Aura Feat", EntityKind: "feat", Rules: modifierRule()},
		{ID: "rich", Name: "Aura Feat", EntityKind: "feat", Rules: twoRules},
	})
	r := NewRetriever(idx, nil)

	got := r.Retrieve(context.Background(), "feat", kw("aura"))
	require.Len(t, got, 2)
	assert.Equal(t, "rich", got[0].ID, "equal scores rank the richer rule set first")
}

func TestRetrieveCapsResultCount(t *testing.T) {
	var entries []Entry
	for i := 0; i < 9; i++ {
		entries = append(entries, Entry{
			ID:         fmt.Sprintf("e%d", i),
			Name:       "Aura Feat",
			EntityKind: "feat",
			Rules:      modifierRule(),
		})
	}
	r := NewRetriever(NewStaticIndex(entries), nil)

	got := r.Retrieve(context.Background(), "feat", kw("aura"))
	assert.Len(t, got, maxExamples)
}

func TestRetrieveSkipsEntriesWithoutRules(t *testing.T) {
	idx := NewStaticIndex([]Entry{
		{ID: "bare", Name: "Aura Feat", EntityKind: "feat"},
	})
	r := NewRetriever(idx, nil)

	assert.Empty(t, r.Retrieve(context.Background(), "feat", kw("aura")))
}

func TestRetrieveDegradesGracefully(t *testing.T) {
	t.Run("no_keywords", func(t *testing.T) {
		r := NewRetriever(NewStaticIndex(nil), nil)
		assert.Nil(t, r.Retrieve(context.Background(), "feat", nil))
	})

	t.Run("index_failure", func(t *testing.T) {
		r := NewRetriever(failingIndex{}, nil)
		assert.Nil(t, r.Retrieve(context.Background(), "feat", kw("aura")))
	})
}

func TestStaticIndexKindFilter(t *testing.T) {
	idx := NewStaticIndex([]Entry{
		{ID: "1", EntityKind: "feat"},
		{ID: "2", EntityKind: "Feat"},
		{ID: "3", EntityKind: "spell"},
	})

	feats, err := idx.Search(context.Background(), "feat")
	require.NoError(t, err)
	assert.Len(t, feats, 2, "kind matching is case-insensitive")

	all, err := idx.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

type failingIndex struct{}

func (failingIndex) Search(context.Context, string) ([]Entry, error) {
	return nil, errors.New("index offline")
}
