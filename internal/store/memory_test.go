package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreIsolation(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	input := map[string]interface{}{"name": "Weapon Focus", "rules": []interface{}{}}
	id, _, err := m.Create(ctx, "feat", input)
	require.NoError(t, err)

	// Mutating the caller's map after Create must not reach stored state.
	input["name"] = "mutated"
	doc, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Weapon Focus", doc.Data["name"])

	// Mutating a returned copy must not reach stored state either.
	doc.Data["name"] = "also mutated"
	again, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Weapon Focus", again.Data["name"])
}

func TestMemoryStoreCounts(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	_, _, err := m.Create(ctx, "feat", nil)
	require.NoError(t, err)
	id, _, err := m.Create(ctx, "effect", nil)
	require.NoError(t, err)
	_, _, err = m.Create(ctx, "effect", nil)
	require.NoError(t, err)

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, 2, m.CountKind("effect"))

	require.NoError(t, m.Delete(ctx, id))
	assert.Equal(t, 1, m.CountKind("effect"))
}
