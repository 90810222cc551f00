package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oppositecube/jarvis/core"
)

// Interface compliance (compile-time assertion)
var _ core.SessionStore = (*InMemoryStore)(nil)

func TestInMemoryStore_GetCreatesLazily(t *testing.T) {
	store := NewInMemoryStore()

	sess, err := store.Get("sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", sess.ID)
	assert.Empty(t, sess.Events)
}

func TestInMemoryStore_AppendEventAndDelta(t *testing.T) {
	store := NewInMemoryStore()

	ev := core.NewUserUtteranceEvent("d-1", "what time is it")
	require.NoError(t, store.AppendEvent("sess-1", ev))
	require.NoError(t, store.ApplyDelta("sess-1", map[string]interface{}{"awake": true}))

	sess, err := store.Get("sess-1")
	require.NoError(t, err)
	require.Len(t, sess.Events, 1)
	assert.Equal(t, ev.ID, sess.Events[0].ID)

	v, ok := sess.GetState("awake")
	require.True(t, ok)
	assert.Equal(t, true, v)
}

func TestInMemoryStore_ReturnsClones(t *testing.T) {
	store := NewInMemoryStore()

	first, err := store.Get("sess-1")
	require.NoError(t, err)
	first.SetState("poisoned", true)

	second, err := store.Get("sess-1")
	require.NoError(t, err)
	_, ok := second.GetState("poisoned")
	assert.False(t, ok, "mutating a returned session must not affect the store")
}
