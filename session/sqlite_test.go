package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oppositecube/jarvis/core"
	"github.com/oppositecube/jarvis/internal/testutil"
)

// Interface compliance (compile-time assertion)
var _ core.SessionStore = (*SQLiteStore)(nil)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "jarvis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestSQLiteStore_RoundTripEvents(t *testing.T) {
	store := newTestSQLiteStore(t)

	userEv := testutil.NewEventBuilder().Author("user").Dispatch("d-1").UserText("open youtube").Build()
	callEv := testutil.NewEventBuilder().Dispatch("d-1").CommandCall("open_website", `{"site":"youtube"}`).Build()

	require.NoError(t, store.AppendEvent("sess-1", userEv))
	require.NoError(t, store.AppendEvent("sess-1", callEv))

	sess, err := store.Get("sess-1")
	require.NoError(t, err)
	require.Len(t, sess.Events, 2)

	assert.Equal(t, "open youtube", sess.Events[0].Content.Text())

	calls := sess.Events[1].GetCommandCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "open_website", calls[0].Name)
	assert.JSONEq(t, `{"site":"youtube"}`, calls[0].Arguments)
}

func TestSQLiteStore_PersistsEventActions(t *testing.T) {
	store := newTestSQLiteStore(t)

	ev := testutil.NewEventBuilder().
		Dispatch("d-1").
		AssistantText("going quiet").
		SkipMemory().
		StateDelta("mode", "quiet").
		Build()

	require.NoError(t, store.AppendEvent("sess-1", ev))

	sess, err := store.Get("sess-1")
	require.NoError(t, err)
	require.Len(t, sess.Events, 1)

	got := sess.Events[0]
	require.NotNil(t, got.Actions.SkipMemory)
	assert.True(t, *got.Actions.SkipMemory)
	assert.Equal(t, "quiet", got.Actions.StateDelta["mode"])
}

func TestSQLiteStore_ApplyDeltaMerges(t *testing.T) {
	store := newTestSQLiteStore(t)

	require.NoError(t, store.ApplyDelta("sess-1", map[string]interface{}{"awake": true}))
	require.NoError(t, store.ApplyDelta("sess-1", map[string]interface{}{"language": "en-US"}))

	sess, err := store.Get("sess-1")
	require.NoError(t, err)

	v, ok := sess.GetState("awake")
	require.True(t, ok)
	assert.Equal(t, true, v)

	v, ok = sess.GetState("language")
	require.True(t, ok)
	assert.Equal(t, "en-US", v)
}

func TestSQLiteStore_CreateResetsHistory(t *testing.T) {
	store := newTestSQLiteStore(t)

	require.NoError(t, store.AppendEvent("sess-1", core.NewUserUtteranceEvent("d-1", "hello")))

	_, err := store.Create("sess-1")
	require.NoError(t, err)

	sess, err := store.Get("sess-1")
	require.NoError(t, err)
	assert.Empty(t, sess.Events)
	assert.Empty(t, sess.State)
}
