package core

import "testing"

func TestRunContext_EmitEventStateAndArtifacts(t *testing.T) {
	rc, emitCh := newRunContextForTest()
	rc.SetState("foo", "bar")
	rc.AddArtifact("file1")

	ev := NewEvent(rc.DispatchID, "jarvis")
	if err := rc.EmitEvent(ev); err != nil {
		t.Fatalf("EmitEvent error: %v", err)
	}

	received := <-emitCh
	if received.Actions.StateDelta["foo"].(string) != "bar" {
		t.Fatalf("State delta missing: %+v", received.Actions)
	}
	if received.Actions.ArtifactDelta["file1"] != 1 {
		t.Fatalf("Artifact delta missing: %+v", received.Actions)
	}
	if len(rc.StateDelta) != 0 || len(rc.Artifacts) != 0 {
		t.Fatal("StateDelta & Artifacts should clear after emit")
	}
}

func TestRunContext_CommitStateDelta(t *testing.T) {
	rc, _ := newRunContextForTest()
	store := rc.SessionStore.(*mockSessionStore)

	rc.SetState("k1", 123)
	if err := rc.CommitStateDelta(); err != nil {
		t.Fatalf("CommitStateDelta error: %v", err)
	}
	if store.applied[rc.SessionID]["k1"].(int) != 123 {
		t.Fatalf("State delta not applied: %+v", store.applied)
	}
	if len(rc.StateDelta) != 0 {
		t.Error("StateDelta should be cleared after commit")
	}
}

func TestRunContext_GetStatePrefersDelta(t *testing.T) {
	rc, _ := newRunContextForTest()
	rc.Session.SetState("k", "persisted")

	if v, _ := rc.GetState("k"); v.(string) != "persisted" {
		t.Error("Expected persisted value before staging")
	}

	rc.SetState("k", "staged")
	if v, _ := rc.GetState("k"); v.(string) != "staged" {
		t.Error("Staged delta should shadow persisted value")
	}
}

func TestRunContext_CloneIsolation(t *testing.T) {
	rc, _ := newRunContextForTest()
	rc.SetState("a", 1)
	rc.AddArtifact("f1")

	clone := rc.Clone()
	if clone.Session != rc.Session {
		t.Error("Session pointer should be shared")
	}

	clone.SetState("b", 2)
	if _, exists := rc.StateDelta["b"]; exists {
		t.Error("Original should not have clone's new state")
	}
	if v, _ := clone.GetState("a"); v.(int) != 1 {
		t.Error("Clone missing original state")
	}
}

func TestRunContext_ArtifactsAndMemory(t *testing.T) {
	rc, _ := newRunContextForTest()

	if err := rc.SaveArtifact("notes", []byte("payload")); err != nil {
		t.Fatalf("SaveArtifact error: %v", err)
	}
	data, err := rc.GetArtifact("notes")
	if err != nil || string(data) != "payload" {
		t.Fatalf("GetArtifact mismatch: %q %v", data, err)
	}
	ids, err := rc.ListArtifacts()
	if err != nil || len(ids) != 1 {
		t.Fatalf("ListArtifacts mismatch: %v %v", ids, err)
	}

	if err := rc.StoreMemory("User likes jazz", map[string]any{"kind": "preference"}); err != nil {
		t.Fatalf("StoreMemory error: %v", err)
	}
	hits, err := rc.SearchMemory("jazz", 5)
	if err != nil || len(hits) != 1 {
		t.Fatalf("SearchMemory mismatch: %v %v", hits, err)
	}
}

func TestRunContext_RefreshSession(t *testing.T) {
	rc, _ := newRunContextForTest()
	store := rc.SessionStore.(*mockSessionStore)

	if err := store.ApplyDelta(rc.SessionID, map[string]any{"fresh": true}); err != nil {
		t.Fatalf("ApplyDelta error: %v", err)
	}
	if err := rc.RefreshSession(); err != nil {
		t.Fatalf("RefreshSession error: %v", err)
	}
	if v, ok := rc.Session.GetState("fresh"); !ok || v.(bool) != true {
		t.Error("Refreshed session missing applied state")
	}
}

func TestRunContext_WaitForResumeNilChannel(t *testing.T) {
	rc, _ := newRunContextForTest()
	if err := rc.WaitForResume(); err != nil {
		t.Fatalf("Nil resume channel should return immediately: %v", err)
	}
}

func TestModelLimiter(t *testing.T) {
	ml := NewModelLimiter(2)
	if err := ml.Increment(); err != nil {
		t.Fatalf("First increment should pass: %v", err)
	}
	if err := ml.Increment(); err != nil {
		t.Fatalf("Second increment should pass: %v", err)
	}
	if err := ml.Increment(); err == nil {
		t.Error("Third increment should exceed the limit")
	}
	if ml.Count() != 3 {
		t.Errorf("Expected count 3, got %d", ml.Count())
	}

	unlimited := NewModelLimiter(0)
	for i := 0; i < 10; i++ {
		if err := unlimited.Increment(); err != nil {
			t.Fatalf("Unlimited limiter should never error: %v", err)
		}
	}
}
