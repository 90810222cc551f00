package core

import "testing"

func TestCommandContext_Identity(t *testing.T) {
	rc, _ := newRunContextForTest()
	cc := NewCommandContext(rc, "cc-1")

	if cc.SessionID() != "sess-1" || cc.DispatchID() != "d-1" || cc.CommandCallID() != "cc-1" {
		t.Fatalf("Identity accessors mismatch: %s %s %s", cc.SessionID(), cc.DispatchID(), cc.CommandCallID())
	}
	if cc.AgentName() != "jarvis" {
		t.Errorf("Expected agent jarvis, got %s", cc.AgentName())
	}
	if err := cc.Validate(); err != nil {
		t.Errorf("Valid context should validate: %v", err)
	}
	if !cc.IsValid() {
		t.Error("IsValid should be true")
	}
}

func TestCommandContext_SetStateStagesBothPlaces(t *testing.T) {
	rc, _ := newRunContextForTest()
	cc := NewCommandContext(rc, "cc-1")

	cc.SetState("volume", 7)

	// Immediately visible through the run context
	if v, ok := rc.GetState("volume"); !ok || v.(int) != 7 {
		t.Fatalf("State not visible via run context: %v %v", v, ok)
	}

	// And staged on the local event actions for the result event
	if cc.Actions().StateDelta["volume"].(int) != 7 {
		t.Fatalf("State not staged on event actions: %+v", cc.Actions())
	}
}

func TestCommandContext_FlagsAndApplyActions(t *testing.T) {
	rc, _ := newRunContextForTest()
	cc := NewCommandContext(rc, "cc-1")

	cc.SetState("k", "v")
	cc.SkipMemory()
	cc.EndSession()

	ev := NewCommandResultEvent("jarvis", "cc-1", "sleep", "ok", nil)
	cc.InternalApplyActions(&ev)

	if ev.Actions.StateDelta["k"].(string) != "v" {
		t.Error("StateDelta not applied to event")
	}
	if ev.Actions.SkipMemory == nil || !*ev.Actions.SkipMemory {
		t.Error("SkipMemory not applied to event")
	}
	if ev.Actions.EndSession == nil || !*ev.Actions.EndSession {
		t.Error("EndSession not applied to event")
	}
}

func TestCommandContext_ArtifactDelta(t *testing.T) {
	rc, _ := newRunContextForTest()
	cc := NewCommandContext(rc, "cc-1")

	if err := cc.SaveArtifact("report", []byte("abcdef")); err != nil {
		t.Fatalf("SaveArtifact error: %v", err)
	}

	data, err := cc.LoadArtifact("report")
	if err != nil || string(data) != "abcdef" {
		t.Fatalf("LoadArtifact mismatch: %q %v", data, err)
	}

	ev := NewEvent("d-1", "jarvis")
	cc.InternalApplyActions(&ev)
	if ev.Actions.ArtifactDelta["report"] != 6 {
		t.Fatalf("Artifact delta should record size: %+v", ev.Actions.ArtifactDelta)
	}
}

func TestCommandContext_Preferences(t *testing.T) {
	rc, _ := newRunContextForTest()
	cc := NewCommandContext(rc, "cc-1")

	if err := cc.PutPreferences(map[string]any{"genre": "jazz"}); err != nil {
		t.Fatalf("PutPreferences error: %v", err)
	}

	prefs, err := cc.GetPreferences()
	if err != nil || prefs["genre"].(string) != "jazz" {
		t.Fatalf("GetPreferences mismatch: %v %v", prefs, err)
	}
}

func TestCommandContext_ValidateRejectsMissingCallID(t *testing.T) {
	rc, _ := newRunContextForTest()
	cc := NewCommandContext(rc, "")

	if err := cc.Validate(); err == nil {
		t.Error("Empty command call id should fail validation")
	}
	if cc.IsValid() {
		t.Error("IsValid should be false")
	}
}
