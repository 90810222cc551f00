package core

import "testing"

func TestSession_StateAndEvents(t *testing.T) {
	s := NewSession("sess-1")

	if _, ok := s.GetState("missing"); ok {
		t.Error("Unset key should not exist")
	}

	s.SetState("wake", true)
	if v, ok := s.GetState("wake"); !ok || v.(bool) != true {
		t.Fatalf("SetState/GetState mismatch: %v %v", v, ok)
	}

	s.ApplyStateDelta(map[string]any{"a": 1, "b": 2})
	if v, _ := s.GetState("a"); v.(int) != 1 {
		t.Error("ApplyStateDelta did not merge key a")
	}

	s.AddEvent(NewUserUtteranceEvent("d-1", "hello"))
	events := s.GetEvents()
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}

	// Defensive copy: mutating the returned slice must not affect the session
	events[0].Author = "tampered"
	if s.GetEvents()[0].Author != "user" {
		t.Error("GetEvents should return a copy")
	}
}

func TestSession_ConversationHistoryFiltering(t *testing.T) {
	s := NewSession("sess-1")

	s.AddEvent(NewUserUtteranceEvent("d-1", "hello"))
	s.AddEvent(NewMessageEvent("jarvis", "hi"))

	// Partial fragments are excluded
	partial := true
	frag := NewMessageEvent("jarvis", "h")
	frag.Partial = &partial
	s.AddEvent(frag)

	// Content-less control events are excluded
	s.AddEvent(NewEvent("d-1", "jarvis"))

	// System role is excluded from model-facing history
	sys := NewEvent("d-1", "system")
	sys.Content = &Content{Role: "system", Parts: []Part{TextPart{Text: "note"}}}
	s.AddEvent(sys)

	history := s.GetConversationHistory()
	if len(history) != 2 {
		t.Fatalf("Expected 2 conversational events, got %d", len(history))
	}
}

func TestSession_CloneIsolation(t *testing.T) {
	s := NewSession("sess-1")
	s.SetState("k", "v")
	s.AddEvent(NewUserUtteranceEvent("d-1", "hello"))
	s.Metadata["origin"] = "test"

	clone := s.Clone()
	clone.SetState("k", "changed")
	clone.AddEvent(NewMessageEvent("jarvis", "hi"))
	clone.Metadata["origin"] = "clone"

	if v, _ := s.GetState("k"); v.(string) != "v" {
		t.Error("Clone state mutation leaked into original")
	}
	if len(s.GetEvents()) != 1 {
		t.Error("Clone event append leaked into original")
	}
	if s.Metadata["origin"] != "test" {
		t.Error("Clone metadata mutation leaked into original")
	}
}
