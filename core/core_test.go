package core

import (
	"context"
	"strings"

	"github.com/oppositecube/jarvis/logging"
)

// Shared in-package mocks for RunContext / CommandContext tests.

type mockSessionStore struct {
	sessions map[string]*Session
	applied  map[string]map[string]any
	appended map[string][]Event
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{
		sessions: map[string]*Session{},
		applied:  map[string]map[string]any{},
		appended: map[string][]Event{},
	}
}

func (m *mockSessionStore) Create(id string) (*Session, error) {
	s := NewSession(id)
	m.sessions[id] = s
	return s, nil
}

func (m *mockSessionStore) Get(id string) (*Session, error) {
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	return m.Create(id)
}

func (m *mockSessionStore) AppendEvent(sessionID string, event Event) error {
	s, _ := m.Get(sessionID)
	s.AddEvent(event)
	m.appended[sessionID] = append(m.appended[sessionID], event)
	return nil
}

func (m *mockSessionStore) ApplyDelta(sessionID string, delta map[string]any) error {
	s, _ := m.Get(sessionID)
	s.ApplyStateDelta(delta)
	if m.applied[sessionID] == nil {
		m.applied[sessionID] = map[string]any{}
	}
	for k, v := range delta {
		m.applied[sessionID][k] = v
	}
	return nil
}

type storedMemory struct {
	content  string
	metadata map[string]any
}

type mockMemoryStore struct {
	prefs  map[string]map[string]any
	stored map[string][]storedMemory
}

func newMockMemoryStore() *mockMemoryStore {
	return &mockMemoryStore{
		prefs:  map[string]map[string]any{},
		stored: map[string][]storedMemory{},
	}
}

func (m *mockMemoryStore) Get(sessionID string) (map[string]any, error) {
	if p, ok := m.prefs[sessionID]; ok {
		return p, nil
	}
	return map[string]any{}, nil
}

func (m *mockMemoryStore) Put(sessionID string, delta map[string]any) error {
	if m.prefs[sessionID] == nil {
		m.prefs[sessionID] = map[string]any{}
	}
	for k, v := range delta {
		m.prefs[sessionID][k] = v
	}
	return nil
}

func (m *mockMemoryStore) Search(sessionID, query string, limit int) ([]SearchResult, error) {
	var results []SearchResult
	for _, sm := range m.stored[sessionID] {
		if strings.Contains(strings.ToLower(sm.content), strings.ToLower(query)) {
			results = append(results, SearchResult{Content: sm.content})
		}
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (m *mockMemoryStore) Store(sessionID, content string, metadata map[string]any) error {
	m.stored[sessionID] = append(m.stored[sessionID], storedMemory{content: content, metadata: metadata})
	return nil
}

func (m *mockMemoryStore) Delete(sessionID, memoryID string) error { return nil }

type mockArtifactStore struct {
	data map[string]map[string][]byte
}

func newMockArtifactStore() *mockArtifactStore {
	return &mockArtifactStore{data: map[string]map[string][]byte{}}
}

func (m *mockArtifactStore) Save(sessionID, artifactID string, data []byte) error {
	if m.data[sessionID] == nil {
		m.data[sessionID] = map[string][]byte{}
	}
	m.data[sessionID][artifactID] = data
	return nil
}

func (m *mockArtifactStore) Get(sessionID, artifactID string) ([]byte, error) {
	return m.data[sessionID][artifactID], nil
}

func (m *mockArtifactStore) List(sessionID string) ([]string, error) {
	var ids []string
	for id := range m.data[sessionID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockArtifactStore) Delete(sessionID, artifactID string) error {
	delete(m.data[sessionID], artifactID)
	return nil
}

// newRunContextForTest builds a RunContext with mock services and a buffered
// emit channel. Resume is nil so WaitForResume returns immediately.
func newRunContextForTest() (*RunContext, chan Event) {
	sessStore := newMockSessionStore()
	sess, _ := sessStore.Get("sess-1")

	emit := make(chan Event, 8)
	rc := NewRunContext(
		context.Background(), "sess-1", "d-1",
		AgentInfo{Name: "jarvis", Type: "assistant"},
		NewUserText("hello"), 3, emit, nil, sess,
		sessStore, newMockArtifactStore(), newMockMemoryStore(),
		logging.NoOpLogger{},
	)

	return rc, emit
}
