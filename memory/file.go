package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oppositecube/jarvis/core"
)

// KindSystemInteraction routes a stored memory into the system_interactions
// section of the long-term document when set as the "kind" metadata value.
const KindSystemInteraction = "system_interaction"

// entry is one long-term memory record (a conversation snippet or a system
// interaction).
type entry struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// document is the on-disk shape of the long-term memory file.
type document struct {
	Conversations      []entry                   `json:"conversations"`
	LearnedPreferences map[string]map[string]any `json:"learned_preferences"`
	SystemInteractions []entry                   `json:"system_interactions"`
}

func emptyDocument() document {
	return document{
		Conversations:      []entry{},
		LearnedPreferences: map[string]map[string]any{},
		SystemInteractions: []entry{},
	}
}

// FileStore is a durable MemoryStore persisting long-term memory to a single
// JSON file (conventionally jarvis_memory.json). The whole document is held
// in memory and rewritten atomically (temp file + rename) on every mutation.
// A missing file loads as an empty document.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	doc    document
	nextID int
}

// NewFileStore loads (or initializes) the long-term memory file at path.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, doc: emptyDocument()}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read memory file %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("failed to decode memory file %s: %w", path, err)
	}

	if s.doc.LearnedPreferences == nil {
		s.doc.LearnedPreferences = map[string]map[string]any{}
	}

	s.nextID = len(s.doc.Conversations) + len(s.doc.SystemInteractions)

	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Get returns a copy of the learned preferences for the session.
func (s *FileStore) Get(sessionID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefs, ok := s.doc.LearnedPreferences[sessionID]
	if !ok {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(prefs))
	for k, v := range prefs {
		out[k] = v
	}
	return out, nil
}

// Put merges the delta into the session's learned preferences and persists.
func (s *FileStore) Put(sessionID string, delta map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefs, ok := s.doc.LearnedPreferences[sessionID]
	if !ok {
		prefs = map[string]any{}
		s.doc.LearnedPreferences[sessionID] = prefs
	}
	for k, v := range delta {
		prefs[k] = v
	}
	return s.saveLocked()
}

// Search scans conversations then system interactions of the session with
// case-insensitive substring matching, newest entries first, up to limit.
func (s *FileStore) Search(sessionID string, query string, limit int) ([]core.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	results := make([]core.SearchResult, 0, limit)

	scan := func(entries []entry) {
		for i := len(entries) - 1; i >= 0; i-- {
			if len(results) >= limit {
				return
			}
			e := entries[i]
			if e.SessionID != sessionID {
				continue
			}
			if query == "" || strings.Contains(strings.ToLower(e.Content), q) {
				md := make(map[string]any, len(e.Metadata))
				for k, v := range e.Metadata {
					md[k] = v
				}
				results = append(results, core.SearchResult{ID: e.ID, Content: e.Content, Score: 1.0, Metadata: md})
			}
		}
	}

	scan(s.doc.Conversations)
	scan(s.doc.SystemInteractions)

	return results, nil
}

// Store appends a long-term record. Metadata kind "system_interaction" routes
// the record into the system_interactions section; everything else lands in
// conversations.
func (s *FileStore) Store(sessionID string, content string, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{
		ID:        fmt.Sprintf("mem_%d", s.nextID),
		SessionID: sessionID,
		Content:   content,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}
	s.nextID++

	if kind, _ := metadata["kind"].(string); kind == KindSystemInteraction {
		s.doc.SystemInteractions = append(s.doc.SystemInteractions, e)
	} else {
		s.doc.Conversations = append(s.doc.Conversations, e)
	}

	return s.saveLocked()
}

// Delete removes a stored record by id from either section.
func (s *FileStore) Delete(sessionID string, memoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	remove := func(entries []entry) ([]entry, bool) {
		for i, e := range entries {
			if e.ID == memoryID && e.SessionID == sessionID {
				return append(entries[:i], entries[i+1:]...), true
			}
		}
		return entries, false
	}

	var found bool
	if s.doc.Conversations, found = remove(s.doc.Conversations); !found {
		if s.doc.SystemInteractions, found = remove(s.doc.SystemInteractions); !found {
			return fmt.Errorf("memory not found")
		}
	}

	return s.saveLocked()
}

// saveLocked writes the document atomically; caller must hold the write lock.
func (s *FileStore) saveLocked() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode memory file: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create memory directory %s: %w", dir, err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".jarvis_memory-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp memory file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write memory file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close memory file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace memory file %s: %w", s.path, err)
	}

	return nil
}
