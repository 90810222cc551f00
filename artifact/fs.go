package artifact

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FSStore is a durable ArtifactStore writing artifacts as files under a root
// directory, one subdirectory per session:
//
//	<root>/<sessionID>/<encoded artifactID>
//
// Session and artifact ids are hex-encoded path components so arbitrary ids
// (urls, titles with slashes) cannot escape the root directory. Writes are
// atomic (temp file + rename).
type FSStore struct {
	mu   sync.Mutex
	root string
}

// NewFSStore creates the root directory if needed and returns the store.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact root %s: %w", root, err)
	}
	return &FSStore{root: root}, nil
}

// Root returns the base directory of the store.
func (a *FSStore) Root() string { return a.root }

// Save writes the artifact bytes atomically.
func (a *FSStore) Save(sessionID, artifactID string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	dir := a.sessionDir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".artifact-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write artifact %s: %w", artifactID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close artifact %s: %w", artifactID, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, encodeID(artifactID))); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to store artifact %s: %w", artifactID, err)
	}

	return nil
}

// Get reads the artifact bytes or returns ErrNotFound.
func (a *FSStore) Get(sessionID, artifactID string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(a.sessionDir(sessionID), encodeID(artifactID)))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", artifactID, err)
	}
	return data, nil
}

// List returns the decoded artifact ids stored for the session.
func (a *FSStore) List(sessionID string) ([]string, error) {
	entries, err := os.ReadDir(a.sessionDir(sessionID))
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		id, err := decodeID(e.Name())
		if err != nil {
			continue // skip foreign files
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Delete removes the artifact file or returns ErrNotFound.
func (a *FSStore) Delete(sessionID, artifactID string) error {
	err := os.Remove(filepath.Join(a.sessionDir(sessionID), encodeID(artifactID)))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete artifact %s: %w", artifactID, err)
	}
	return nil
}

func (a *FSStore) sessionDir(sessionID string) string {
	return filepath.Join(a.root, encodeID(sessionID))
}

func encodeID(id string) string { return hex.EncodeToString([]byte(id)) }

func decodeID(name string) (string, error) {
	b, err := hex.DecodeString(name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
