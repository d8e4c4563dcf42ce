// Package file stores playthrough states as JSON files in a directory.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/maruel/natural"
)

const (
	ext       = ".json"
	tmpPrefix = "tmp-"
)

// DefaultDir is used when New is given an empty directory.
var DefaultDir = filepath.Join(".inkwell", "sessions")

// Store implements ports.StateStore with one indented JSON file per session,
// named after the session ID.
type Store struct {
	BasePath string
}

// New returns a store rooted at dir. The directory is created on first save.
func New(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{BasePath: dir}
}

// filename rejects IDs that would escape the directory.
func (s *Store) filename(sessionID string) (string, error) {
	switch {
	case sessionID == "":
		return "", errors.New("session ID cannot be empty")
	case sessionID == "." || sessionID == ".." || strings.ContainsAny(sessionID, `/\`):
		return "", fmt.Errorf("invalid session ID %q", sessionID)
	}
	return filepath.Join(s.BasePath, sessionID+ext), nil
}

// Save writes the state next to its destination and renames it into place,
// so readers never see a partial file.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.State) error {
	name, err := s.filename(sessionID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	return writeAtomic(s.BasePath, name, tmpPrefix+sessionID+"-*", data)
}

func writeAtomic(dir, name, pattern string, data []byte) (err error) {
	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	// Windows refuses to rename open files or to rename over an existing one.
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err = os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	if err = os.Rename(tmp.Name(), name); err != nil {
		return fmt.Errorf("failed to move session file into place: %w", err)
	}
	return nil
}

// Load reads and validates a saved state.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	name, err := s.filename(sessionID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, domain.ErrSessionNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	return domain.DecodeState(data)
}

// Delete removes the session file if it exists.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	name, err := s.filename(sessionID)
	if err != nil {
		return err
	}
	if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// List returns the saved session IDs in natural order. Leftover temp files
// from interrupted saves are ignored.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return []string{}, nil
	case err != nil:
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, tmpPrefix) {
			continue
		}
		if id, ok := strings.CutSuffix(name, ext); ok {
			ids = append(ids, id)
		}
	}
	sort.Sort(natural.StringSlice(ids))
	return ids, nil
}
