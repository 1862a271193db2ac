package database

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/kozaktomas/doorlock/internal/gallery"
)

const fileStoreVersion = 1

type fileSnapshot struct {
	Version   int
	Templates []gallery.Template
}

// FileStore keeps the gallery in a gob file. Every mutation rewrites the
// whole file through a temporary file and a rename.
type FileStore struct {
	path string

	mu        sync.Mutex
	templates []gallery.Template
	loaded    bool
}

// NewFileStore creates a store backed by path. The file is created on the
// first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load implements gallery.Store.
func (s *FileStore) Load(_ context.Context) ([]gallery.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	return slices.Clone(s.templates), nil
}

// Append implements gallery.Store.
func (s *FileStore) Append(_ context.Context, tpl gallery.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}
	if tpl.ID != len(s.templates) {
		return fmt.Errorf("template id %d out of sequence, expected %d", tpl.ID, len(s.templates))
	}

	next := append(slices.Clone(s.templates), tpl)
	if err := s.write(next); err != nil {
		return err
	}
	s.templates = next
	return nil
}

// Remove implements gallery.Store.
func (s *FileStore) Remove(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}
	i := slices.IndexFunc(s.templates, func(t gallery.Template) bool { return t.ID == id })
	if i < 0 {
		return fmt.Errorf("template %d not found", id)
	}

	next := slices.Delete(slices.Clone(s.templates), i, i+1)
	if err := s.write(next); err != nil {
		return err
	}
	s.templates = next
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) loadLocked() error {
	if s.loaded {
		return nil
	}

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open gallery file: %w", err)
	}
	defer f.Close()

	var snap fileSnapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode gallery file: %w", err)
	}
	if snap.Version != fileStoreVersion {
		return fmt.Errorf("unsupported gallery file version %d", snap.Version)
	}

	s.templates = snap.Templates
	s.loaded = true
	return nil
}

func (s *FileStore) write(templates []gallery.Template) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create gallery directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".gallery-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	snap := fileSnapshot{Version: fileStoreVersion, Templates: templates}
	if err := gob.NewEncoder(tmp).Encode(snap); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode gallery: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync gallery file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close gallery file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace gallery file: %w", err)
	}
	return nil
}
