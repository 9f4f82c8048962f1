package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Store is the enrolled face gallery: load everything, append new rows.
type Store interface {
	// Templates returns every enrolled template in enrollment order.
	Templates() ([]Template, error)

	// Append adds templates and persists the merged gallery.
	Append(templates ...Template) error

	// Labels returns the distinct enrolled labels, sorted.
	Labels() []string

	// Count returns the number of templates.
	Count() int

	// Close releases any resources held by the store.
	Close() error
}

// FileStore keeps the gallery in a single file. Writes go to a temp file
// that is renamed over the old file, so a reader never sees a partial
// gallery. Changes made by another process are picked up on the next read.
type FileStore struct {
	path  string
	codec Codec

	mu        sync.RWMutex
	templates []Template
	modTime   time.Time
	size      int64
}

// NewFileStore opens (or prepares to create) the gallery at path. The
// format follows the extension: .json or .msgpack.
func NewFileStore(path string) (*FileStore, error) {
	codec, err := CodecFor(path)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create gallery directory: %w", err)
	}

	s := &FileStore{path: path, codec: codec}
	if err := s.refresh(); err != nil {
		return nil, fmt.Errorf("load gallery: %w", err)
	}
	return s, nil
}

// Path returns the gallery file location.
func (s *FileStore) Path() string {
	return s.path
}

// refresh reloads the file if it changed on disk. Caller must not hold mu.
func (s *FileStore) refresh() error {
	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat gallery: %w", err)
	}

	s.mu.RLock()
	fresh := info.ModTime().Equal(s.modTime) && info.Size() == s.size
	s.mu.RUnlock()
	if fresh {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileStore) loadLocked() error {
	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat gallery: %w", err)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read gallery: %w", err)
	}

	var stored galleryFile
	if err := s.codec.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("decode %s gallery: %w", s.codec.Name(), err)
	}
	if _, err := checkLengths(stored.Templates); err != nil {
		return err
	}

	s.templates = stored.Templates
	s.modTime = info.ModTime()
	s.size = info.Size()
	return nil
}

// Templates returns a snapshot of the gallery.
func (s *FileStore) Templates() ([]Template, error) {
	if err := s.refresh(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Template, len(s.templates))
	copy(out, s.templates)
	return out, nil
}

// Append adds templates to the end of the gallery and saves it.
func (s *FileStore) Append(templates ...Template) error {
	if len(templates) == 0 {
		return nil
	}
	for _, t := range templates {
		if t.Label == "" {
			return ErrEmptyLabel
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Pick up rows appended by another process before merging.
	if err := s.loadLocked(); err != nil {
		return err
	}

	merged := make([]Template, 0, len(s.templates)+len(templates))
	merged = append(merged, s.templates...)
	merged = append(merged, templates...)
	if _, err := checkLengths(merged); err != nil {
		return err
	}

	if err := s.saveLocked(merged); err != nil {
		return err
	}
	s.templates = merged
	return nil
}

func (s *FileStore) saveLocked(templates []Template) error {
	stored := galleryFile{
		Version:   currentVersion,
		UpdatedAt: time.Now().Format(time.RFC3339),
		Templates: templates,
	}

	data, err := s.codec.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("encode gallery: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	if info, err := os.Stat(s.path); err == nil {
		s.modTime = info.ModTime()
		s.size = info.Size()
	}
	return nil
}

// Labels returns the distinct enrolled labels.
func (s *FileStore) Labels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var labels []string
	for _, t := range s.templates {
		if !seen[t.Label] {
			seen[t.Label] = true
			labels = append(labels, t.Label)
		}
	}
	sort.Strings(labels)
	return labels
}

// Count returns the number of templates currently loaded.
func (s *FileStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.templates)
}

// Close is a no-op for file stores.
func (s *FileStore) Close() error {
	return nil
}

// Ensure FileStore implements Store
var _ Store = (*FileStore)(nil)
