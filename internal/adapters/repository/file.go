package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/okian/diarycal/internal/domain/model"
	"github.com/okian/diarycal/pkg/metrics"
)

const profileFilePermission = 0o600

// FileStore keeps all profiles in one JSON document keyed by scope key. Every
// mutation rewrites the document to a temp file and renames it over the old
// one.
type FileStore struct {
	mu    sync.Mutex
	path  string
	cache *MemoryStore
}

// OpenFileStore loads path if it exists. A missing file is an empty store.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, cache: NewMemoryStore()}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrStore, path, err)
	}

	doc := map[string]model.Profile{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %w", ErrStore, path, err)
		}
	}
	for key, p := range doc {
		if p.Scope.Key() != key {
			return nil, fmt.Errorf("%w: %s: key %q holds scope %q", ErrStore, path, key, p.Scope.Key())
		}
		s.cache.profiles[key] = p
	}
	return s, nil
}

func (s *FileStore) Get(ctx context.Context, scope model.Scope) (*model.Profile, error) {
	return s.cache.Get(ctx, scope)
}

func (s *FileStore) List(ctx context.Context) ([]model.Profile, error) {
	return s.cache.List(ctx)
}

func (s *FileStore) Set(ctx context.Context, p model.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot()
	next[p.Scope.Key()] = p.Clone()
	if err := s.persist(next); err != nil {
		return err
	}
	return s.cache.Set(ctx, p)
}

func (s *FileStore) Delete(ctx context.Context, scope model.Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.snapshot()
	if _, ok := next[scope.Key()]; !ok {
		return nil
	}
	delete(next, scope.Key())
	if err := s.persist(next); err != nil {
		return err
	}
	return s.cache.Delete(ctx, scope)
}

func (s *FileStore) snapshot() map[string]model.Profile {
	s.cache.mu.RLock()
	defer s.cache.mu.RUnlock()
	out := make(map[string]model.Profile, len(s.cache.profiles)+1)
	for k, p := range s.cache.profiles {
		out[k] = p
	}
	return out
}

func (s *FileStore) persist(doc map[string]model.Profile) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrStore, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		metrics.RecordStoreError("file")
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		metrics.RecordStoreError("file")
		return fmt.Errorf("%w: write: %w", ErrStore, err)
	}
	if err := tmp.Chmod(profileFilePermission); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: chmod: %w", ErrStore, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", ErrStore, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		metrics.RecordStoreError("file")
		return fmt.Errorf("%w: rename: %w", ErrStore, err)
	}
	return nil
}
