package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	productsFile   = "products.json"
	categoriesFile = "categories.json"
	metadataFile   = "metadata.json"
)

// FileStore keeps the snapshot in JSON files under a data directory.
// Every write goes through one mutex and lands via temp-file + rename, so a
// crash mid-write never corrupts the visible files and the last full write
// is always intact.
type FileStore struct {
	dir string
	now func() time.Time

	mu sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, now: time.Now}
}

// WithClock overrides the store's clock.
func (s *FileStore) WithClock(now func() time.Time) *FileStore {
	s.now = now
	return s
}

func (s *FileStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.MkdirAll(s.dir, 0o755)
}

func (s *FileStore) Load(ctx context.Context) (Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, false, err
	}

	var snap Snapshot
	ok, err := readJSONFile(filepath.Join(s.dir, productsFile), &snap)
	if err != nil || !ok {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

func (s *FileStore) Replace(ctx context.Context, items []Item, categories []Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	prev, _, err := s.loadLocked()
	if err != nil {
		return err
	}

	now := s.now().UTC()
	SortByDateCreatedDesc(items)

	snap := Snapshot{
		Items:       items,
		TotalCount:  len(items),
		LastUpdated: now,
		Version:     prev.Version + 1,
	}

	if err := s.writeSnapshotLocked(snap); err != nil {
		return err
	}
	return s.writeJSONLocked(categoriesFile, CategoryList{
		Categories:  categories,
		TotalCount:  len(categories),
		LastUpdated: now,
	})
}

func (s *FileStore) Update(ctx context.Context, fn func(*Snapshot) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	snap, _, err := s.loadLocked()
	if err != nil {
		return Snapshot{}, err
	}

	if err := fn(&snap); err != nil {
		return Snapshot{}, err
	}

	now := s.now().UTC()
	SortByDateCreatedDesc(snap.Items)
	snap.TotalCount = len(snap.Items)
	snap.LastUpdated = now
	snap.LastWebhookUpdate = &now
	snap.Version++

	if err := s.writeSnapshotLocked(snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *FileStore) LoadCategories(ctx context.Context) (CategoryList, bool, error) {
	if err := ctx.Err(); err != nil {
		return CategoryList{}, false, err
	}

	var cl CategoryList
	ok, err := readJSONFile(filepath.Join(s.dir, categoriesFile), &cl)
	if err != nil || !ok {
		return CategoryList{}, false, err
	}
	return cl, true, nil
}

func (s *FileStore) LoadMetadata(ctx context.Context) (Metadata, bool, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, false, err
	}

	var md Metadata
	ok, err := readJSONFile(filepath.Join(s.dir, metadataFile), &md)
	if err != nil || !ok {
		return Metadata{}, false, err
	}
	return md, true, nil
}

func (s *FileStore) loadLocked() (Snapshot, bool, error) {
	var snap Snapshot
	ok, err := readJSONFile(filepath.Join(s.dir, productsFile), &snap)
	return snap, ok, err
}

func (s *FileStore) writeSnapshotLocked(snap Snapshot) error {
	if snap.Items == nil {
		snap.Items = []Item{}
	}
	if err := s.writeJSONLocked(productsFile, snap); err != nil {
		return err
	}
	return s.writeJSONLocked(metadataFile, DeriveMetadata(snap.Items, s.now()))
}

func (s *FileStore) writeJSONLocked(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	// Temp file in the same directory so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func readJSONFile(path string, v any) (bool, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return true, nil
}
