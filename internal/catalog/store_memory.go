package catalog

import (
	"context"
	"sync"
	"time"
)

// MemStore mirrors the file store's semantics in memory. Used in tests and
// handler wiring where no durable snapshot is wanted.
type MemStore struct {
	now func() time.Time

	mu         sync.Mutex
	snap       Snapshot
	hasSnap    bool
	categories CategoryList
	hasCats    bool
}

func NewMemStore() *MemStore {
	return &MemStore{now: time.Now}
}

func (s *MemStore) WithClock(now func() time.Time) *MemStore {
	s.now = now
	return s
}

func (s *MemStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemStore) Load(ctx context.Context) (Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap, s.hasSnap, nil
}

func (s *MemStore) Replace(ctx context.Context, items []Item, categories []Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	cp := make([]Item, len(items))
	copy(cp, items)
	SortByDateCreatedDesc(cp)

	s.snap = Snapshot{
		Items:       cp,
		TotalCount:  len(cp),
		LastUpdated: now,
		Version:     s.snap.Version + 1,
	}
	s.hasSnap = true

	s.categories = CategoryList{
		Categories:  categories,
		TotalCount:  len(categories),
		LastUpdated: now,
	}
	s.hasCats = true
	return nil
}

func (s *MemStore) Update(ctx context.Context, fn func(*Snapshot) error) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snap
	snap.Items = make([]Item, len(s.snap.Items))
	copy(snap.Items, s.snap.Items)

	if err := fn(&snap); err != nil {
		return Snapshot{}, err
	}

	now := s.now().UTC()
	SortByDateCreatedDesc(snap.Items)
	snap.TotalCount = len(snap.Items)
	snap.LastUpdated = now
	snap.LastWebhookUpdate = &now
	snap.Version++

	s.snap = snap
	s.hasSnap = true
	return snap, nil
}

func (s *MemStore) LoadCategories(ctx context.Context) (CategoryList, bool, error) {
	if err := ctx.Err(); err != nil {
		return CategoryList{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categories, s.hasCats, nil
}

func (s *MemStore) LoadMetadata(ctx context.Context) (Metadata, bool, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasSnap {
		return Metadata{}, false, nil
	}
	return DeriveMetadata(s.snap.Items, s.now()), true, nil
}
