package syncer

import (
	"context"
	"errors"
	"testing"

	"FadiSync/internal/catalog"
)

func TestSnapshotter_Refresh(t *testing.T) {
	remote := &fakeRemote{
		pages: [][]catalog.Item{{
			item(1, "one", day(1)),
			item(2, "two", day(2)),
		}},
		cats: [][]catalog.Category{{{ID: 5, Name: "SEO", Slug: "seo"}}},
	}
	store := catalog.NewMemStore()

	s := &Snapshotter{Remote: remote, Store: store}
	ctx := context.Background()

	res, err := s.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if res.Products != 2 || res.Categories != 1 || res.RunID == "" {
		t.Fatalf("result: %+v", res)
	}

	snap, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if snap.TotalCount != 2 {
		t.Fatalf("total=%d", snap.TotalCount)
	}
	if snap.Items[0].ID != 2 {
		t.Fatalf("order: first id=%d", snap.Items[0].ID)
	}
}

func TestSnapshotter_RefreshIdempotent(t *testing.T) {
	remote := &fakeRemote{
		pages: [][]catalog.Item{{item(1, "one", day(1)), item(2, "two", day(2))}},
	}
	store := catalog.NewMemStore()
	s := &Snapshotter{Remote: remote, Store: store}
	ctx := context.Background()

	if _, err := s.Refresh(ctx); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	first, _, _ := store.Load(ctx)

	if _, err := s.Refresh(ctx); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	second, _, _ := store.Load(ctx)

	if first.TotalCount != second.TotalCount {
		t.Fatalf("totalCount drifted: %d vs %d", first.TotalCount, second.TotalCount)
	}
	a, b := ids(first.Items), ids(second.Items)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("id sets differ: %v vs %v", a, b)
		}
	}
}

func TestSnapshotter_FetchFailureWritesNothing(t *testing.T) {
	remote := &fakeRemote{listErr: errors.New("remote down")}
	store := catalog.NewMemStore()
	s := &Snapshotter{Remote: remote, Store: store}
	ctx := context.Background()

	if _, err := s.Refresh(ctx); err == nil {
		t.Fatalf("expected error")
	}
	if _, ok, _ := store.Load(ctx); ok {
		t.Fatalf("partial refresh was persisted")
	}
}

func TestSnapshotter_CategoryFailureWritesNothing(t *testing.T) {
	remote := &fakeRemote{
		pages:   [][]catalog.Item{{item(1, "one", day(1))}},
		catsErr: errors.New("remote down"),
	}
	store := catalog.NewMemStore()
	s := &Snapshotter{Remote: remote, Store: store}
	ctx := context.Background()

	if _, err := s.Refresh(ctx); err == nil {
		t.Fatalf("expected error")
	}
	if _, ok, _ := store.Load(ctx); ok {
		t.Fatalf("items persisted despite category failure")
	}
}

func TestSnapshotter_FetchPagesCap(t *testing.T) {
	// Pages of exactly PageSize keep paging; the cap stops at maxPages.
	remote := &fakeRemote{
		pages: [][]catalog.Item{
			{item(1, "one", day(1)), item(2, "two", day(2))},
			{item(3, "three", day(3)), item(4, "four", day(4))},
			{item(5, "five", day(5))},
		},
	}
	s := &Snapshotter{Remote: remote, PageSize: 2}

	items, err := s.FetchPages(context.Background(), 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("items=%d want=4 (capped)", len(items))
	}
}

func TestSnapshotter_FetchPagesFiltersUnpublished(t *testing.T) {
	draft := item(2, "two", day(2))
	draft.Status = catalog.StatusDraft

	remote := &fakeRemote{
		pages: [][]catalog.Item{{item(1, "one", day(1)), draft}},
	}
	s := &Snapshotter{Remote: remote, PageSize: 100}

	items, err := s.FetchPages(context.Background(), 5)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 || items[0].ID != 1 {
		t.Fatalf("items: %+v", items)
	}
}
