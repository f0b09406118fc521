package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"FadiSync/internal/catalog"
)

type fakeRemote struct {
	pages [][]catalog.Item
	cats  [][]catalog.Category
	delta []catalog.Item

	listErr  error
	deltaErr error
	catsErr  error

	listCalls  int
	deltaCalls int
	lastAfter  time.Time
}

func (f *fakeRemote) ListProducts(_ context.Context, page, _ int) ([]catalog.Item, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if page <= len(f.pages) {
		return f.pages[page-1], nil
	}
	return nil, nil
}

func (f *fakeRemote) ListModifiedSince(_ context.Context, after time.Time, _ int) ([]catalog.Item, error) {
	f.deltaCalls++
	f.lastAfter = after
	if f.deltaErr != nil {
		return nil, f.deltaErr
	}
	return f.delta, nil
}

func (f *fakeRemote) ListCategories(_ context.Context, page, _ int) ([]catalog.Category, error) {
	if f.catsErr != nil {
		return nil, f.catsErr
	}
	if page <= len(f.cats) {
		return f.cats[page-1], nil
	}
	return nil, nil
}

func item(id int64, name string, created time.Time) catalog.Item {
	return catalog.Item{
		ID:           id,
		Name:         name,
		Slug:         name,
		Status:       catalog.StatusPublish,
		DateCreated:  created,
		DateModified: created,
	}
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func ids(items []catalog.Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestCache_BaselineThenMerge(t *testing.T) {
	remote := &fakeRemote{
		pages: [][]catalog.Item{{
			item(1, "one", day(1)),
			item(2, "two", day(2)),
			item(3, "three", day(3)),
		}},
	}
	c := NewCache(remote, 100, nil, nil)
	ctx := context.Background()

	res, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("baseline get: %v", err)
	}
	if res.FromCache {
		t.Fatalf("baseline fromCache=true")
	}
	if res.TotalCount != 3 {
		t.Fatalf("baseline total=%d", res.TotalCount)
	}

	remote.delta = []catalog.Item{
		item(2, "two-prime", day(2)),
		item(4, "four", day(4)),
	}

	res, err = c.Get(ctx)
	if err != nil {
		t.Fatalf("incremental get: %v", err)
	}
	if res.FromCache {
		t.Fatalf("non-empty delta reported fromCache")
	}
	if res.NewCount != 1 || res.UpdatedCount != 1 {
		t.Fatalf("newCount=%d updatedCount=%d", res.NewCount, res.UpdatedCount)
	}

	got := ids(res.Items)
	want := []int64{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids=%v want=%v", got, want)
		}
	}
	if res.Items[1].Name != "two-prime" {
		t.Fatalf("item 2 not replaced in place: %+v", res.Items[1])
	}
	if res.TotalCount != 4 {
		t.Fatalf("total=%d", res.TotalCount)
	}
}

func TestCache_EmptyDeltaServedFromCache(t *testing.T) {
	remote := &fakeRemote{pages: [][]catalog.Item{{item(1, "one", day(1))}}}
	c := NewCache(remote, 100, nil, nil)
	ctx := context.Background()

	if _, err := c.Get(ctx); err != nil {
		t.Fatalf("baseline: %v", err)
	}

	res, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !res.FromCache {
		t.Fatalf("fromCache=false on empty delta")
	}
	if res.TotalCount != 1 {
		t.Fatalf("total=%d", res.TotalCount)
	}
}

func TestCache_FetchErrorAfterBaselineServesCache(t *testing.T) {
	remote := &fakeRemote{pages: [][]catalog.Item{{item(1, "one", day(1))}}}
	c := NewCache(remote, 100, nil, nil)
	ctx := context.Background()

	if _, err := c.Get(ctx); err != nil {
		t.Fatalf("baseline: %v", err)
	}

	remote.deltaErr = errors.New("remote down")

	res, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("get after remote failure: %v", err)
	}
	if !res.FromCache {
		t.Fatalf("fromCache=false after fetch error")
	}
	if res.TotalCount != 1 || res.Items[0].Name != "one" {
		t.Fatalf("cache contents changed: %+v", res.Items)
	}
}

func TestCache_FirstCallErrorPropagates(t *testing.T) {
	remote := &fakeRemote{listErr: errors.New("remote down")}
	c := NewCache(remote, 100, nil, nil)

	if _, err := c.Get(context.Background()); err == nil {
		t.Fatalf("expected baseline error")
	}
}

func TestCache_ClearForcesRebaseline(t *testing.T) {
	remote := &fakeRemote{pages: [][]catalog.Item{{item(1, "one", day(1))}}}
	c := NewCache(remote, 100, nil, nil)
	ctx := context.Background()

	if _, err := c.Get(ctx); err != nil {
		t.Fatalf("baseline: %v", err)
	}
	baselineCalls := remote.listCalls

	c.Clear()

	if st := c.Stats(); st.Baseline || st.Size != 0 || st.LastFetch != nil {
		t.Fatalf("stats after clear: %+v", st)
	}

	res, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("rebaseline: %v", err)
	}
	if res.FromCache {
		t.Fatalf("rebaseline fromCache=true")
	}
	if remote.listCalls <= baselineCalls {
		t.Fatalf("full fetch not re-run after clear")
	}
	if remote.deltaCalls != 0 {
		t.Fatalf("modified-since used for baseline")
	}
}

func TestCache_ModifiedSinceUsesLastFetch(t *testing.T) {
	remote := &fakeRemote{pages: [][]catalog.Item{{item(1, "one", day(1))}}}

	clock := day(20)
	c := NewCache(remote, 100, nil, nil).WithClock(func() time.Time { return clock })
	ctx := context.Background()

	if _, err := c.Get(ctx); err != nil {
		t.Fatalf("baseline: %v", err)
	}

	clock = day(21)
	if _, err := c.Get(ctx); err != nil {
		t.Fatalf("get: %v", err)
	}
	if !remote.lastAfter.Equal(day(20)) {
		t.Fatalf("modified_after=%v want=%v", remote.lastAfter, day(20))
	}
}
