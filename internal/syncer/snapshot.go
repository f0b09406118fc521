package syncer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"FadiSync/internal/catalog"
)

// Lister is the slice of the remote client the sync mechanisms need.
type Lister interface {
	ListProducts(ctx context.Context, page, perPage int) ([]catalog.Item, error)
	ListModifiedSince(ctx context.Context, after time.Time, perPage int) ([]catalog.Item, error)
	ListCategories(ctx context.Context, page, perPage int) ([]catalog.Category, error)
}

const defaultPageSize = 100

// Snapshotter replaces the persisted snapshot wholesale from the remote
// catalog. A failed page aborts the run before anything is written.
type Snapshotter struct {
	Remote   Lister
	Store    catalog.Store
	Log      *zap.Logger
	Metrics  *Metrics
	PageSize int
}

type RefreshResult struct {
	RunID      string `json:"runId"`
	Products   int    `json:"products"`
	Categories int    `json:"categories"`
	TookMS     int64  `json:"tookMs"`
}

func (s *Snapshotter) Refresh(ctx context.Context) (RefreshResult, error) {
	runID := uuid.NewString()
	start := time.Now()

	items, err := fetchAllProducts(ctx, s.Remote, s.pageSize())
	if err != nil {
		s.fail(runID, "product fetch failed", err)
		return RefreshResult{}, err
	}

	categories, err := s.fetchAllCategories(ctx)
	if err != nil {
		s.fail(runID, "category fetch failed", err)
		return RefreshResult{}, err
	}

	if err := s.Store.Replace(ctx, items, categories); err != nil {
		s.fail(runID, "snapshot write failed", err)
		return RefreshResult{}, err
	}

	s.Metrics.syncRun(true)
	s.Metrics.snapshotSize(len(items))

	res := RefreshResult{
		RunID:      runID,
		Products:   len(items),
		Categories: len(categories),
		TookMS:     time.Since(start).Milliseconds(),
	}
	if s.Log != nil {
		s.Log.Info("snapshot refreshed",
			zap.String("run_id", runID),
			zap.Int("products", res.Products),
			zap.Int("categories", res.Categories),
			zap.Duration("took", time.Since(start)),
		)
	}
	return res, nil
}

// FetchPages fetches at most maxPages pages of published items and never
// writes. The sitemap consumer accepts the incomplete result on purpose.
func (s *Snapshotter) FetchPages(ctx context.Context, maxPages int) ([]catalog.Item, error) {
	perPage := s.pageSize()
	var all []catalog.Item

	for page := 1; page <= maxPages; page++ {
		items, err := s.Remote.ListProducts(ctx, page, perPage)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < perPage {
			break
		}
	}

	return catalog.Published(all), nil
}

func (s *Snapshotter) fetchAllCategories(ctx context.Context) ([]catalog.Category, error) {
	perPage := s.pageSize()
	var all []catalog.Category

	for page := 1; ; page++ {
		cats, err := s.Remote.ListCategories(ctx, page, perPage)
		if err != nil {
			return nil, err
		}
		all = append(all, cats...)
		if len(cats) < perPage {
			return all, nil
		}
	}
}

func (s *Snapshotter) pageSize() int {
	if s.PageSize > 0 {
		return s.PageSize
	}
	return defaultPageSize
}

func (s *Snapshotter) fail(runID, msg string, err error) {
	s.Metrics.syncRun(false)
	if s.Log != nil {
		s.Log.Error(msg, zap.String("run_id", runID), zap.Error(err))
	}
}

// fetchAllProducts pages until a page comes back shorter than perPage.
func fetchAllProducts(ctx context.Context, remote Lister, perPage int) ([]catalog.Item, error) {
	var all []catalog.Item

	for page := 1; ; page++ {
		items, err := remote.ListProducts(ctx, page, perPage)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < perPage {
			return all, nil
		}
	}
}
