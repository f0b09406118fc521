// Command snapshot performs one full catalog refresh and exits. With -top N
// it also writes featured.json, the trimmed homepage derivative; that file
// is only updated by re-running this command.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"FadiSync/internal/catalog"
	"FadiSync/internal/config"
	"FadiSync/internal/syncer"
	"FadiSync/internal/woo"
	"FadiSync/pkg/kit"
)

const refreshTimeout = 5 * time.Minute

func main() {
	topN := flag.Int("top", 0, "also write featured.json with the top N published items")
	flag.Parse()

	cfg := config.Load()
	log := kit.NewLogger("snapshot", cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if cfg.WooBaseURL == "" {
		log.Fatal("WOO_BASE_URL is required")
	}

	store := catalog.NewFileStore(cfg.DataDir)
	remote := woo.NewClient(cfg.WooBaseURL, cfg.WooConsumerKey, cfg.WooConsumerSecret)

	snapshotter := &syncer.Snapshotter{
		Remote:   remote,
		Store:    store,
		Log:      log,
		PageSize: cfg.SyncPageSize,
	}

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	res, err := snapshotter.Refresh(ctx)
	if err != nil {
		log.Fatal("refresh failed", zap.Error(err))
	}
	log.Info("done",
		zap.String("run_id", res.RunID),
		zap.Int("products", res.Products),
		zap.Int("categories", res.Categories),
	)

	if *topN > 0 {
		if err := writeFeatured(ctx, store, cfg.DataDir, *topN); err != nil {
			log.Fatal("featured.json write failed", zap.Error(err))
		}
		log.Info("featured.json written", zap.Int("top", *topN))
	}
}

type featuredItem struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Slug   string          `json:"slug"`
	Price  string          `json:"price"`
	OnSale bool            `json:"on_sale"`
	Images json.RawMessage `json:"images,omitempty"`
}

func writeFeatured(ctx context.Context, store *catalog.FileStore, dir string, n int) error {
	snap, ok, err := store.Load(ctx)
	if err != nil {
		return err
	}

	var items []featuredItem
	if ok {
		for _, it := range catalog.Published(snap.Items) {
			items = append(items, featuredItem{
				ID:     it.ID,
				Name:   it.Name,
				Slug:   it.Slug,
				Price:  it.Price,
				OnSale: it.OnSale,
				Images: it.Images,
			})
			if len(items) == n {
				break
			}
		}
	}

	b, err := json.MarshalIndent(map[string]any{
		"items":       items,
		"count":       len(items),
		"generatedAt": time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "featured.json"), b, 0o644)
}
