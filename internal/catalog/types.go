package catalog

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/samber/lo"
)

const (
	StatusPublish = "publish"
	StatusDraft   = "draft"

	StockInStock    = "instock"
	StockOutOfStock = "outofstock"
)

// Item mirrors one purchasable product from the remote store. ID is the
// remote system's stable identifier and the primary key for every merge.
type Item struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Status       string          `json:"status"`
	Price        string          `json:"price"`
	RegularPrice string          `json:"regular_price"`
	SalePrice    string          `json:"sale_price"`
	OnSale       bool            `json:"on_sale"`
	Featured     bool            `json:"featured"`
	StockStatus  string          `json:"stock_status"`
	DateCreated  time.Time       `json:"date_created"`
	DateModified time.Time       `json:"date_modified"`
	Categories   []CategoryRef   `json:"categories,omitempty"`
	Images       json.RawMessage `json:"images,omitempty"`
	MetaData     json.RawMessage `json:"meta_data,omitempty"`
}

type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// Snapshot is the persisted catalog mirror. Version increases on every
// store write so lost updates are detectable from the outside.
type Snapshot struct {
	Items             []Item     `json:"items"`
	TotalCount        int        `json:"totalCount"`
	LastUpdated       time.Time  `json:"lastUpdated"`
	LastWebhookUpdate *time.Time `json:"lastWebhookUpdate,omitempty"`
	Version           int64      `json:"version"`
}

type CategoryList struct {
	Categories  []Category `json:"categories"`
	TotalCount  int        `json:"totalCount"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

// Metadata holds the derived counts rewritten alongside every products write.
type Metadata struct {
	TotalProducts int       `json:"totalProducts"`
	Published     int       `json:"published"`
	Draft         int       `json:"draft"`
	Featured      int       `json:"featured"`
	OnSale        int       `json:"onSale"`
	InStock       int       `json:"inStock"`
	OutOfStock    int       `json:"outOfStock"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

// SortByDateCreatedDesc restores the collection order invariant. Ties break
// on ID descending so the order is deterministic.
func SortByDateCreatedDesc(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].DateCreated.Equal(items[j].DateCreated) {
			return items[i].ID > items[j].ID
		}
		return items[i].DateCreated.After(items[j].DateCreated)
	})
}

func DeriveMetadata(items []Item, now time.Time) Metadata {
	return Metadata{
		TotalProducts: len(items),
		Published:     lo.CountBy(items, func(it Item) bool { return it.Status == StatusPublish }),
		Draft:         lo.CountBy(items, func(it Item) bool { return it.Status == StatusDraft }),
		Featured:      lo.CountBy(items, func(it Item) bool { return it.Featured }),
		OnSale:        lo.CountBy(items, func(it Item) bool { return it.OnSale }),
		InStock:       lo.CountBy(items, func(it Item) bool { return it.StockStatus == StockInStock }),
		OutOfStock:    lo.CountBy(items, func(it Item) bool { return it.StockStatus == StockOutOfStock }),
		GeneratedAt:   now.UTC(),
	}
}

// Published returns only the items surfaced to end users.
func Published(items []Item) []Item {
	return lo.Filter(items, func(it Item, _ int) bool { return it.Status == StatusPublish })
}
