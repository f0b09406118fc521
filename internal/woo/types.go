package woo

import (
	"encoding/json"
	"time"

	"FadiSync/internal/catalog"
)

// wcProduct is the WooCommerce wire shape. Prices come as strings and the
// *_gmt timestamps carry no zone suffix.
type wcProduct struct {
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
	DateCreated  wcTime          `json:"date_created_gmt"`
	DateModified wcTime          `json:"date_modified_gmt"`
	Categories   []wcCategoryRef `json:"categories"`
	Images       json.RawMessage `json:"images"`
	MetaData     json.RawMessage `json:"meta_data"`
}

type wcCategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type wcCategory struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

const wcTimeLayout = "2006-01-02T15:04:05"

type wcTime struct {
	time.Time
}

func (t *wcTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}

	// GMT fields omit the zone; fall back to RFC3339 for proxies that add it.
	if ts, err := time.ParseInLocation(wcTimeLayout, s, time.UTC); err == nil {
		t.Time = ts
		return nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	t.Time = ts.UTC()
	return nil
}

func (p wcProduct) toItem() catalog.Item {
	refs := make([]catalog.CategoryRef, 0, len(p.Categories))
	for _, c := range p.Categories {
		refs = append(refs, catalog.CategoryRef{ID: c.ID, Name: c.Name, Slug: c.Slug})
	}

	return catalog.Item{
		ID:           p.ID,
		Name:         p.Name,
		Slug:         p.Slug,
		Status:       p.Status,
		Price:        p.Price,
		RegularPrice: p.RegularPrice,
		SalePrice:    p.SalePrice,
		OnSale:       p.OnSale,
		Featured:     p.Featured,
		StockStatus:  p.StockStatus,
		DateCreated:  p.DateCreated.Time,
		DateModified: p.DateModified.Time,
		Categories:   refs,
		Images:       p.Images,
		MetaData:     p.MetaData,
	}
}

// ParseProduct decodes a single product payload, such as a webhook delivery
// body, into the canonical item shape.
func ParseProduct(b []byte) (catalog.Item, error) {
	var p wcProduct
	if err := json.Unmarshal(b, &p); err != nil {
		return catalog.Item{}, err
	}
	return p.toItem(), nil
}

func toItems(ps []wcProduct) []catalog.Item {
	out := make([]catalog.Item, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.toItem())
	}
	return out
}

func toCategories(cs []wcCategory) []catalog.Category {
	out := make([]catalog.Category, 0, len(cs))
	for _, c := range cs {
		out = append(out, catalog.Category{ID: c.ID, Name: c.Name, Slug: c.Slug, Count: c.Count})
	}
	return out
}
