package woo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func wcProductJSON(id int, modified string) map[string]any {
	return map[string]any{
		"id":                id,
		"name":              fmt.Sprintf("Tool %d", id),
		"slug":              fmt.Sprintf("tool-%d", id),
		"status":            "publish",
		"price":             "9.99",
		"regular_price":     "19.99",
		"sale_price":        "9.99",
		"on_sale":           true,
		"stock_status":      "instock",
		"date_created_gmt":  "2024-01-01T00:00:00",
		"date_modified_gmt": modified,
	}
}

func TestClient_ListProducts(t *testing.T) {
	var gotUser, gotPass string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()

		if r.URL.Path != "/wp-json/wc/v3/products" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if got := r.URL.Query().Get("per_page"); got != "2" {
			t.Errorf("per_page=%s", got)
		}

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		switch page {
		case 1:
			_ = json.NewEncoder(w).Encode([]any{
				wcProductJSON(1, "2024-01-02T10:00:00"),
				wcProductJSON(2, "2024-01-03T10:00:00"),
			})
		default:
			_ = json.NewEncoder(w).Encode([]any{})
		}
	}))
	t.Cleanup(ts.Close)

	c := NewClient(ts.URL, "ck_test", "cs_test")

	items, err := c.ListProducts(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if gotUser != "ck_test" || gotPass != "cs_test" {
		t.Fatalf("basic auth user=%s pass=%s", gotUser, gotPass)
	}
	if len(items) != 2 {
		t.Fatalf("items=%d", len(items))
	}

	it := items[0]
	if it.ID != 1 || it.Slug != "tool-1" || it.RegularPrice != "19.99" || !it.OnSale {
		t.Fatalf("item: %+v", it)
	}
	wantCreated := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !it.DateCreated.Equal(wantCreated) {
		t.Fatalf("dateCreated=%v", it.DateCreated)
	}
	if !it.DateModified.Equal(time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("dateModified=%v", it.DateModified)
	}
}

func TestClient_ListModifiedSince(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("modified_after"); got != "2024-01-02T00:00:00Z" {
			t.Errorf("modified_after=%s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]any{wcProductJSON(3, "2024-01-02T12:00:00")})
	}))
	t.Cleanup(ts.Close)

	c := NewClient(ts.URL, "k", "s")

	after := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	items, err := c.ListModifiedSince(context.Background(), after, 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].ID != 3 {
		t.Fatalf("items: %+v", items)
	}
}

func TestClient_ListCategories(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wc/v3/products/categories" {
			t.Errorf("path=%s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]any{
			map[string]any{"id": 5, "name": "SEO Tools", "slug": "seo-tools", "count": 12},
		})
	}))
	t.Cleanup(ts.Close)

	c := NewClient(ts.URL, "k", "s")

	cats, err := c.ListCategories(context.Background(), 1, 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(cats) != 1 || cats[0].Slug != "seo-tools" || cats[0].Count != 12 {
		t.Fatalf("cats: %+v", cats)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
		{"server error", http.StatusInternalServerError, ErrBadStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "secret remote detail", tt.status)
			}))
			t.Cleanup(ts.Close)

			c := NewClient(ts.URL, "k", "s")
			_, err := c.ListProducts(context.Background(), 1, 10)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err=%v want=%v", err, tt.want)
			}
		})
	}
}

func TestClient_TransportErrorIsUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	ts.Close() // refuse connections

	c := NewClient(ts.URL, "k", "s")
	_, err := c.ListProducts(context.Background(), 1, 10)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err=%v want=%v", err, ErrUnavailable)
	}
}
