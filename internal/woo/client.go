package woo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"FadiSync/internal/catalog"
)

var (
	ErrUnauthorized = errors.New("remote rejected credentials")
	ErrUnavailable  = errors.New("remote unavailable")
	ErrBadStatus    = errors.New("remote bad status")
)

const (
	productsPath   = "/wp-json/wc/v3/products"
	categoriesPath = "/wp-json/wc/v3/products/categories"

	clientTimeout = 15 * time.Second
)

// Client talks to a WooCommerce-style REST listing API. Credentials go out
// as HTTP Basic Auth on every request.
type Client struct {
	BaseURL string
	Key     string
	Secret  string
	Client  *http.Client
}

func NewClient(baseURL, key, secret string) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		BaseURL: baseURL,
		Key:     key,
		Secret:  secret,
		Client:  &http.Client{Timeout: clientTimeout},
	}
}

// ListProducts fetches one page of the catalog, newest first. A page shorter
// than perPage is the end-of-pages sentinel; the caller owns the loop.
func (c *Client) ListProducts(ctx context.Context, page, perPage int) ([]catalog.Item, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("orderby", "date")
	q.Set("order", "desc")

	var ps []wcProduct
	if err := c.getJSON(ctx, productsPath, q, &ps); err != nil {
		return nil, err
	}
	return toItems(ps), nil
}

// ListModifiedSince fetches items modified strictly after the given instant.
// One bounded query, not paged.
func (c *Client) ListModifiedSince(ctx context.Context, after time.Time, perPage int) ([]catalog.Item, error) {
	q := url.Values{}
	q.Set("modified_after", after.UTC().Format(time.RFC3339))
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("orderby", "modified")
	q.Set("order", "desc")

	var ps []wcProduct
	if err := c.getJSON(ctx, productsPath, q, &ps); err != nil {
		return nil, err
	}
	return toItems(ps), nil
}

func (c *Client) ListCategories(ctx context.Context, page, perPage int) ([]catalog.Category, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var cs []wcCategory
	if err := c.getJSON(ctx, categoriesPath, q, &cs); err != nil {
		return nil, err
	}
	return toCategories(cs), nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.Key, c.Secret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrUnavailable
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return ErrUnavailable
		}
		return ErrUnavailable
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrUnauthorized
	default:
		// Never surface the remote body to our own consumers.
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status=%d", ErrBadStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode remote response: %w", err)
	}
	return nil
}
