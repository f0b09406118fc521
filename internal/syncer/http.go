package syncer

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"FadiSync/internal/admin"
	"FadiSync/internal/catalog"
	"FadiSync/internal/woo"
	"FadiSync/pkg/kit"
)

const (
	topicHeader     = "x-wc-webhook-topic"
	signatureHeader = "x-wc-webhook-signature"

	maxWebhookBody = 1 << 20

	tokenLimitPerMin = 5
	limitWindowSec   = 60
)

type Server struct {
	Store       catalog.Store
	Snapshotter *Snapshotter
	Cache       *Cache
	Patcher     *Patcher
	Guard       *admin.Guard
	Log         *zap.Logger

	WebhookSecret   string
	SitemapMaxPages int
}

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	CORSOrigins []string
}

func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	r := chi.NewRouter()

	setupMiddleware(r, deps)
	setupMetrics(r, deps)

	r.Mount("/", s.Routes())
	return r
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))

	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: deps.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}).Handler)
	}
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", s.ready)

	r.Route("/webhooks/products", func(rr chi.Router) {
		rr.Post("/", s.webhook)
		rr.Get("/", s.webhookInfo)
	})

	r.Get("/api/cache", s.cache)
	r.Post("/api/cache", s.cache)
	r.Get("/api/sitemap", s.sitemap)

	r.Get("/products", s.listProducts)
	r.Get("/products/{id}", s.getProduct)
	r.Get("/categories", s.listCategories)

	if s.Guard != nil {
		tokenLimiter := kit.NewIPRateLimiter(tokenLimitPerMin, limitWindowSec)
		r.With(tokenLimiter.Middleware).Post("/auth/token", s.Guard.TokenHandler())
	}

	return r
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		if s.Log != nil {
			s.Log.Warn("readyz failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type webhookProduct struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type webhookResp struct {
	Success       bool           `json:"success"`
	Message       string         `json:"message"`
	Action        string         `json:"action"`
	Product       webhookProduct `json:"product"`
	TotalProducts int            `json:"totalProducts"`
}

type webhookErr struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		kit.WriteJSON(w, http.StatusBadRequest, webhookErr{Error: "unreadable body"})
		return
	}

	if !VerifySignature(s.WebhookSecret, body, r.Header.Get(signatureHeader)) {
		kit.WriteJSON(w, http.StatusUnauthorized, webhookErr{Error: "invalid signature"})
		return
	}

	action := ParseTopic(r.Header.Get(topicHeader))
	if action == ActionUnknown {
		kit.WriteJSON(w, http.StatusBadRequest, webhookErr{Error: "unknown webhook topic"})
		return
	}

	item, err := woo.ParseProduct(body)
	if err != nil {
		kit.WriteJSON(w, http.StatusBadRequest, webhookErr{Error: "bad json"})
		return
	}
	if item.ID <= 0 {
		kit.WriteJSON(w, http.StatusBadRequest, webhookErr{Error: "product id required"})
		return
	}

	snap, err := s.Patcher.Apply(r.Context(), action, item)
	if err != nil {
		kit.WriteJSON(w, http.StatusInternalServerError, webhookErr{Error: "snapshot update failed"})
		return
	}

	kit.WriteJSON(w, http.StatusOK, webhookResp{
		Success:       true,
		Message:       "product " + string(action),
		Action:        string(action),
		Product:       webhookProduct{ID: item.ID, Name: item.Name, Slug: item.Slug},
		TotalProducts: snap.TotalCount,
	})
}

func (s *Server) webhookInfo(w http.ResponseWriter, _ *http.Request) {
	kit.WriteJSON(w, http.StatusOK, map[string]any{
		"endpoint": "POST /webhooks/products",
		"topics":   []string{"product.created", "product.updated", "product.deleted", "product.restored"},
		"headers": map[string]string{
			topicHeader:     "event topic",
			signatureHeader: "base64 HMAC-SHA256 of the raw body (required)",
		},
	})
}

func (s *Server) cache(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")

	switch action {
	case "refresh":
		if !s.authorized(w, r) {
			return
		}
		res, err := s.Snapshotter.Refresh(r.Context())
		if err != nil {
			kit.WriteFailure(w, http.StatusInternalServerError, "refresh failed")
			return
		}
		kit.WriteSuccess(w, http.StatusOK, "snapshot refreshed", res)

	case "get":
		res, err := s.Cache.Get(r.Context())
		if err != nil {
			kit.WriteFailure(w, http.StatusBadGateway, "catalog fetch failed")
			return
		}
		kit.WriteSuccess(w, http.StatusOK, "", res)

	case "stats":
		kit.WriteSuccess(w, http.StatusOK, "", s.stats(r))

	case "clear":
		if !s.authorized(w, r) {
			return
		}
		s.Cache.Clear()
		kit.WriteSuccess(w, http.StatusOK, "incremental cache cleared", nil)

	default:
		kit.WriteFailure(w, http.StatusBadRequest, "action must be one of refresh, get, stats, clear")
	}
}

type snapshotStats struct {
	Exists            bool       `json:"exists"`
	TotalCount        int        `json:"totalCount"`
	Version           int64      `json:"version"`
	LastUpdated       *time.Time `json:"lastUpdated,omitempty"`
	LastWebhookUpdate *time.Time `json:"lastWebhookUpdate,omitempty"`
}

func (s *Server) stats(r *http.Request) map[string]any {
	out := map[string]any{
		"incremental": s.Cache.Stats(),
	}

	snap, ok, err := s.Store.Load(r.Context())
	ss := snapshotStats{Exists: ok}
	if err == nil && ok {
		ss.TotalCount = snap.TotalCount
		ss.Version = snap.Version
		ss.LastUpdated = &snap.LastUpdated
		ss.LastWebhookUpdate = snap.LastWebhookUpdate
	}
	out["snapshot"] = ss

	if md, ok, err := s.Store.LoadMetadata(r.Context()); err == nil && ok {
		out["metadata"] = md
	}
	return out
}

func (s *Server) sitemap(w http.ResponseWriter, r *http.Request) {
	maxPages := s.SitemapMaxPages
	if maxPages <= 0 {
		maxPages = 5
	}

	items, err := s.Snapshotter.FetchPages(r.Context(), maxPages)
	if err != nil {
		kit.WriteFailure(w, http.StatusBadGateway, "catalog fetch failed")
		return
	}

	type entry struct {
		ID   int64  `json:"id"`
		Slug string `json:"slug"`
	}
	entries := make([]entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, entry{ID: it.ID, Slug: it.Slug})
	}
	kit.WriteSuccess(w, http.StatusOK, "", map[string]any{"items": entries, "count": len(entries)})
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	snap, ok, err := s.Store.Load(r.Context())
	if err != nil {
		if s.Log != nil {
			s.Log.Error("load snapshot failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !ok {
		kit.WriteJSON(w, http.StatusOK, []catalog.Item{})
		return
	}
	kit.WriteJSON(w, http.StatusOK, catalog.Published(snap.Items))
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad id", nil)
		return
	}

	snap, ok, err := s.Store.Load(r.Context())
	if err != nil {
		if s.Log != nil {
			s.Log.Error("load snapshot failed", zap.Error(err), zap.Int64("id", id))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if ok {
		for _, it := range snap.Items {
			if it.ID == id && it.Status == catalog.StatusPublish {
				kit.WriteJSON(w, http.StatusOK, it)
				return
			}
		}
	}
	kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	cl, ok, err := s.Store.LoadCategories(r.Context())
	if err != nil {
		if s.Log != nil {
			s.Log.Error("load categories failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !ok {
		kit.WriteJSON(w, http.StatusOK, catalog.CategoryList{Categories: []catalog.Category{}})
		return
	}
	kit.WriteJSON(w, http.StatusOK, cl)
}

func (s *Server) authorized(w http.ResponseWriter, r *http.Request) bool {
	if err := s.Guard.Authorize(r); err != nil {
		kit.WriteFailure(w, http.StatusUnauthorized, err.Error())
		return false
	}
	return true
}
