// Package web serves the public redirect endpoint and a small JSON API
// for recording conversions and reading tracker stats.
package web

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"affkit/internal/trackdb"
)

// Handler holds the tracker DB and registers the HTTP routes.
type Handler struct {
	db      *sql.DB
	logger  *slog.Logger
	targets Targets
	router  chi.Router
}

// Targets carries the revenue goals used by the stats endpoint.
type Targets struct {
	Weekly  float64
	Monthly float64
}

// NewHandler creates a handler with all routes configured.
func NewHandler(db *sql.DB, targets Targets, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{db: db, logger: logger, targets: targets}
	r := chi.NewRouter()

	r.Get("/r/{code}", h.handleRedirect)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/conversions", h.handleConversion)
		r.Get("/stats", h.handleStats)
		r.Get("/links", h.handleLinks)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h.router = r
	return h
}

// Router returns the underlying http.Handler.
func (h *Handler) Router() http.Handler {
	return h.router
}

// handleRedirect records the click and 302s to the original URL.
// Source, platform, and campaign come from query parameters so links
// can be tagged per placement. Unknown codes are a 404.
func (h *Handler) handleRedirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}
	q := r.URL.Query()
	link, err := trackdb.RecordClick(r.Context(), h.db, code, q.Get("source"), q.Get("platform"), q.Get("campaign"))
	if err != nil {
		if errors.Is(err, trackdb.ErrLinkNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("click error", slog.String("code", code), slog.Any("error", err))
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, link.OriginalURL, http.StatusFound)
}

type conversionRequest struct {
	Code        string  `json:"code"`
	Amount      float64 `json:"amount"`
	IsRecurring bool    `json:"is_recurring"`
	Notes       string  `json:"notes"`
}

// handleConversion records a conversion against a short code. Used by
// postback URLs from affiliate networks.
func (h *Handler) handleConversion(w http.ResponseWriter, r *http.Request) {
	var req conversionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}
	if req.Amount < 0 {
		http.Error(w, "amount must not be negative", http.StatusBadRequest)
		return
	}
	link, err := trackdb.RecordConversion(r.Context(), h.db, req.Code, req.Amount, req.IsRecurring, req.Notes)
	if err != nil {
		if errors.Is(err, trackdb.ErrLinkNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("conversion error", slog.String("code", req.Code), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.logger.Info("conversion recorded",
		slog.String("code", req.Code),
		slog.String("product", link.ProductName),
		slog.Float64("amount", req.Amount))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"product": link.ProductName, "amount": req.Amount})
}

// handleStats returns the dashboard aggregate plus the revenue
// projection. `days` defaults to 30.
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	days := 30
	if d := r.URL.Query().Get("days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n <= 0 {
			http.Error(w, "invalid days", http.StatusBadRequest)
			return
		}
		days = n
	}
	stats, err := trackdb.GetDashboardStats(r.Context(), h.db, days)
	if err != nil {
		h.logger.Error("stats error", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	projection, err := trackdb.ProjectRevenue(r.Context(), h.db, h.targets.Weekly, h.targets.Monthly)
	if err != nil {
		h.logger.Error("projection error", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, map[string]any{"stats": stats, "projection": projection})
}

func (h *Handler) handleLinks(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	links, err := trackdb.ListLinks(r.Context(), h.db, limit)
	if err != nil {
		h.logger.Error("links error", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]map[string]any, 0, len(links))
	for _, l := range links {
		out = append(out, map[string]any{
			"code":        l.ShortCode,
			"product":     l.ProductName,
			"url":         l.OriginalURL,
			"clicks":      l.TotalClicks,
			"conversions": l.TotalConversions,
			"revenue":     l.TotalRevenue,
		})
	}
	writeJSON(w, h.logger, out)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response error", slog.Any("error", err))
	}
}
