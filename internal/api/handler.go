package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/vitrine/vitrine/internal/catalog"
	"github.com/vitrine/vitrine/pkg/models"
)

type Handler struct {
	catalog *catalog.Manager
	reindex func() error
	logger  *logrus.Logger
}

func NewHandler(catalogMgr *catalog.Manager, reindex func() error, logger *logrus.Logger) *Handler {
	return &Handler{
		catalog: catalogMgr,
		reindex: reindex,
		logger:  logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	count, err := h.catalog.Count()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Catalog unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "healthy",
		"templates": count,
		"time":      time.Now().UTC(),
	})
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	var (
		recs []*models.TemplateRecord
		err  error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		recs, err = h.catalog.ListByCategory(category)
	} else {
		recs, err = h.catalog.List()
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}

	if recs == nil {
		recs = []*models.TemplateRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(recs)
}

func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	relativePath := vars["path"]

	rec, err := h.catalog.Get(relativePath)
	if err != nil {
		if err == catalog.ErrTemplateNotFound {
			h.writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, "Failed to get template")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

func (h *Handler) SearchTemplates(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	keywords := strings.Fields(query.Get("q"))
	if len(keywords) == 0 {
		h.writeError(w, http.StatusBadRequest, "Query parameter q is required")
		return
	}

	opts := catalog.SearchOptions{
		Keywords:      keywords,
		Categories:    query["category"],
		FilenamesOnly: query.Get("filenames") == "1",
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			h.writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		opts.Limit = limit
	}

	hits, err := h.catalog.Search(opts)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	if hits == nil {
		hits = []models.SearchHit{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(hits)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.catalog.Categories()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cats)
}

func (h *Handler) TriggerReindex(w http.ResponseWriter, r *http.Request) {
	if err := h.reindex(); err != nil {
		h.logger.WithError(err).Error("Reindex failed")
		h.writeError(w, http.StatusInternalServerError, "Reindex failed")
		return
	}

	count, err := h.catalog.Count()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "Catalog unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"templates": count,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
