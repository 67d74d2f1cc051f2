package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"marquee/models"
	"marquee/services/catalog"
	"marquee/services/metadata"
	"marquee/services/preferences"
	"marquee/utils/query"
)

type catalogService interface {
	Browse(ctx context.Context, kind models.MediaType, sel query.Selection) models.ContentPage
	BrowsePages(ctx context.Context, kind models.MediaType, sel query.Selection, pages int) models.ContentPage
	Search(ctx context.Context, text string, page int, lang string) models.ContentPage
	Detail(ctx context.Context, kind models.MediaType, id int64, lang string) (*models.ContentDetail, error)
	Genres(kind models.MediaType) []models.Genre
}

var _ catalogService = (*catalog.Service)(nil)

type searchRecorder interface {
	AddRecentSearch(userID, query string) (models.Preferences, error)
}

var _ searchRecorder = (*preferences.Service)(nil)

type CatalogHandler struct {
	Service  catalogService
	Searches searchRecorder
	Language string
}

func NewCatalogHandler(service catalogService, searches searchRecorder, language string) *CatalogHandler {
	return &CatalogHandler{Service: service, Searches: searches, Language: language}
}

func (h *CatalogHandler) language(r *http.Request) string {
	if lang := strings.TrimSpace(r.URL.Query().Get("language")); lang != "" {
		return query.Language(lang)
	}
	return query.Language(h.Language)
}

// Browse lists titles of one media type. Upstream failures yield an empty page, never an error.
func (h *CatalogHandler) Browse(w http.ResponseWriter, r *http.Request) {
	kind, ok := models.ParseMediaType(mux.Vars(r)["mediaType"])
	if !ok {
		http.Error(w, "unsupported media type", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	sel := query.Selection{
		Genres:   q["genre"],
		Country:  q.Get("country"),
		Sort:     q.Get("sort"),
		Page:     atoiDefault(q.Get("page"), 1),
		Language: h.language(r),
	}

	pages := atoiDefault(q.Get("pages"), 1)
	var page models.ContentPage
	if pages > 1 {
		page = h.Service.BrowsePages(r.Context(), kind, sel, pages)
	} else {
		page = h.Service.Browse(r.Context(), kind, sel)
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *CatalogHandler) Genres(w http.ResponseWriter, r *http.Request) {
	kind, ok := models.ParseMediaType(mux.Vars(r)["mediaType"])
	if !ok {
		http.Error(w, "unsupported media type", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.Service.Genres(kind))
}

func (h *CatalogHandler) Detail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, ok := models.ParseMediaType(vars["mediaType"])
	if !ok {
		http.Error(w, "unsupported media type", http.StatusBadRequest)
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(vars["id"]), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid content id", http.StatusBadRequest)
		return
	}

	detail, err := h.Service.Detail(r.Context(), kind, id, h.language(r))
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, metadata.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, metadata.ErrInvalidMediaType):
			status = http.StatusBadRequest
		case errors.Is(err, metadata.ErrNotConfigured):
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// Search runs a multi search and records the query in the user's recent searches.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.URL.Query().Get("q"))
	page := atoiDefault(r.URL.Query().Get("page"), 1)
	if text == "" {
		writeJSON(w, http.StatusOK, models.EmptyPage(page))
		return
	}

	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if h.Searches != nil && page == 1 {
		if _, err := h.Searches.AddRecentSearch(userID, text); err != nil {
			log.Printf("[catalog] failed to record search for %s: %v", userID, err)
		}
	}

	writeJSON(w, http.StatusOK, h.Service.Search(r.Context(), text, page, h.language(r)))
}

func atoiDefault(value string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return n
}
