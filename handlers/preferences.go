package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"marquee/models"
	"marquee/services/preferences"
)

type preferencesService interface {
	Get(userID string) (models.Preferences, error)
	UpdatePlayback(userID string, update models.PlaybackUpdate) (models.Preferences, error)
	RemoveRecentSearch(userID, query string) (models.Preferences, error)
	ClearRecentSearches(userID string) (models.Preferences, error)
	Delete(userID string) error
}

var _ preferencesService = (*preferences.Service)(nil)

type PreferencesHandler struct {
	Service preferencesService
}

func NewPreferencesHandler(service preferencesService) *PreferencesHandler {
	return &PreferencesHandler{Service: service}
}

func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	prefs, err := h.Service.Get(userID)
	if err != nil {
		http.Error(w, err.Error(), preferencesErrorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *PreferencesHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body models.PlaybackUpdate
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	prefs, err := h.Service.UpdatePlayback(userID, body)
	if err != nil {
		http.Error(w, err.Error(), preferencesErrorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// Reset drops the stored preferences and returns the defaults.
func (h *PreferencesHandler) Reset(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(userID); err != nil {
		http.Error(w, err.Error(), preferencesErrorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, models.DefaultPreferences())
}

func (h *PreferencesHandler) RecentSearches(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	prefs, err := h.Service.Get(userID)
	if err != nil {
		http.Error(w, err.Error(), preferencesErrorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, prefs.RecentSearches)
}

func (h *PreferencesHandler) RemoveRecentSearch(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	prefs, err := h.Service.RemoveRecentSearch(userID, mux.Vars(r)["query"])
	if err != nil {
		http.Error(w, err.Error(), preferencesErrorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, prefs.RecentSearches)
}

func (h *PreferencesHandler) ClearRecentSearches(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	prefs, err := h.Service.ClearRecentSearches(userID)
	if err != nil {
		http.Error(w, err.Error(), preferencesErrorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, prefs.RecentSearches)
}

func preferencesErrorStatus(err error) int {
	switch {
	case errors.Is(err, preferences.ErrInvalidQuality):
		return http.StatusBadRequest
	case errors.Is(err, preferences.ErrUserIDRequired):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
