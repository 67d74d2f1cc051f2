package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"marquee/models"
	"marquee/services/profiles"
	"marquee/services/session"
)

type profilesService interface {
	List(userID string) []models.Profile
	ActiveID(userID string) string
	Create(userID string, input profiles.NewProfile) (models.Profile, error)
	Update(userID, profileID string, update models.ProfileUpdate) (models.Profile, error)
	SetPin(userID, profileID, pin string) (models.Profile, error)
	ClearPin(userID, profileID string) (models.Profile, error)
	VerifyPin(userID, profileID, pin string) error
}

var _ profilesService = (*profiles.Service)(nil)

type profileSessions interface {
	SwitchProfile(ctx context.Context, userID, profileID, pin string) error
	DeleteProfile(ctx context.Context, userID, profileID string) (string, error)
}

var _ profileSessions = (*session.Registry)(nil)

type ProfilesHandler struct {
	Service  profilesService
	Sessions profileSessions
}

func NewProfilesHandler(service profilesService, sessions profileSessions) *ProfilesHandler {
	return &ProfilesHandler{Service: service, Sessions: sessions}
}

type profileList struct {
	Profiles        []models.Profile `json:"profiles"`
	ActiveProfileID string           `json:"activeProfileId"`
}

func (h *ProfilesHandler) list(userID string) profileList {
	return profileList{Profiles: h.Service.List(userID), ActiveProfileID: h.Service.ActiveID(userID)}
}

func (h *ProfilesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.list(userID))
}

func (h *ProfilesHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var body profiles.NewProfile
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	profile, err := h.Service.Create(userID, body)
	if err != nil {
		http.Error(w, err.Error(), profileErrorStatus(err))
		return
	}

	writeJSON(w, http.StatusCreated, profile)
}

func (h *ProfilesHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	profileID := strings.TrimSpace(mux.Vars(r)["profileID"])
	if profileID == "" {
		http.Error(w, "profile id is required", http.StatusBadRequest)
		return
	}

	var body models.ProfileUpdate
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	profile, err := h.Service.Update(userID, profileID, body)
	if err != nil {
		http.Error(w, err.Error(), profileErrorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// Delete removes the profile together with its library documents and returns the
// profile list with the (possibly reassigned) active profile.
func (h *ProfilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	profileID := strings.TrimSpace(mux.Vars(r)["profileID"])
	if profileID == "" {
		http.Error(w, "profile id is required", http.StatusBadRequest)
		return
	}

	if _, err := h.Sessions.DeleteProfile(r.Context(), userID, profileID); err != nil {
		if errors.Is(err, profiles.ErrProfileNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.list(userID))
}

// SetActive switches the active profile. Locked profiles require their PIN in the body.
func (h *ProfilesHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	profileID := strings.TrimSpace(mux.Vars(r)["profileID"])
	if profileID == "" {
		http.Error(w, "profile id is required", http.StatusBadRequest)
		return
	}

	var body struct {
		Pin string `json:"pin"`
	}
	if err := decodeBody(r, &body); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Sessions.SwitchProfile(r.Context(), userID, profileID, body.Pin); err != nil {
		switch {
		case errors.Is(err, profiles.ErrProfileNotFound), errors.Is(err, profiles.ErrPinInvalid):
			http.Error(w, err.Error(), profileErrorStatus(err))
		default:
			writeStoreError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, h.list(userID))
}

func (h *ProfilesHandler) SetPin(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	profileID := strings.TrimSpace(mux.Vars(r)["profileID"])

	var body struct {
		Pin string `json:"pin"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	profile, err := h.Service.SetPin(userID, profileID, body.Pin)
	if err != nil {
		http.Error(w, err.Error(), profileErrorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfilesHandler) ClearPin(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	profileID := strings.TrimSpace(mux.Vars(r)["profileID"])

	profile, err := h.Service.ClearPin(userID, profileID)
	if err != nil {
		http.Error(w, err.Error(), profileErrorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *ProfilesHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	profileID := strings.TrimSpace(mux.Vars(r)["profileID"])

	var body struct {
		Pin string `json:"pin"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.VerifyPin(userID, profileID, body.Pin); err != nil {
		http.Error(w, err.Error(), profileErrorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func profileErrorStatus(err error) int {
	switch {
	case errors.Is(err, profiles.ErrProfileNotFound):
		return http.StatusNotFound
	case errors.Is(err, profiles.ErrPinInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, profiles.ErrTitleTaken), errors.Is(err, profiles.ErrProfileLimit):
		return http.StatusConflict
	case errors.Is(err, profiles.ErrTitleRequired),
		errors.Is(err, profiles.ErrTitleTooLong),
		errors.Is(err, profiles.ErrInvalidAgeLimit),
		errors.Is(err, profiles.ErrPinRequired),
		errors.Is(err, profiles.ErrPinFormat):
		return http.StatusBadRequest
	case errors.Is(err, profiles.ErrUserIDRequired):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}
