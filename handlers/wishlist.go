package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"marquee/models"
	"marquee/services/library"
	"marquee/services/wishlist"
)

type WishlistHandler struct {
	Sessions sessionSource
}

func NewWishlistHandler(sessions sessionSource) *WishlistHandler {
	return &WishlistHandler{Sessions: sessions}
}

func (h *WishlistHandler) manager(w http.ResponseWriter, r *http.Request) (*wishlist.Manager, bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return nil, false
	}
	sess, err := h.Sessions.Get(r.Context(), userID)
	if err != nil {
		writeStoreError(w, err)
		return nil, false
	}
	return sess.Wishlist, true
}

func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}
	folders := m.Folders()
	if folders == nil {
		folders = []models.WishlistFolder{}
	}
	writeJSON(w, http.StatusOK, folders)
}

func (h *WishlistHandler) Create(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	folder, reason, err := m.CreateFolder(r.Context(), body.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !reason.Applied() {
		writeResult(w, reason)
		return
	}
	writeJSON(w, http.StatusCreated, folder)
}

func (h *WishlistHandler) Rename(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reason, err := m.RenameFolder(r.Context(), mux.Vars(r)["folderID"], body.Name)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeResult(w, reason)
}

func (h *WishlistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	reason, err := m.DeleteFolder(r.Context(), mux.Vars(r)["folderID"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeResult(w, reason)
}

func (h *WishlistHandler) AddContent(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	var ref models.ContentRef
	if err := decodeBody(r, &ref); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reason, err := m.AddContent(r.Context(), mux.Vars(r)["folderID"], ref)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeResult(w, reason)
}

// RemoveContent takes an optional ?mediaType=; without it the ref is matched by id.
func (h *WishlistHandler) RemoveContent(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	contentID, err := strconv.ParseInt(strings.TrimSpace(vars["contentID"]), 10, 64)
	if err != nil {
		http.Error(w, "invalid content id", http.StatusBadRequest)
		return
	}
	kind, ok := optionalMediaType(r.URL.Query().Get("mediaType"))
	if !ok {
		http.Error(w, "unsupported media type", http.StatusBadRequest)
		return
	}

	reason, err := m.RemoveContent(r.Context(), vars["folderID"], contentID, kind)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeResult(w, reason)
}

func (h *WishlistHandler) MoveContent(w http.ResponseWriter, r *http.Request) {
	m, ok := h.manager(w, r)
	if !ok {
		return
	}

	var body struct {
		ToFolderID string `json:"toFolderId"`
		ContentID  int64  `json:"contentId"`
		MediaType  string `json:"mediaType,omitempty"`
	}
	if err := decodeBody(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	kind, ok := optionalMediaType(body.MediaType)
	if !ok {
		http.Error(w, "unsupported media type", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.ToFolderID) == "" {
		writeResult(w, library.RejectNotFound)
		return
	}

	reason, err := m.MoveContent(r.Context(), mux.Vars(r)["folderID"], body.ToFolderID, body.ContentID, kind)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeResult(w, reason)
}

func optionalMediaType(value string) (models.MediaType, bool) {
	if strings.TrimSpace(value) == "" {
		return "", true
	}
	return models.ParseMediaType(value)
}
