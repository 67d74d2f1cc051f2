package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"marquee/models"
	"marquee/services/library"
	"marquee/services/session"
)

type sessionSource interface {
	Get(ctx context.Context, userID string) (*session.Session, error)
}

var _ sessionSource = (*session.Registry)(nil)

var errInvalidBody = errors.New("invalid request body")

// collectionOps erases the entry type of a library manager so one handler can serve
// watching, likes and downloads.
type collectionOps interface {
	list(query string) any
	add(ctx context.Context, body io.Reader) (library.RejectReason, error)
	remove(ctx context.Context, key models.CompositeKey) (library.RejectReason, error)
	perEpisode() bool
}

type managerOps[E any] struct {
	m        *library.Manager[E]
	episodes bool
}

func (o managerOps[E]) list(query string) any {
	items := o.m.Search(query)
	if items == nil {
		items = []E{}
	}
	return items
}

func (o managerOps[E]) add(ctx context.Context, body io.Reader) (library.RejectReason, error) {
	var entry E
	dec := jsonDecoder(body)
	if err := dec.Decode(&entry); err != nil {
		return "", fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return o.m.Add(ctx, entry)
}

func (o managerOps[E]) remove(ctx context.Context, key models.CompositeKey) (library.RejectReason, error) {
	return o.m.RemoveKey(ctx, "", key)
}

func (o managerOps[E]) perEpisode() bool { return o.episodes }

func collectionFor(sess *session.Session, name string) (collectionOps, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case library.CollectionWatching:
		return managerOps[models.WatchingEntry]{m: sess.Watching, episodes: true}, true
	case library.CollectionLikes:
		return managerOps[models.LikedEntry]{m: sess.Likes}, true
	case library.CollectionDownloads:
		return managerOps[models.DownloadedEntry]{m: sess.Downloads}, true
	}
	return nil, false
}

type LibraryHandler struct {
	Sessions sessionSource
}

func NewLibraryHandler(sessions sessionSource) *LibraryHandler {
	return &LibraryHandler{Sessions: sessions}
}

func (h *LibraryHandler) resolve(w http.ResponseWriter, r *http.Request) (collectionOps, bool) {
	userID, ok := requireUser(w, r)
	if !ok {
		return nil, false
	}
	sess, err := h.Sessions.Get(r.Context(), userID)
	if err != nil {
		writeStoreError(w, err)
		return nil, false
	}
	ops, ok := collectionFor(sess, mux.Vars(r)["collection"])
	if !ok {
		http.Error(w, "unknown collection", http.StatusNotFound)
		return nil, false
	}
	return ops, true
}

// List returns the collection newest first, or the titles matching ?q= best first.
func (h *LibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	ops, ok := h.resolve(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ops.list(r.URL.Query().Get("q")))
}

func (h *LibraryHandler) Add(w http.ResponseWriter, r *http.Request) {
	ops, ok := h.resolve(w, r)
	if !ok {
		return
	}

	reason, err := ops.add(r.Context(), r.Body)
	if err != nil {
		if errors.Is(err, errInvalidBody) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeStoreError(w, err)
		return
	}
	writeResult(w, reason)
}

func (h *LibraryHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ops, ok := h.resolve(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	kind, ok := models.ParseMediaType(vars["mediaType"])
	if !ok {
		http.Error(w, "unsupported media type", http.StatusBadRequest)
		return
	}
	contentID, err := strconv.ParseInt(strings.TrimSpace(vars["contentID"]), 10, 64)
	if err != nil || contentID <= 0 {
		http.Error(w, "invalid content id", http.StatusBadRequest)
		return
	}

	key := models.CompositeKey{MediaType: kind, ContentID: contentID}
	if ops.perEpisode() && kind == models.MediaTypeTV {
		season, sErr := strconv.Atoi(r.URL.Query().Get("season"))
		episode, eErr := strconv.Atoi(r.URL.Query().Get("episode"))
		if sErr != nil || eErr != nil {
			http.Error(w, "season and episode are required for tv entries", http.StatusBadRequest)
			return
		}
		key.Season, key.Episode = &season, &episode
	}

	reason, err := ops.remove(r.Context(), key)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeResult(w, reason)
}
