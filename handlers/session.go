package handlers

import (
	"net/http"

	"marquee/services/session"
)

type sessionCloser interface {
	Logout(userID string)
}

var _ sessionCloser = (*session.Registry)(nil)

type SessionHandler struct {
	Sessions sessionCloser
}

func NewSessionHandler(sessions sessionCloser) *SessionHandler {
	return &SessionHandler{Sessions: sessions}
}

// Logout drops the cached library state of the caller. Stored documents are kept.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	h.Sessions.Logout(userID)
	w.WriteHeader(http.StatusNoContent)
}
