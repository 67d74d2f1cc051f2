package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"marquee/internal/auth"
	"marquee/services/library"
	"marquee/services/session"
)

// mutationResult is the body returned by every library and wishlist mutation.
// A skipped mutation is still a 200: Applied is false and Reason says why.
type mutationResult struct {
	Applied bool                 `json:"applied"`
	Reason  library.RejectReason `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, reason library.RejectReason) {
	writeJSON(w, http.StatusOK, mutationResult{Applied: reason.Applied(), Reason: reason})
}

// writeStoreError maps manager errors: a missing user is 401, anything else is a
// failure of the remote document store.
func writeStoreError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, library.ErrAuthRequired), errors.Is(err, session.ErrUserIDRequired):
		status = http.StatusUnauthorized
	}
	http.Error(w, err.Error(), status)
}

func jsonDecoder(body io.Reader) *json.Decoder {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec
}

func decodeBody(r *http.Request, v any) error {
	return jsonDecoder(r.Body).Decode(v)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(auth.GetUserID(r))
	if userID == "" {
		http.Error(w, library.ErrAuthRequired.Error(), http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}
