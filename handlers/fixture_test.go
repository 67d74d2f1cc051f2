package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"marquee/internal/auth"
	"marquee/internal/docstore"
	"marquee/services/preferences"
	"marquee/services/profiles"
	"marquee/services/session"
)

const testUserID = "user-1"

type fixture struct {
	profiles    *profiles.Service
	preferences *preferences.Service
	store       docstore.Store
	sessions    *session.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()

	profileSvc, err := profiles.NewService(fs, "/data")
	if err != nil {
		t.Fatalf("failed to create profiles service: %v", err)
	}
	prefsSvc, err := preferences.NewService(fs, "/data")
	if err != nil {
		t.Fatalf("failed to create preferences service: %v", err)
	}
	store := docstore.NewMemory()

	return &fixture{
		profiles:    profileSvc,
		preferences: prefsSvc,
		store:       store,
		sessions:    session.NewRegistry(store, profileSvc),
	}
}

func (f *fixture) createProfile(t *testing.T, title string) string {
	t.Helper()
	p, err := f.profiles.Create(testUserID, profiles.NewProfile{Title: title})
	if err != nil {
		t.Fatalf("failed to create profile %q: %v", title, err)
	}
	return p.ID
}

func newRequest(method, target string, body any, vars map[string]string) *http.Request {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	req = req.WithContext(auth.WithUserID(req.Context(), testUserID))
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

type result struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason"`
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) result {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	return res
}
