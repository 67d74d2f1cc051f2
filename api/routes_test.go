package api_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"marquee/api"
	"marquee/handlers"
	"marquee/internal/auth"
	"marquee/internal/docstore"
	"marquee/services/catalog"
	"marquee/services/metadata"
	"marquee/services/preferences"
	"marquee/services/profiles"
	"marquee/services/session"
)

func newServer(t *testing.T, limiter *api.IPRateLimiter) (*mux.Router, *auth.TokenService) {
	t.Helper()
	fs := afero.NewMemMapFs()
	profileSvc, err := profiles.NewService(fs, "/data")
	require.NoError(t, err)
	prefsSvc, err := preferences.NewService(fs, "/data")
	require.NoError(t, err)
	sessions := session.NewRegistry(docstore.NewMemory(), profileSvc)
	tokens, err := auth.NewTokenService("secret", "marquee")
	require.NoError(t, err)

	catalogSvc := catalog.NewService(metadata.NewClient(""))
	r := mux.NewRouter()
	api.Register(r, api.Handlers{
		Catalog:     handlers.NewCatalogHandler(catalogSvc, prefsSvc, ""),
		Profiles:    handlers.NewProfilesHandler(profileSvc, sessions),
		Library:     handlers.NewLibraryHandler(sessions),
		Wishlist:    handlers.NewWishlistHandler(sessions),
		Preferences: handlers.NewPreferencesHandler(prefsSvc),
		Session:     handlers.NewSessionHandler(sessions),
	}, tokens, limiter)
	return r, tokens
}

func bearer(t *testing.T, tokens *auth.TokenService, req *http.Request) *http.Request {
	t.Helper()
	token, _, err := tokens.Sign("u1")
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRegister_HealthIsPublic(t *testing.T) {
	r, _ := newServer(t, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRegister_RequiresToken(t *testing.T) {
	r, tokens := newServer(t, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/profiles", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, bearer(t, tokens, httptest.NewRequest(http.MethodGet, "/api/profiles", nil)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"profiles":[],"activeProfileId":""}`, rec.Body.String())
}

func TestRegister_LibraryFlow(t *testing.T) {
	r, tokens := newServer(t, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, bearer(t, tokens, httptest.NewRequest(http.MethodPost, "/api/profiles", bytes.NewBufferString(`{"title":"Me"}`))))
	require.Equal(t, http.StatusCreated, rec.Code)

	body := `{"contentId":603,"mediaType":"movie","displayTitle":"The Matrix","posterPath":"/m.jpg"}`
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, bearer(t, tokens, httptest.NewRequest(http.MethodPost, "/api/library/likes", bytes.NewBufferString(body))))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"applied":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, bearer(t, tokens, httptest.NewRequest(http.MethodDelete, "/api/library/likes/movie/603", nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"applied":true}`, rec.Body.String())
}

func TestRegister_CatalogDegradesWithoutKey(t *testing.T) {
	r, tokens := newServer(t, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, bearer(t, tokens, httptest.NewRequest(http.MethodGet, "/api/catalog/movie?genre=action", nil)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"page":1,"totalPages":0,"totalResults":0}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, bearer(t, tokens, httptest.NewRequest(http.MethodGet, "/api/catalog/movie/550", nil)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRegister_RateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r, _ := newServer(t, api.NewIPRateLimiter(ctx, rate.Limit(0.001), 2))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRegister_Preflight(t *testing.T) {
	r, _ := newServer(t, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/wishlist/folders", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
