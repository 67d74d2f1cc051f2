package api

import (
	"net/http"
	"net/http/pprof"
	"runtime"
	"strconv"

	"github.com/gorilla/mux"

	"marquee/handlers"
	"marquee/internal/auth"
)

func itoa(i int) string      { return strconv.Itoa(i) }
func itoa64(i uint64) string { return strconv.FormatUint(i, 10) }

// localhostOnlyMiddleware restricts access to localhost requests only
func localhostOnlyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		for i := len(host) - 1; i >= 0; i-- {
			if host[i] == ':' {
				host = host[:i]
				break
			}
		}
		if host != "localhost" && host != "127.0.0.1" && host != "::1" && host != "[::1]" {
			http.Error(w, "Debug endpoints only accessible from localhost", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Catalog     *handlers.CatalogHandler
	Profiles    *handlers.ProfilesHandler
	Library     *handlers.LibraryHandler
	Wishlist    *handlers.WishlistHandler
	Preferences *handlers.PreferencesHandler
	Session     *handlers.SessionHandler
}

// Register mounts API endpoints onto the provided router. A nil limiter disables rate limiting.
func Register(r *mux.Router, h Handlers, tokens *auth.TokenService, limiter *IPRateLimiter) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)
	if limiter != nil {
		api.Use(RateLimitMiddleware(limiter))
	}

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	// Protected routes - require a bearer token
	protected := api.PathPrefix("").Subrouter()
	protected.Use(auth.Middleware(tokens))

	protected.HandleFunc("/catalog/{mediaType}", h.Catalog.Browse).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/catalog/{mediaType}/genres", h.Catalog.Genres).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/catalog/{mediaType}/{id:[0-9]+}", h.Catalog.Detail).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/search", h.Catalog.Search).Methods(http.MethodGet, http.MethodOptions)

	protected.HandleFunc("/profiles", h.Profiles.List).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/profiles", h.Profiles.Create).Methods(http.MethodPost)
	protected.HandleFunc("/profiles/{profileID}", h.Profiles.Update).Methods(http.MethodPatch, http.MethodOptions)
	protected.HandleFunc("/profiles/{profileID}", h.Profiles.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/profiles/{profileID}/active", h.Profiles.SetActive).Methods(http.MethodPut, http.MethodOptions)
	protected.HandleFunc("/profiles/{profileID}/pin", h.Profiles.SetPin).Methods(http.MethodPut, http.MethodOptions)
	protected.HandleFunc("/profiles/{profileID}/pin", h.Profiles.ClearPin).Methods(http.MethodDelete)
	protected.HandleFunc("/profiles/{profileID}/unlock", h.Profiles.Unlock).Methods(http.MethodPost, http.MethodOptions)

	protected.HandleFunc("/library/{collection}", h.Library.List).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/library/{collection}", h.Library.Add).Methods(http.MethodPost)
	protected.HandleFunc("/library/{collection}/{mediaType}/{contentID:[0-9]+}", h.Library.Remove).Methods(http.MethodDelete, http.MethodOptions)

	protected.HandleFunc("/wishlist/folders", h.Wishlist.List).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/wishlist/folders", h.Wishlist.Create).Methods(http.MethodPost)
	protected.HandleFunc("/wishlist/folders/{folderID}", h.Wishlist.Rename).Methods(http.MethodPatch, http.MethodOptions)
	protected.HandleFunc("/wishlist/folders/{folderID}", h.Wishlist.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/wishlist/folders/{folderID}/contents", h.Wishlist.AddContent).Methods(http.MethodPost, http.MethodOptions)
	protected.HandleFunc("/wishlist/folders/{folderID}/contents/{contentID:[0-9]+}", h.Wishlist.RemoveContent).Methods(http.MethodDelete, http.MethodOptions)
	protected.HandleFunc("/wishlist/folders/{folderID}/move", h.Wishlist.MoveContent).Methods(http.MethodPost, http.MethodOptions)

	protected.HandleFunc("/preferences", h.Preferences.Get).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/preferences", h.Preferences.Update).Methods(http.MethodPut)
	protected.HandleFunc("/preferences", h.Preferences.Reset).Methods(http.MethodDelete)
	protected.HandleFunc("/preferences/searches", h.Preferences.RecentSearches).Methods(http.MethodGet, http.MethodOptions)
	protected.HandleFunc("/preferences/searches", h.Preferences.ClearRecentSearches).Methods(http.MethodDelete)
	protected.HandleFunc("/preferences/searches/{query}", h.Preferences.RemoveRecentSearch).Methods(http.MethodDelete, http.MethodOptions)

	protected.HandleFunc("/session/logout", h.Session.Logout).Methods(http.MethodPost, http.MethodOptions)

	// Pprof debug endpoints (localhost only, no auth required for debugging)
	pprofRouter := api.PathPrefix("/debug/pprof").Subrouter()
	pprofRouter.Use(localhostOnlyMiddleware)
	pprofRouter.HandleFunc("/", pprof.Index)
	pprofRouter.HandleFunc("/profile", pprof.Profile)
	pprofRouter.HandleFunc("/heap", pprof.Handler("heap").ServeHTTP)
	pprofRouter.HandleFunc("/goroutine", pprof.Handler("goroutine").ServeHTTP)

	// Runtime stats endpoint (localhost only)
	runtimeRouter := api.PathPrefix("/debug/runtime").Subrouter()
	runtimeRouter.Use(localhostOnlyMiddleware)
	runtimeRouter.HandleFunc("", func(w http.ResponseWriter, r *http.Request) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{` +
			`"goroutines":` + itoa(runtime.NumGoroutine()) + `,` +
			`"heapAlloc":` + itoa64(m.HeapAlloc) + `,` +
			`"heapInuse":` + itoa64(m.HeapInuse) + `,` +
			`"numGC":` + itoa(int(m.NumGC)) +
			`}`))
	}).Methods(http.MethodGet)
}
