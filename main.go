package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"marquee/api"
	"marquee/config"
	"marquee/handlers"
	"marquee/internal/auth"
	"marquee/internal/docstore"
	"marquee/services/catalog"
	"marquee/services/metadata"
	"marquee/services/preferences"
	"marquee/services/profiles"
	"marquee/services/session"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	issueToken := flag.String("issue-token", "", "print a bearer token for the given user id and exit")
	flag.Parse()

	fmt.Println("🚀 marquee backend starting...")

	// Determine config path (env or default)
	configPath := os.Getenv("MARQUEE_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	// Init config manager and load settings (creates defaults if missing)
	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			// Redirect standard log to both console and file
			multiWriter := io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			slog.SetDefault(slog.New(slog.NewTextHandler(multiWriter, &slog.HandlerOptions{Level: logLevel(settings.Log.Level)})))
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	// Apply port override if specified
	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	if problems := settings.Validate(); len(problems) > 0 {
		for _, p := range problems {
			log.Printf("config: %s", p)
		}
		log.Fatalf("invalid settings in %s", cfgManager.Path())
	}

	// Generate the token secret if missing
	if strings.TrimSpace(settings.Auth.Secret) == "" {
		secret, err := auth.GenerateSecret()
		if err != nil {
			log.Fatalf("failed to generate auth secret: %v", err)
		}
		settings.Auth.Secret = secret
		if err := cfgManager.Save(settings); err != nil {
			log.Fatalf("failed to persist generated auth secret: %v", err)
		}
		fmt.Println("🔑 Generated a new token signing secret.")
	}

	tokens, err := auth.NewTokenService(settings.Auth.Secret, settings.Auth.Issuer)
	if err != nil {
		log.Fatalf("failed to init token service: %v", err)
	}

	if userID := strings.TrimSpace(*issueToken); userID != "" {
		token, exp, err := tokens.Sign(userID)
		if err != nil {
			log.Fatalf("failed to issue token: %v", err)
		}
		fmt.Printf("%s\n(expires %s)\n", token, exp.Format(time.RFC3339))
		return
	}

	if settings.Database.Driver != docstore.DriverMemory {
		if err := os.MkdirAll(filepath.Dir(settings.Database.Path), 0755); err != nil {
			log.Fatalf("failed to create database directory: %v", err)
		}
	}
	store, err := docstore.Open(settings.Database.Driver, settings.Database.Path)
	if err != nil {
		log.Fatalf("failed to open document store: %v", err)
	}
	defer store.Close()

	fs := afero.NewOsFs()
	profileSvc, err := profiles.NewService(fs, settings.Cache.Directory)
	if err != nil {
		log.Fatalf("failed to init profiles service: %v", err)
	}
	profileSvc.SetLimit(settings.Library.MaxProfiles)

	prefsSvc, err := preferences.NewService(fs, settings.Cache.Directory)
	if err != nil {
		log.Fatalf("failed to init preferences service: %v", err)
	}

	tmdb := metadata.NewClient(settings.Metadata.TMDBAPIKey,
		metadata.WithLanguage(settings.Metadata.Language),
		metadata.WithCacheTTL(time.Duration(settings.Metadata.CacheTTLHours)*time.Hour),
	)
	if !tmdb.IsConfigured() {
		log.Println("⚠️  No TMDB API key configured; catalog listings will be empty.")
	}
	catalogSvc := catalog.NewService(tmdb)
	sessions := session.NewRegistry(store, profileSvc)

	serverCtx, stopServerCtx := context.WithCancel(context.Background())
	defer stopServerCtx()

	var limiter *api.IPRateLimiter
	if settings.RateLimit.RequestsPerSecond > 0 {
		limiter = api.NewIPRateLimiter(serverCtx, rate.Limit(settings.RateLimit.RequestsPerSecond), settings.RateLimit.Burst)
	}

	r := mux.NewRouter()
	api.Register(r, api.Handlers{
		Catalog:     handlers.NewCatalogHandler(catalogSvc, prefsSvc, settings.Metadata.Language),
		Profiles:    handlers.NewProfilesHandler(profileSvc, sessions),
		Library:     handlers.NewLibraryHandler(sessions),
		Wishlist:    handlers.NewWishlistHandler(sessions),
		Preferences: handlers.NewPreferencesHandler(prefsSvc),
		Session:     handlers.NewSessionHandler(sessions),
	}, tokens, limiter)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("server starting",
		"addr", addr,
		"store", settings.Database.Driver,
		"data_dir", settings.Cache.Directory,
		"tmdb", tmdb.IsConfigured(),
	)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-shutdownChan
	log.Println("🛑 Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Shutdown HTTP server gracefully
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	stopServerCtx()

	log.Println("✅ Shutdown complete")
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
