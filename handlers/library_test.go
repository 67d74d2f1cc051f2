package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"marquee/handlers"
	"marquee/models"
)

func TestLibraryAddAndList(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, "Me")
	h := handlers.NewLibraryHandler(f.sessions)

	body := map[string]any{
		"contentId":    550,
		"mediaType":    "movie",
		"displayTitle": "Fight Club",
		"posterPath":   "/fc.jpg",
	}
	rec := httptest.NewRecorder()
	h.Add(rec, newRequest(http.MethodPost, "/api/library/likes", body, map[string]string{"collection": "likes"}))
	if res := decodeResult(t, rec); !res.Applied {
		t.Fatalf("expected like to be applied, got %+v", res)
	}

	// the same title again is skipped
	rec = httptest.NewRecorder()
	h.Add(rec, newRequest(http.MethodPost, "/api/library/likes", body, map[string]string{"collection": "likes"}))
	if res := decodeResult(t, rec); res.Applied || res.Reason != "duplicate" {
		t.Fatalf("expected duplicate reject, got %+v", res)
	}

	recList := httptest.NewRecorder()
	h.List(recList, newRequest(http.MethodGet, "/api/library/likes", nil, map[string]string{"collection": "likes"}))
	if recList.Code != http.StatusOK {
		t.Fatalf("expected list status 200, got %d", recList.Code)
	}

	var items []models.LikedEntry
	if err := json.Unmarshal(recList.Body.Bytes(), &items); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if len(items) != 1 || items[0].ContentID != 550 || items[0].LikedAt == 0 {
		t.Fatalf("unexpected likes: %+v", items)
	}
}

func TestLibraryRejectsWithoutImage(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, "Me")
	h := handlers.NewLibraryHandler(f.sessions)

	body := map[string]any{"contentId": 550, "mediaType": "movie", "displayTitle": "Fight Club"}
	rec := httptest.NewRecorder()
	h.Add(rec, newRequest(http.MethodPost, "/api/library/downloads", body, map[string]string{"collection": "downloads"}))
	if res := decodeResult(t, rec); res.Applied || res.Reason != "missing_image" {
		t.Fatalf("expected missing_image reject, got %+v", res)
	}
}

func TestLibraryWithoutProfile(t *testing.T) {
	f := newFixture(t)
	h := handlers.NewLibraryHandler(f.sessions)

	body := map[string]any{"contentId": 1, "mediaType": "movie", "displayTitle": "X", "posterPath": "/x.jpg"}
	rec := httptest.NewRecorder()
	h.Add(rec, newRequest(http.MethodPost, "/api/library/likes", body, map[string]string{"collection": "likes"}))
	if res := decodeResult(t, rec); res.Reason != "no_active_profile" {
		t.Fatalf("expected no_active_profile, got %+v", res)
	}
}

func TestLibraryWatchingRemoveEpisode(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, "Me")
	h := handlers.NewLibraryHandler(f.sessions)
	vars := map[string]string{"collection": "watching"}

	for _, ep := range []int{1, 2} {
		body := map[string]any{
			"contentId":     1399,
			"mediaType":     "tv",
			"displayTitle":  "Game of Thrones",
			"stillPath":     "/still.jpg",
			"seasonNumber":  1,
			"episodeNumber": ep,
		}
		rec := httptest.NewRecorder()
		h.Add(rec, newRequest(http.MethodPost, "/api/library/watching", body, vars))
		if res := decodeResult(t, rec); !res.Applied {
			t.Fatalf("expected episode %d to be applied, got %+v", ep, res)
		}
	}

	removeVars := map[string]string{"collection": "watching", "mediaType": "tv", "contentID": "1399"}
	rec := httptest.NewRecorder()
	h.Remove(rec, newRequest(http.MethodDelete, "/api/library/watching/tv/1399", nil, removeVars))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without season/episode, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Remove(rec, newRequest(http.MethodDelete, "/api/library/watching/tv/1399?season=1&episode=1", nil, removeVars))
	if res := decodeResult(t, rec); !res.Applied {
		t.Fatalf("expected remove to be applied, got %+v", res)
	}

	recList := httptest.NewRecorder()
	h.List(recList, newRequest(http.MethodGet, "/api/library/watching", nil, vars))
	var items []models.WatchingEntry
	if err := json.Unmarshal(recList.Body.Bytes(), &items); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if len(items) != 1 || *items[0].EpisodeNumber != 2 {
		t.Fatalf("expected only episode 2 to remain, got %+v", items)
	}
}

func TestLibrarySearchFilter(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, "Me")
	h := handlers.NewLibraryHandler(f.sessions)
	vars := map[string]string{"collection": "likes"}

	for i, title := range []string{"The Matrix", "Amélie", "Matrix Reloaded"} {
		body := map[string]any{"contentId": i + 1, "mediaType": "movie", "displayTitle": title, "posterPath": "/p.jpg"}
		rec := httptest.NewRecorder()
		h.Add(rec, newRequest(http.MethodPost, "/api/library/likes", body, vars))
		decodeResult(t, rec)
	}

	rec := httptest.NewRecorder()
	h.List(rec, newRequest(http.MethodGet, "/api/library/likes?q=amelie", nil, vars))
	var items []models.LikedEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("failed to decode list response: %v", err)
	}
	if len(items) != 1 || items[0].DisplayTitle != "Amélie" {
		t.Fatalf("expected accent-insensitive match, got %+v", items)
	}
}

func TestLibraryUnknownCollection(t *testing.T) {
	f := newFixture(t)
	h := handlers.NewLibraryHandler(f.sessions)

	rec := httptest.NewRecorder()
	h.List(rec, newRequest(http.MethodGet, "/api/library/history", nil, map[string]string{"collection": "history"}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLibraryRequiresUser(t *testing.T) {
	f := newFixture(t)
	h := handlers.NewLibraryHandler(f.sessions)

	req := httptest.NewRequest(http.MethodGet, "/api/library/likes", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
