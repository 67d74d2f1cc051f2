package metadata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"marquee/models"
)

func newTestClient(serverURL string, opts ...Option) *Client {
	base := []Option{
		WithBaseURL(serverURL),
		WithRetry(3, time.Millisecond),
		WithRateLimit(rate.Inf, 1),
	}
	return NewClient("test-key", append(base, opts...)...)
}

func TestClient_Discover(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/discover/tv", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "10765", r.URL.Query().Get("with_genres"))
		assert.Equal(t, "en-US", r.URL.Query().Get("language"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"total_pages":3,"total_results":42,"results":[
			{"id":1399,"name":"Game of Thrones","poster_path":"/got.jpg","first_air_date":"2011-04-17","vote_average":8.4,"genre_ids":[10765]}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	params := url.Values{}
	params.Set("with_genres", "10765")

	page, err := client.Discover(context.Background(), models.MediaTypeTV, params)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 1)
	item := page.Items[0]
	assert.Equal(t, int64(1399), item.ID)
	assert.Equal(t, models.MediaTypeTV, item.MediaType)
	assert.Equal(t, "Game of Thrones", item.Title)
	assert.Equal(t, "2011-04-17", item.ReleaseDate)
}

func TestClient_SearchDropsPeople(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/3/search/multi", r.URL.Path)
		assert.Equal(t, "matrix", r.URL.Query().Get("query"))
		_, _ = w.Write([]byte(`{"page":1,"total_pages":1,"results":[
			{"id":603,"title":"The Matrix","media_type":"movie","poster_path":"/m.jpg"},
			{"id":6384,"name":"Keanu Reeves","media_type":"person"},
			{"id":1,"name":"Matrix","media_type":"tv"}
		]}`))
	}))
	defer server.Close()

	page, err := newTestClient(server.URL).Search(context.Background(), " matrix ", 1, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, models.MediaTypeMovie, page.Items[0].MediaType)
	assert.Equal(t, models.MediaTypeTV, page.Items[1].MediaType)
}

func TestClient_Detail(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/3/movie/550", r.URL.Path)
		assert.Equal(t, "ko-KR", r.URL.Query().Get("language"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":           550,
			"title":        "Fight Club",
			"poster_path":  "/fc.jpg",
			"release_date": "1999-10-15",
			"vote_average": 8.4,
			"runtime":      139,
			"genres":       []map[string]any{{"id": 18, "name": "Drama"}},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	detail, err := client.Detail(context.Background(), models.MediaTypeMovie, 550, "ko-kr")
	require.NoError(t, err)
	assert.Equal(t, "Fight Club", detail.Title)
	assert.Equal(t, 139, detail.Runtime)
	assert.Equal(t, []int{18}, detail.GenreIDs)

	// second call is served from cache
	_, err = client.Detail(context.Background(), models.MediaTypeMovie, 550, "ko-KR")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	entry := detail.LibraryEntry()
	assert.Equal(t, int64(550), entry.ContentID)
	assert.True(t, entry.HasImage())
}

func TestClient_Detail_NotFound(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status_code":34,"status_message":"The resource you requested could not be found."}`))
	}))
	defer server.Close()

	detail, err := newTestClient(server.URL).Detail(context.Background(), models.MediaTypeTV, 99999999, "")
	assert.Nil(t, detail)
	assert.ErrorIs(t, err, ErrNotFound)
	// not found is not retried
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"page":1,"results":[]}`))
	}))
	defer server.Close()

	page, err := newTestClient(server.URL).Discover(context.Background(), models.MediaTypeMovie, nil)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_GivesUpAfterAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Discover(context.Background(), models.MediaTypeMovie, nil)
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_NotConfigured(t *testing.T) {
	client := NewClient("  ")
	assert.False(t, client.IsConfigured())
	_, err := client.Discover(context.Background(), models.MediaTypeMovie, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewClient("k").Detail(context.Background(), "anime", 1, "")
	assert.ErrorIs(t, err, ErrInvalidMediaType)
}

func TestCacheExpiry(t *testing.T) {
	c := newCache[string, int](20 * time.Millisecond)
	c.set("a", 1)
	v, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	time.Sleep(40 * time.Millisecond)
	_, ok = c.get("a")
	assert.False(t, ok)

	disabled := newCache[string, int](0)
	disabled.set("a", 1)
	_, ok = disabled.get("a")
	assert.False(t, ok)
}
