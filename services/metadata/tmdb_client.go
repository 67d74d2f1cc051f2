package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"marquee/models"
	"marquee/utils/query"
)

const (
	defaultBaseURL  = "https://api.themoviedb.org"
	defaultCacheTTL = 24 * time.Hour
)

var (
	// ErrNotFound is returned when a title doesn't exist in TMDB.
	ErrNotFound = errors.New("title not found")
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("tmdb api key not configured")
	// ErrInvalidMediaType is returned for anything but movie or tv.
	ErrInvalidMediaType = errors.New("media type must be movie or tv")
)

// Client is a read-only TMDB v3 client.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *cache[string, *models.ContentDetail]
	attempts   uint
	retryDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCacheTTL sets how long detail lookups are cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = newCache[string, *models.ContentDetail](ttl)
	}
}

// WithLanguage sets the default response language.
func WithLanguage(lang string) Option {
	return func(c *Client) {
		c.language = query.Language(lang)
	}
}

// WithRateLimit throttles outgoing requests.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithRetry sets the number of attempts and the initial backoff delay.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		if attempts < 1 {
			attempts = 1
		}
		c.attempts = attempts
		c.retryDelay = delay
	}
}

// NewClient creates a new TMDB client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   strings.TrimSpace(apiKey),
		baseURL:  defaultBaseURL,
		language: query.DefaultLanguage,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		// TMDB allows roughly 50 requests per second
		limiter:    rate.NewLimiter(rate.Limit(40), 20),
		cache:      newCache[string, *models.ContentDetail](defaultCacheTTL),
		attempts:   3,
		retryDelay: 300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c != nil && c.apiKey != ""
}

// Discover lists titles of kind matching params (see utils/query.Build).
func (c *Client) Discover(ctx context.Context, kind models.MediaType, params url.Values) (models.ContentPage, error) {
	if !kind.Valid() {
		return models.ContentPage{}, ErrInvalidMediaType
	}
	var resp tmdbListResponse
	if err := c.get(ctx, "/3/discover/"+string(kind), params, &resp); err != nil {
		return models.ContentPage{}, err
	}
	return resp.toPage(kind), nil
}

// Search runs a multi search across movies and tv. People are dropped from the results.
func (c *Client) Search(ctx context.Context, text string, page int, lang string) (models.ContentPage, error) {
	params := url.Values{}
	params.Set("query", strings.TrimSpace(text))
	if page < 1 {
		page = 1
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("include_adult", "false")
	if lang != "" {
		params.Set("language", query.Language(lang))
	}

	var resp tmdbListResponse
	if err := c.get(ctx, "/3/search/multi", params, &resp); err != nil {
		return models.ContentPage{}, err
	}
	return resp.toPage(""), nil
}

// Detail fetches a single title. Results are cached per kind, id and language.
func (c *Client) Detail(ctx context.Context, kind models.MediaType, id int64, lang string) (*models.ContentDetail, error) {
	if !kind.Valid() {
		return nil, ErrInvalidMediaType
	}
	if id <= 0 {
		return nil, ErrNotFound
	}
	lang = c.resolveLanguage(lang)
	cacheKey := fmt.Sprintf("%s:%d:%s", kind, id, lang)
	if detail, ok := c.cache.get(cacheKey); ok {
		return detail, nil
	}

	params := url.Values{}
	params.Set("language", lang)
	var resp tmdbDetailResponse
	if err := c.get(ctx, fmt.Sprintf("/3/%s/%d", kind, id), params, &resp); err != nil {
		return nil, err
	}

	detail := resp.toDetail(kind)
	c.cache.set(cacheKey, detail)
	return detail, nil
}

func (c *Client) resolveLanguage(lang string) string {
	if strings.TrimSpace(lang) == "" {
		return c.language
	}
	return query.Language(lang)
}

// get performs a throttled GET with exponential backoff on transport errors, 429 and 5xx.
func (c *Client) get(ctx context.Context, path string, params url.Values, v any) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	q := url.Values{}
	for k, vals := range params {
		q[k] = append([]string(nil), vals...)
	}
	q.Set("api_key", c.apiKey)
	if q.Get("language") == "" {
		q.Set("language", c.language)
	}
	endpoint := c.baseURL + path + "?" + q.Encode()

	return retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			req.Header.Set("Accept", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("execute request: %w", err)
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return retry.Unrecoverable(ErrNotFound)
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				return fmt.Errorf("TMDB API error: %s", resp.Status)
			case resp.StatusCode != http.StatusOK:
				return retry.Unrecoverable(fmt.Errorf("TMDB API error: %s", resp.Status))
			}

			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode response: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[tmdb] %s failed (attempt %d/%d): %v", path, n+1, c.attempts, err)
		}),
	)
}
