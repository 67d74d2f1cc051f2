package models

import (
	"fmt"
	"strings"
)

// MediaType distinguishes movies from tv shows. The two live in separate id spaces.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// ParseMediaType normalises user supplied media types. "series" and "show" are accepted as tv.
func ParseMediaType(value string) (MediaType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "movie", "movies", "film":
		return MediaTypeMovie, true
	case "tv", "series", "show", "shows":
		return MediaTypeTV, true
	default:
		return "", false
	}
}

// Valid reports whether the media type is one of the known values.
func (m MediaType) Valid() bool {
	return m == MediaTypeMovie || m == MediaTypeTV
}

// LibraryEntry is the metadata shared by every per-profile library record.
type LibraryEntry struct {
	ContentID     int64     `json:"contentId"`
	MediaType     MediaType `json:"mediaType"`
	DisplayTitle  string    `json:"displayTitle"`
	PosterPath    string    `json:"posterPath,omitempty"`
	BackdropPath  string    `json:"backdropPath,omitempty"`
	StillPath     string    `json:"stillPath,omitempty"`
	SeasonNumber  *int      `json:"seasonNumber,omitempty"`
	EpisodeNumber *int      `json:"episodeNumber,omitempty"`
	EpisodeTitle  string    `json:"episodeTitle,omitempty"`
	VoteAverage   *float64  `json:"voteAverage,omitempty"`
}

// HasImage reports whether at least one image reference is present.
func (e LibraryEntry) HasImage() bool {
	return strings.TrimSpace(e.PosterPath) != "" ||
		strings.TrimSpace(e.BackdropPath) != "" ||
		strings.TrimSpace(e.StillPath) != ""
}

// ContentKey is the (mediaType, contentId) identity, ignoring episode coordinates.
func (e LibraryEntry) ContentKey() CompositeKey {
	return CompositeKey{MediaType: e.MediaType, ContentID: e.ContentID}
}

// EpisodeKey includes season and episode for tv entries. Movies never carry them.
func (e LibraryEntry) EpisodeKey() CompositeKey {
	key := e.ContentKey()
	if e.MediaType == MediaTypeTV && e.SeasonNumber != nil && e.EpisodeNumber != nil {
		season, episode := *e.SeasonNumber, *e.EpisodeNumber
		key.Season = &season
		key.Episode = &episode
	}
	return key
}

// WatchingEntry is a continue-watching record. Progress is optional and only
// kept as supplied when the entry is created.
type WatchingEntry struct {
	LibraryEntry
	UpdatedAt int64    `json:"updatedAt"`
	Progress  *float64 `json:"progress,omitempty"`
}

// LikedEntry records content the profile liked.
type LikedEntry struct {
	LibraryEntry
	LikedAt int64 `json:"likedAt"`
}

// DownloadedEntry records content the profile marked as downloaded.
type DownloadedEntry struct {
	LibraryEntry
	DownloadedAt int64 `json:"downloadedAt"`
}

// CompositeKey identifies an entry within one profile collection.
type CompositeKey struct {
	MediaType MediaType
	ContentID int64
	Season    *int
	Episode   *int
}

// String renders the key as used for document ids, e.g. movie:550 or tv:1399:s1:e2.
func (k CompositeKey) String() string {
	base := fmt.Sprintf("%s:%d", k.MediaType, k.ContentID)
	if k.Season != nil && k.Episode != nil {
		return fmt.Sprintf("%s:s%d:e%d", base, *k.Season, *k.Episode)
	}
	return base
}
