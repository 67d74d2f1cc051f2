package library

import (
	"marquee/internal/docstore"
	"marquee/models"
)

// Collection names in the document store.
const (
	CollectionWatching  = "watching"
	CollectionLikes     = "likes"
	CollectionDownloads = "downloads"
)

type (
	Watching  = Manager[models.WatchingEntry]
	Likes     = Manager[models.LikedEntry]
	Downloads = Manager[models.DownloadedEntry]
)

// WatchingSchema keys tv entries per episode. Movies must not carry episode coordinates.
var WatchingSchema = Schema[models.WatchingEntry]{
	Collection: CollectionWatching,
	Key:        func(e models.WatchingEntry) models.CompositeKey { return e.EpisodeKey() },
	Entry:      func(e models.WatchingEntry) models.LibraryEntry { return e.LibraryEntry },
	Validate:   validateWatching,
	Stamp:      func(e *models.WatchingEntry, ts int64) { e.UpdatedAt = ts },
	Timestamp:  func(e models.WatchingEntry) int64 { return e.UpdatedAt },
}

var LikesSchema = Schema[models.LikedEntry]{
	Collection: CollectionLikes,
	Key:        func(e models.LikedEntry) models.CompositeKey { return e.ContentKey() },
	Entry:      func(e models.LikedEntry) models.LibraryEntry { return e.LibraryEntry },
	Stamp:      func(e *models.LikedEntry, ts int64) { e.LikedAt = ts },
	Timestamp:  func(e models.LikedEntry) int64 { return e.LikedAt },
}

var DownloadsSchema = Schema[models.DownloadedEntry]{
	Collection: CollectionDownloads,
	Key:        func(e models.DownloadedEntry) models.CompositeKey { return e.ContentKey() },
	Entry:      func(e models.DownloadedEntry) models.LibraryEntry { return e.LibraryEntry },
	Stamp:      func(e *models.DownloadedEntry, ts int64) { e.DownloadedAt = ts },
	Timestamp:  func(e models.DownloadedEntry) int64 { return e.DownloadedAt },
}

func NewWatching(store docstore.Store, userID string, activeProfile ProfileFunc) *Watching {
	return NewManager(WatchingSchema, store, userID, activeProfile)
}

func NewLikes(store docstore.Store, userID string, activeProfile ProfileFunc) *Likes {
	return NewManager(LikesSchema, store, userID, activeProfile)
}

func NewDownloads(store docstore.Store, userID string, activeProfile ProfileFunc) *Downloads {
	return NewManager(DownloadsSchema, store, userID, activeProfile)
}

func validateWatching(e models.WatchingEntry) RejectReason {
	hasSeason, hasEpisode := e.SeasonNumber != nil, e.EpisodeNumber != nil
	switch e.MediaType {
	case models.MediaTypeTV:
		if !hasSeason || !hasEpisode {
			return RejectIncompleteEpisode
		}
		if *e.SeasonNumber < 0 || *e.EpisodeNumber < 1 {
			return RejectIncompleteEpisode
		}
	case models.MediaTypeMovie:
		if hasSeason || hasEpisode {
			return RejectIncompleteEpisode
		}
	}
	if e.Progress != nil && (*e.Progress < 0 || *e.Progress > 1) {
		return RejectInvalidEntry
	}
	return Accepted
}
