package models

import "time"

// ContentRef is a lightweight pointer to catalog content stored inside a wishlist folder.
type ContentRef struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	PosterPath string    `json:"posterPath,omitempty"`
	MediaType  MediaType `json:"mediaType"`
}

// Matches reports whether the ref points at the given content. An empty media type matches by id alone.
func (c ContentRef) Matches(id int64, mediaType MediaType) bool {
	if c.ID != id {
		return false
	}
	return mediaType == "" || c.MediaType == mediaType
}

// WishlistFolder is a named, user curated list of content.
type WishlistFolder struct {
	ID        string       `json:"folderId"`
	Name      string       `json:"name"`
	CreatedAt time.Time    `json:"createdAt"`
	Contents  []ContentRef `json:"contents"`
}

// Index returns the position of the matching ref, or -1.
func (f WishlistFolder) Index(id int64, mediaType MediaType) int {
	for i, ref := range f.Contents {
		if ref.Matches(id, mediaType) {
			return i
		}
	}
	return -1
}
