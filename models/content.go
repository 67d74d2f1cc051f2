package models

// ContentSummary is a catalog listing row returned by the content source.
type ContentSummary struct {
	ID           int64     `json:"id"`
	MediaType    MediaType `json:"mediaType"`
	Title        string    `json:"title"`
	Overview     string    `json:"overview,omitempty"`
	PosterPath   string    `json:"posterPath,omitempty"`
	BackdropPath string    `json:"backdropPath,omitempty"`
	ReleaseDate  string    `json:"releaseDate,omitempty"`
	VoteAverage  float64   `json:"voteAverage"`
	GenreIDs     []int     `json:"genreIds,omitempty"`
}

// ContentPage is one page of catalog results.
type ContentPage struct {
	Items        []ContentSummary `json:"items"`
	Page         int              `json:"page"`
	TotalPages   int              `json:"totalPages"`
	TotalResults int              `json:"totalResults"`
}

// EmptyPage is returned when a listing could not be fetched.
func EmptyPage(page int) ContentPage {
	if page < 1 {
		page = 1
	}
	return ContentPage{Items: []ContentSummary{}, Page: page}
}

// Genre is a provider genre id and its display name.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ContentDetail is the full record for a single title.
type ContentDetail struct {
	ContentSummary
	Tagline        string   `json:"tagline,omitempty"`
	Genres         []Genre  `json:"genres,omitempty"`
	Runtime        int      `json:"runtime,omitempty"`
	Status         string   `json:"status,omitempty"`
	OriginCountry  []string `json:"originCountry,omitempty"`
	NumberOfSeason int      `json:"numberOfSeasons,omitempty"`
	Adult          bool     `json:"adult"`
}

// LibraryEntry projects the detail into the shape stored by the library managers.
func (d ContentDetail) LibraryEntry() LibraryEntry {
	vote := d.VoteAverage
	return LibraryEntry{
		ContentID:    d.ID,
		MediaType:    d.MediaType,
		DisplayTitle: d.Title,
		PosterPath:   d.PosterPath,
		BackdropPath: d.BackdropPath,
		VoteAverage:  &vote,
	}
}
