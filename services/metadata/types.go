package metadata

import (
	"strings"

	"marquee/models"
)

type tmdbResult struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
	GenreIDs     []int   `json:"genre_ids"`
	MediaType    string  `json:"media_type"`
}

type tmdbListResponse struct {
	Page         int          `json:"page"`
	TotalPages   int          `json:"total_pages"`
	TotalResults int          `json:"total_results"`
	Results      []tmdbResult `json:"results"`
}

type tmdbDetailResponse struct {
	tmdbResult
	Tagline         string         `json:"tagline"`
	Genres          []models.Genre `json:"genres"`
	Runtime         int            `json:"runtime"`
	EpisodeRunTime  []int          `json:"episode_run_time"`
	Status          string         `json:"status"`
	OriginCountry   []string       `json:"origin_country"`
	NumberOfSeasons int            `json:"number_of_seasons"`
	Adult           bool           `json:"adult"`
}

// toSummary maps a result row. fallback is used when the row has no media_type (discover endpoints).
func (r tmdbResult) toSummary(fallback models.MediaType) (models.ContentSummary, bool) {
	kind := fallback
	if r.MediaType != "" {
		parsed, ok := models.ParseMediaType(r.MediaType)
		if !ok {
			return models.ContentSummary{}, false
		}
		kind = parsed
	}
	if !kind.Valid() {
		return models.ContentSummary{}, false
	}

	return models.ContentSummary{
		ID:           r.ID,
		MediaType:    kind,
		Title:        pickName(kind, r.Name, r.Title),
		Overview:     r.Overview,
		PosterPath:   r.PosterPath,
		BackdropPath: r.BackdropPath,
		ReleaseDate:  pickDate(kind, r.FirstAirDate, r.ReleaseDate),
		VoteAverage:  r.VoteAverage,
		GenreIDs:     r.GenreIDs,
	}, true
}

func (r tmdbListResponse) toPage(fallback models.MediaType) models.ContentPage {
	page := models.ContentPage{
		Items:        make([]models.ContentSummary, 0, len(r.Results)),
		Page:         r.Page,
		TotalPages:   r.TotalPages,
		TotalResults: r.TotalResults,
	}
	for _, res := range r.Results {
		if summary, ok := res.toSummary(fallback); ok {
			page.Items = append(page.Items, summary)
		}
	}
	return page
}

func (r tmdbDetailResponse) toDetail(kind models.MediaType) *models.ContentDetail {
	r.MediaType = ""
	summary, _ := r.tmdbResult.toSummary(kind)
	runtime := r.Runtime
	if runtime == 0 && len(r.EpisodeRunTime) > 0 {
		runtime = r.EpisodeRunTime[0]
	}
	ids := make([]int, 0, len(r.Genres))
	for _, g := range r.Genres {
		ids = append(ids, g.ID)
	}
	summary.GenreIDs = ids

	return &models.ContentDetail{
		ContentSummary: summary,
		Tagline:        r.Tagline,
		Genres:         r.Genres,
		Runtime:        runtime,
		Status:         r.Status,
		OriginCountry:  r.OriginCountry,
		NumberOfSeason: r.NumberOfSeasons,
		Adult:          r.Adult,
	}
}

// pickName prefers the field TMDB populates for the media type.
func pickName(kind models.MediaType, seriesName, movieTitle string) string {
	if kind == models.MediaTypeTV {
		if strings.TrimSpace(seriesName) != "" {
			return seriesName
		}
		return movieTitle
	}
	if strings.TrimSpace(movieTitle) != "" {
		return movieTitle
	}
	return seriesName
}

func pickDate(kind models.MediaType, firstAir, release string) string {
	if kind == models.MediaTypeTV && firstAir != "" {
		return firstAir
	}
	if release != "" {
		return release
	}
	return firstAir
}
