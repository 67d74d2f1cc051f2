package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"marquee/models"
)

func TestBuild_GenreTablesDifferPerMediaType(t *testing.T) {
	movie := Build(models.MediaTypeMovie, Selection{Genres: []string{"SF"}})
	tv := Build(models.MediaTypeTV, Selection{Genres: []string{"SF"}})

	assert.Equal(t, "878", movie.Get("with_genres"))
	assert.Equal(t, "10765", tv.Get("with_genres"))

	assert.Equal(t, "14", Build(models.MediaTypeMovie, Selection{Genres: []string{"Fantasy"}}).Get("with_genres"))
	assert.Equal(t, "10765", Build(models.MediaTypeTV, Selection{Genres: []string{"Fantasy"}}).Get("with_genres"))
}

func TestBuild_GenreLabelNormalisation(t *testing.T) {
	for _, label := range []string{"Sci-Fi", "sci fi", "Science Fiction", "sf", "Sci-Fi & Fantasy"} {
		id, ok := GenreID(models.MediaTypeMovie, label)
		assert.True(t, ok, label)
		assert.Equal(t, 878, id, label)
	}
	id, ok := GenreID(models.MediaTypeMovie, "Comédie")
	assert.False(t, ok)
	assert.Zero(t, id)
}

func TestBuild_MultipleGenresDeduplicated(t *testing.T) {
	v := Build(models.MediaTypeTV, Selection{Genres: []string{"SF", "Fantasy", "Drama,unknown"}})
	assert.Equal(t, "18,10765", v.Get("with_genres"))
}

func TestBuild_UnknownLabelsDropped(t *testing.T) {
	v := Build(models.MediaTypeTV, Selection{Genres: []string{"Horror"}, Sort: "revenue", Country: "Atlantis"})
	assert.False(t, v.Has("with_genres"))
	assert.False(t, v.Has("sort_by"))
	assert.False(t, v.Has("with_origin_country"))
}

func TestBuild_SortLabels(t *testing.T) {
	tests := []struct {
		kind  models.MediaType
		label string
		want  string
	}{
		{models.MediaTypeMovie, "popular", "popularity.desc"},
		{models.MediaTypeMovie, "latest", "primary_release_date.desc"},
		{models.MediaTypeTV, "Latest", "first_air_date.desc"},
		{models.MediaTypeMovie, "title", "title.asc"},
		{models.MediaTypeTV, "title", "name.asc"},
		{models.MediaTypeTV, "Top Rated", "vote_average.desc"},
	}
	for _, tt := range tests {
		v := Build(tt.kind, Selection{Sort: tt.label})
		assert.Equal(t, tt.want, v.Get("sort_by"), "%s %s", tt.kind, tt.label)
	}

	rated := Build(models.MediaTypeMovie, Selection{Sort: "rating"})
	assert.Equal(t, "100", rated.Get("vote_count.gte"))
}

func TestBuild_CountryAndDefaults(t *testing.T) {
	v := Build(models.MediaTypeMovie, Selection{Country: "kr", Page: 0, IncludeAdult: false})
	assert.Equal(t, "KR", v.Get("with_origin_country"))
	assert.Equal(t, "1", v.Get("page"))
	assert.Equal(t, DefaultLanguage, v.Get("language"))
	assert.Equal(t, "false", v.Get("include_adult"))

	v = Build(models.MediaTypeMovie, Selection{Country: "South Korea", Page: 9999, Language: "ko-kr", IncludeAdult: true})
	assert.Equal(t, "KR", v.Get("with_origin_country"))
	assert.Equal(t, "500", v.Get("page"))
	assert.Equal(t, "ko-KR", v.Get("language"))
	assert.Equal(t, "true", v.Get("include_adult"))
}

func TestGenresListsTableForKind(t *testing.T) {
	movie := Genres(models.MediaTypeMovie)
	tv := Genres(models.MediaTypeTV)
	assert.Len(t, movie, len(movieGenres))
	assert.Len(t, tv, len(tvGenres))
	assert.Equal(t, "Action", movie[0].Name)
}
