package query

import (
	"sort"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"

	"marquee/models"
)

// Movie and tv genres use different TMDB id spaces.
var movieGenres = map[string]int{
	"action":      28,
	"adventure":   12,
	"animation":   16,
	"comedy":      35,
	"crime":       80,
	"documentary": 99,
	"drama":       18,
	"family":      10751,
	"fantasy":     14,
	"history":     36,
	"horror":      27,
	"music":       10402,
	"mystery":     9648,
	"romance":     10749,
	"sf":          878,
	"thriller":    53,
	"tvmovie":     10770,
	"war":         10752,
	"western":     37,
}

var tvGenres = map[string]int{
	"action":      10759,
	"adventure":   10759,
	"animation":   16,
	"comedy":      35,
	"crime":       80,
	"documentary": 99,
	"drama":       18,
	"family":      10751,
	"fantasy":     10765,
	"kids":        10762,
	"mystery":     9648,
	"news":        10763,
	"reality":     10764,
	"sf":          10765,
	"soap":        10766,
	"talk":        10767,
	"war":         10768,
	"politics":    10768,
	"western":     37,
}

var genreAliases = map[string]string{
	"scifi":           "sf",
	"sciencefiction":  "sf",
	"scififantasy":    "sf",
	"actionadventure": "action",
	"animated":        "animation",
	"anime":           "animation",
	"docu":            "documentary",
	"documentaries":   "documentary",
	"romcom":          "romance",
	"suspense":        "thriller",
	"warpolitics":     "war",
	"children":        "kids",
	"realitytv":       "reality",
	"talkshow":        "talk",
	"soapopera":       "soap",
	"historical":      "history",
	"musical":         "music",
	"tvfilm":          "tvmovie",
}

var displayNames = map[string]string{
	"action":      "Action",
	"adventure":   "Adventure",
	"animation":   "Animation",
	"comedy":      "Comedy",
	"crime":       "Crime",
	"documentary": "Documentary",
	"drama":       "Drama",
	"family":      "Family",
	"fantasy":     "Fantasy",
	"history":     "History",
	"horror":      "Horror",
	"kids":        "Kids",
	"music":       "Music",
	"mystery":     "Mystery",
	"news":        "News",
	"politics":    "Politics",
	"reality":     "Reality",
	"romance":     "Romance",
	"sf":          "SF",
	"soap":        "Soap",
	"talk":        "Talk",
	"thriller":    "Thriller",
	"tvmovie":     "TV Movie",
	"war":         "War",
	"western":     "Western",
}

// normaliseLabel folds a user facing label to its lookup form: ASCII, lower case,
// letters and digits only. "Sci-Fi", "sci fi" and "SF" all end up as "sf".
func normaliseLabel(label string) string {
	label = unidecode.Unidecode(strings.ReplaceAll(label, "&", ""))
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	key := b.String()
	if alias, ok := genreAliases[key]; ok {
		return alias
	}
	return key
}

func genreTable(kind models.MediaType) map[string]int {
	if kind == models.MediaTypeTV {
		return tvGenres
	}
	return movieGenres
}

// GenreID resolves a genre label to the provider id for kind.
func GenreID(kind models.MediaType, label string) (int, bool) {
	id, ok := genreTable(kind)[normaliseLabel(label)]
	return id, ok
}

// Genres lists the labels available for kind, sorted by name.
func Genres(kind models.MediaType) []models.Genre {
	table := genreTable(kind)
	out := make([]models.Genre, 0, len(table))
	for key, id := range table {
		out = append(out, models.Genre{ID: id, Name: displayNames[key]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
