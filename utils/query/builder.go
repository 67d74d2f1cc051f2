// Package query turns user facing catalog filters into TMDB discover parameters.
package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"marquee/models"
)

const (
	DefaultLanguage = "en-US"
	// minRatedVotes keeps rating sorts from being dominated by titles with a handful of votes.
	minRatedVotes = "100"
)

// Selection is the set of filters chosen in the catalog UI.
type Selection struct {
	Genres       []string
	Country      string
	Sort         string
	Page         int
	Language     string
	IncludeAdult bool
}

var countryAliases = map[string]string{
	"korea":        "KR",
	"southkorea":   "KR",
	"usa":          "US",
	"america":      "US",
	"unitedstates": "US",
	"uk":           "GB",
	"britain":      "GB",
	"japan":        "JP",
	"china":        "CN",
	"france":       "FR",
	"germany":      "DE",
	"spain":        "ES",
	"india":        "IN",
	"italy":        "IT",
	"canada":       "CA",
}

// Build returns the discover query for kind. Unknown genre, country and sort labels are dropped.
func Build(kind models.MediaType, sel Selection) url.Values {
	v := url.Values{}

	if ids := genreIDs(kind, sel.Genres); len(ids) > 0 {
		v.Set("with_genres", strings.Join(ids, ","))
	}
	if country, ok := Country(sel.Country); ok {
		v.Set("with_origin_country", country)
	}
	if token, ok := SortToken(kind, sel.Sort); ok {
		v.Set("sort_by", token)
		if strings.HasPrefix(token, "vote_average") {
			v.Set("vote_count.gte", minRatedVotes)
		}
	}

	page := sel.Page
	if page < 1 {
		page = 1
	}
	// TMDB rejects pages above 500
	if page > 500 {
		page = 500
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("language", Language(sel.Language))
	v.Set("include_adult", strconv.FormatBool(sel.IncludeAdult))
	return v
}

// SortToken maps a sort label to the provider token for kind.
func SortToken(kind models.MediaType, label string) (string, bool) {
	switch normaliseLabel(label) {
	case "popular", "popularity", "trending":
		return "popularity.desc", true
	case "latest", "newest", "recent", "releasedate":
		if kind == models.MediaTypeTV {
			return "first_air_date.desc", true
		}
		return "primary_release_date.desc", true
	case "oldest":
		if kind == models.MediaTypeTV {
			return "first_air_date.asc", true
		}
		return "primary_release_date.asc", true
	case "rating", "toprated", "rated":
		return "vote_average.desc", true
	case "title", "name", "az":
		if kind == models.MediaTypeTV {
			return "name.asc", true
		}
		return "title.asc", true
	case "revenue":
		if kind == models.MediaTypeMovie {
			return "revenue.desc", true
		}
	}
	return "", false
}

// Country resolves a country label or ISO 3166 code to an upper case alpha-2 code.
func Country(label string) (string, bool) {
	key := normaliseLabel(label)
	if key == "" {
		return "", false
	}
	if code, ok := countryAliases[key]; ok {
		return code, true
	}
	if len(key) != 2 {
		return "", false
	}
	region, err := language.ParseRegion(key)
	if err != nil || !region.IsCountry() {
		return "", false
	}
	return region.String(), true
}

// Language canonicalises a BCP 47 tag, falling back to en-US.
func Language(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return DefaultLanguage
	}
	parsed, err := language.Parse(tag)
	if err != nil || parsed == language.Und {
		return DefaultLanguage
	}
	return parsed.String()
}

func genreIDs(kind models.MediaType, labels []string) []string {
	seen := make(map[int]bool, len(labels))
	var ids []int
	for _, raw := range labels {
		for _, label := range strings.Split(raw, ",") {
			id, ok := GenreID(kind, label)
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.Itoa(id)
	}
	return out
}
