package library

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"marquee/utils/similarity"
)

// Search filters the cached list by title. Matches are fuzzy (characters in order,
// case and accent insensitive) and ranked by title similarity, best first.
// An empty query returns the list unchanged.
func (m *Manager[E]) Search(query string) []E {
	items := m.Items()
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}

	titles := make([]string, len(items))
	for i, item := range items {
		titles[i] = m.schema.Entry(item).DisplayTitle
	}

	ranks := fuzzy.RankFindNormalizedFold(query, titles)
	type scored struct {
		index    int
		score    float64
		distance int
	}
	hits := make([]scored, 0, len(ranks))
	for _, r := range ranks {
		hits = append(hits, scored{
			index:    r.OriginalIndex,
			score:    similarity.Similarity(query, r.Target),
			distance: r.Distance,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score == hits[j].score {
			if hits[i].distance == hits[j].distance {
				return hits[i].index < hits[j].index
			}
			return hits[i].distance < hits[j].distance
		}
		return hits[i].score > hits[j].score
	})

	out := make([]E, 0, len(hits))
	for _, h := range hits {
		out = append(out, items[h.index])
	}
	return out
}
