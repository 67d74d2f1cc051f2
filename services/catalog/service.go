// Package catalog is the read-only browsing surface over the content source.
// Listing failures degrade to empty pages; detail failures are returned to the caller.
package catalog

import (
	"context"
	"log"
	"net/url"
	"sort"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"marquee/models"
	"marquee/services/metadata"
	"marquee/utils/query"
)

// MaxPages bounds BrowsePages fan-out.
const MaxPages = 5

// Source is the content provider the catalog reads from.
type Source interface {
	Discover(ctx context.Context, kind models.MediaType, params url.Values) (models.ContentPage, error)
	Search(ctx context.Context, text string, page int, lang string) (models.ContentPage, error)
	Detail(ctx context.Context, kind models.MediaType, id int64, lang string) (*models.ContentDetail, error)
}

var _ Source = (*metadata.Client)(nil)

type Service struct {
	source Source
}

func NewService(source Source) *Service {
	return &Service{source: source}
}

// Browse returns one page of titles matching sel. Errors are logged and yield an empty page.
func (s *Service) Browse(ctx context.Context, kind models.MediaType, sel query.Selection) models.ContentPage {
	params := query.Build(kind, sel)
	page, err := s.source.Discover(ctx, kind, params)
	if err != nil {
		log.Printf("[catalog] discover %s %s failed: %v", kind, params.Encode(), err)
		return models.EmptyPage(sel.Page)
	}
	if page.Items == nil {
		page.Items = []models.ContentSummary{}
	}
	return page
}

// BrowsePages fetches pages sel.Page .. sel.Page+pages-1 concurrently and concatenates
// them in page order. Failed pages contribute nothing.
func (s *Service) BrowsePages(ctx context.Context, kind models.MediaType, sel query.Selection, pages int) models.ContentPage {
	if pages < 1 {
		pages = 1
	}
	if pages > MaxPages {
		pages = MaxPages
	}
	first := sel.Page
	if first < 1 {
		first = 1
	}

	p := pool.NewWithResults[models.ContentPage]().WithMaxGoroutines(pages)
	for i := 0; i < pages; i++ {
		pageSel := sel
		pageSel.Page = first + i
		p.Go(func() models.ContentPage {
			return s.Browse(ctx, kind, pageSel)
		})
	}
	results := p.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].Page < results[j].Page })

	merged := models.ContentPage{Items: []models.ContentSummary{}, Page: first}
	seen := make(map[string]bool)
	for _, r := range results {
		if r.TotalPages > merged.TotalPages {
			merged.TotalPages = r.TotalPages
			merged.TotalResults = r.TotalResults
		}
		for _, item := range r.Items {
			key := models.CompositeKey{MediaType: item.MediaType, ContentID: item.ID}.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			merged.Items = append(merged.Items, item)
		}
	}
	return merged
}

// Search runs a free text search. Errors yield an empty page.
func (s *Service) Search(ctx context.Context, text string, page int, lang string) models.ContentPage {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.EmptyPage(page)
	}
	result, err := s.source.Search(ctx, text, page, lang)
	if err != nil {
		log.Printf("[catalog] search %q failed: %v", text, err)
		return models.EmptyPage(page)
	}
	if result.Items == nil {
		result.Items = []models.ContentSummary{}
	}
	return result
}

// Detail returns a single title. Unlike listings, failures are propagated.
func (s *Service) Detail(ctx context.Context, kind models.MediaType, id int64, lang string) (*models.ContentDetail, error) {
	return s.source.Detail(ctx, kind, id, lang)
}

// Genres lists the genre labels usable with Browse for kind.
func (s *Service) Genres(kind models.MediaType) []models.Genre {
	return query.Genres(kind)
}
