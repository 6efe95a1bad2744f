package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/catalog"
)

// DefaultSearchLimit caps a search when the caller gives no limit
const DefaultSearchLimit = 200

// nameOverfetch widens the coarse name prefilter before exact matching
const nameOverfetch = 4

// SearchService looks products up for the catalog browser
type SearchService struct {
	productRepo catalog.ProductRepository
}

// NewSearchService creates a new SearchService
func NewSearchService(productRepo catalog.ProductRepository) *SearchService {
	return &SearchService{productRepo: productRepo}
}

// Search finds products by item id, barcode fragment or name.
// An empty query lists the newest products. A query made of digits matches
// item ids and barcodes, with an exact item id first. Any other query matches
// names ignoring case and accents.
func (s *SearchService) Search(ctx context.Context, query string, limit int) ([]catalog.Product, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	q := strings.TrimSpace(query)
	switch {
	case q == "":
		return s.productRepo.Search(ctx, catalog.ProductFilter{Limit: limit})
	case catalog.Digits(q) == q:
		return s.searchDigits(ctx, q, limit)
	default:
		return s.searchName(ctx, q, limit)
	}
}

// Count returns the number of catalog rows
func (s *SearchService) Count(ctx context.Context) (int64, error) {
	return s.productRepo.Count(ctx)
}

func (s *SearchService) searchDigits(ctx context.Context, digits string, limit int) ([]catalog.Product, error) {
	found, err := s.productRepo.Search(ctx, catalog.ProductFilter{Digits: digits, Limit: limit})
	if err != nil {
		return nil, err
	}

	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || id <= 0 {
		return found, nil
	}
	exact, err := s.productRepo.Search(ctx, catalog.ProductFilter{ItemID: id, Limit: limit})
	if err != nil {
		return nil, err
	}
	if len(exact) == 0 {
		return found, nil
	}

	out := make([]catalog.Product, 0, len(found)+len(exact))
	seen := make(map[int64]bool, len(found)+len(exact))
	for _, group := range [][]catalog.Product{exact, found} {
		for _, p := range group {
			if !seen[p.ID] {
				seen[p.ID] = true
				out = append(out, p)
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *SearchService) searchName(ctx context.Context, text string, limit int) ([]catalog.Product, error) {
	pattern := catalog.NamePattern(text)
	candidates, err := s.productRepo.Search(ctx, catalog.ProductFilter{Pattern: pattern, Limit: limit * nameOverfetch})
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Product, 0, min(limit, len(candidates)))
	for _, p := range candidates {
		if catalog.ContainsFolded(p.Name, text) {
			out = append(out, p)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
