package wisdom

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rcliao/munger/internal/embedding"
	"github.com/rcliao/munger/internal/model"
)

// DefaultTopK is used when SearchParams.TopK is not positive.
const DefaultTopK = 5

// SearchParams holds the parameters for a similarity search.
type SearchParams struct {
	Query    string
	TopK     int
	Category model.WisdomCategory // optional
	Tags     []string             // optional; a record matches when it has any of them
}

// Search ranks every record by cosine similarity to the query and returns at
// most TopK hits, nearest first. Filters apply after ranking.
func (s *Store) Search(ctx context.Context, p SearchParams) ([]model.ScoredRecord, error) {
	if p.Category != "" && !p.Category.Valid() {
		return nil, fmt.Errorf("%w %q", ErrInvalidCategory, p.Category)
	}
	if p.TopK <= 0 {
		p.TopK = DefaultTopK
	}
	results := []model.ScoredRecord{}
	if len(s.records) == 0 {
		return results, nil
	}

	q, err := s.emb.Embed(ctx, p.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(q) != s.dims {
		return nil, fmt.Errorf("%w: query has %d dims, store has %d", ErrDimensionMismatch, len(q), s.dims)
	}

	sims := make([]float64, len(s.rows))
	order := make([]int, len(s.rows))
	for i, row := range s.rows {
		sims[i] = embedding.CosineSimilarity(q, row)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return sims[order[a]] > sims[order[b]] })

	for _, i := range order {
		r := s.records[i]
		if p.Category != "" && r.Category != p.Category {
			continue
		}
		if len(p.Tags) > 0 && !r.HasAnyTag(p.Tags) {
			continue
		}
		results = append(results, model.ScoredRecord{WisdomRecord: cloneRecord(r), Distance: 1 - sims[i]})
		if len(results) == p.TopK {
			break
		}
	}
	return results, nil
}

// SearchByRelatedModel searches for the model name and moves records that list
// the model in RelatedModels ahead of the rest.
func (s *Store) SearchByRelatedModel(ctx context.Context, name string, topK int) ([]model.ScoredRecord, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	results, err := s.Search(ctx, SearchParams{Query: name, TopK: topK * 2})
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(name)
	for i := range results {
		joined := strings.ToLower(strings.Join(results[i].RelatedModels, ","))
		results[i].ModelMatch = strings.Contains(joined, needle)
	}
	sort.SliceStable(results, func(a, b int) bool {
		if results[a].ModelMatch != results[b].ModelMatch {
			return results[a].ModelMatch
		}
		return results[a].Distance < results[b].Distance
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}
