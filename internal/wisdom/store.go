// Package wisdom is a small flat-file vector store for advisory snippets.
//
// Records live in a JSON array and their embeddings in an .npy matrix next to
// it, row N belonging to record N. The store is loaded once by Open and every
// mutating call rewrites both files. A Store is not safe for concurrent use.
package wisdom

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rcliao/munger/internal/embedding"
	"github.com/rcliao/munger/internal/model"
)

// Store holds the records and their embedding rows in memory.
type Store struct {
	files fileSet
	emb   embedding.Embedder
	rng   *rand.Rand

	records []model.WisdomRecord
	rows    [][]float32
	dims    int
}

// Option configures a Store.
type Option func(*Store)

// WithAtomicWrites makes saves go through a temp file and rename.
func WithAtomicWrites(on bool) Option {
	return func(s *Store) { s.files.atomic = on }
}

// WithRand sets the source used by Random.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) { s.rng = r }
}

// Open loads the store in dir. Missing files yield an empty store.
func Open(dir string, emb embedding.Embedder, opts ...Option) (*Store, error) {
	if emb == nil {
		return nil, fmt.Errorf("wisdom store needs an embedder")
	}
	s := &Store{
		files: fileSet{dir: dir},
		emb:   emb,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	records, m, err := s.files.load()
	if err != nil {
		return nil, err
	}
	s.records, s.rows, s.dims = records, m.Rows, m.Dims
	return s, nil
}

// Dir returns the directory holding the backing files.
func (s *Store) Dir() string { return s.files.dir }

// Add embeds rec's content and appends it. It returns the record's id.
func (s *Store) Add(ctx context.Context, rec model.WisdomRecord) (string, error) {
	ids, err := s.AddBatch(ctx, []model.WisdomRecord{rec})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AddBatch validates, embeds and appends recs with a single save. Either all
// records are added or none are.
func (s *Store) AddBatch(ctx context.Context, recs []model.WisdomRecord) ([]string, error) {
	if len(recs) == 0 {
		return nil, nil
	}

	seen := make(map[string]bool, len(s.records)+len(recs))
	for _, r := range s.records {
		seen[r.ID] = true
	}
	prepared := make([]model.WisdomRecord, len(recs))
	texts := make([]string, len(recs))
	for i, r := range recs {
		if !r.Category.Valid() {
			return nil, fmt.Errorf("record %d: %w %q", i, ErrInvalidCategory, r.Category)
		}
		if strings.TrimSpace(r.Content) == "" {
			return nil, fmt.Errorf("record %d: %w", i, ErrEmptyContent)
		}
		r = cloneRecord(r)
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("record %d: %w %q", i, ErrDuplicateID, r.ID)
		}
		seen[r.ID] = true
		if r.Tags == nil {
			r.Tags = []string{}
		}
		if r.RelatedModels == nil {
			r.RelatedModels = []string{}
		}
		prepared[i] = r
		texts[i] = r.Content
	}

	vecs, err := embedding.EmbedAll(ctx, s.emb, texts)
	if err != nil {
		return nil, fmt.Errorf("embed wisdom: %w", err)
	}
	dims := s.dims
	if len(s.rows) == 0 {
		dims = len(vecs[0])
	}
	for i, v := range vecs {
		if len(v) != dims || dims == 0 {
			return nil, fmt.Errorf("record %d: %w: got %d dims, want %d", i, ErrDimensionMismatch, len(v), dims)
		}
	}

	prevRecords, prevRows, prevDims := s.records, s.rows, s.dims
	s.records = append(slices.Clip(s.records), prepared...)
	s.rows = append(slices.Clip(s.rows), vecs...)
	s.dims = dims
	if err := s.save(); err != nil {
		s.records, s.rows, s.dims = prevRecords, prevRows, prevDims
		return nil, err
	}

	ids := make([]string, len(prepared))
	for i, r := range prepared {
		ids[i] = r.ID
	}
	return ids, nil
}

// Get returns the record with id.
func (s *Store) Get(id string) (model.WisdomRecord, bool) {
	if i := s.indexOf(id); i >= 0 {
		return cloneRecord(s.records[i]), true
	}
	return model.WisdomRecord{}, false
}

// All returns a copy of every record in insertion order.
func (s *Store) All() []model.WisdomRecord {
	out := make([]model.WisdomRecord, len(s.records))
	for i, r := range s.records {
		out[i] = cloneRecord(r)
	}
	return out
}

// Random returns a uniformly chosen record, or false when the store is empty.
func (s *Store) Random() (model.WisdomRecord, bool) {
	if len(s.records) == 0 {
		return model.WisdomRecord{}, false
	}
	return cloneRecord(s.records[s.rng.Intn(len(s.records))]), true
}

func (s *Store) Count() int { return len(s.records) }

// Dims returns the width of the stored embeddings, 0 for a store never written.
func (s *Store) Dims() int { return s.dims }

// DistinctCategories returns the categories present, sorted.
func (s *Store) DistinctCategories() []model.WisdomCategory {
	set := make(map[model.WisdomCategory]bool)
	for _, r := range s.records {
		set[r.Category] = true
	}
	out := make([]model.WisdomCategory, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Delete removes the record with id and its embedding row. An unknown id is a no-op.
func (s *Store) Delete(id string) error {
	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	prevRecords, prevRows := s.records, s.rows
	s.records = slices.Delete(slices.Clone(s.records), i, i+1)
	s.rows = slices.Delete(slices.Clone(s.rows), i, i+1)
	if err := s.save(); err != nil {
		s.records, s.rows = prevRecords, prevRows
		return err
	}
	return nil
}

// Clear empties the store and removes its files. It is idempotent.
func (s *Store) Clear() error {
	if err := s.files.remove(); err != nil {
		return err
	}
	s.records, s.rows, s.dims = nil, nil, 0
	return nil
}

func (s *Store) save() error {
	return s.files.save(s.records, Matrix{Rows: s.rows, Dims: s.dims})
}

func (s *Store) indexOf(id string) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func cloneRecord(r model.WisdomRecord) model.WisdomRecord {
	r.Tags = slices.Clone(r.Tags)
	r.RelatedModels = slices.Clone(r.RelatedModels)
	if r.Year != nil {
		y := *r.Year
		r.Year = &y
	}
	return r
}
