package wisdom

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/munger/internal/embedding"
	"github.com/rcliao/munger/internal/model"
)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), embedding.NewHashEmbedder(256), opts...)
	require.NoError(t, err)
	return s
}

func rec(cat model.WisdomCategory, content string) model.WisdomRecord {
	return model.WisdomRecord{Category: cat, Title: content, Content: content, Source: "test"}
}

func seedRecords(t *testing.T, s *Store, recs ...model.WisdomRecord) []string {
	t.Helper()
	ids, err := s.AddBatch(context.Background(), recs)
	require.NoError(t, err)
	return ids
}

func TestSearch_BoundedAndOrdered(t *testing.T) {
	s := newTestStore(t)
	seedRecords(t, s,
		rec(model.CategoryQuote, "invert, always invert"),
		rec(model.CategoryQuote, "the big money is not in the buying or selling but in the waiting"),
		rec(model.CategoryPrinciple, "stay within your circle of competence"),
		rec(model.CategoryPrinciple, "show me the incentive and I will show you the outcome"),
		rec(model.CategoryMentalModel, "margin of safety protects against being wrong"),
		rec(model.CategoryStory, "a lollapalooza effect comes from many forces at once"),
		rec(model.CategoryQuote, "all I want to know is where I'm going to die so I'll never go there"),
	)

	for _, k := range []int{1, 3, 5, 10} {
		results, err := s.Search(context.Background(), SearchParams{Query: "invert the money incentive", TopK: k})
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), k)
		for i, r := range results {
			assert.GreaterOrEqual(t, r.Distance, 0.0)
			assert.LessOrEqual(t, r.Distance, 2.0)
			if i > 0 {
				assert.LessOrEqual(t, results[i-1].Distance, r.Distance, "distances must not decrease")
			}
		}
	}
}

func TestSearch_DefaultTopK(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 8; i++ {
		_, err := s.Add(context.Background(), rec(model.CategoryQuote, "patience and discipline number "+string(rune('a'+i))))
		require.NoError(t, err)
	}
	results, err := s.Search(context.Background(), SearchParams{Query: "patience"})
	require.NoError(t, err)
	assert.Len(t, results, DefaultTopK)
}

func TestAdd_RoundTripThroughReopen(t *testing.T) {
	dir := t.TempDir()
	emb := embedding.NewHashEmbedder(64)
	s, err := Open(dir, emb)
	require.NoError(t, err)
	seedRecords(t, s, rec(model.CategoryQuote, "first"))

	year := 1995
	want := model.WisdomRecord{
		Category:      model.CategorySpeechExcerpt,
		Title:         "USC Business School",
		Content:       "You've got to have models in your head <and> array your experience on them & more.",
		Source:        "A Lesson on Elementary, Worldly Wisdom",
		Tags:          []string{"latticework", "learning", "latticework"},
		RelatedModels: []string{"Latticework of Mental Models"},
		Year:          &year,
	}
	id, err := s.Add(context.Background(), want)
	require.NoError(t, err)
	want.ID = id

	reopened, err := Open(dir, emb)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Count())
	got, ok := reopened.Get(id)
	require.True(t, ok)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}

	raw, err := os.ReadFile(filepath.Join(dir, RecordsFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<and>", "HTML must not be escaped")
	assert.Contains(t, string(raw), "\n  {", "records are indented by two spaces")
}

func TestAdd_AssignsUUIDAndNormalizesLists(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Add(context.Background(), rec(model.CategoryPrinciple, "avoid leverage"))
	require.NoError(t, err)
	assert.Len(t, id, 36)

	got, ok := s.Get(id)
	require.True(t, ok)
	assert.NotNil(t, got.Tags)
	assert.NotNil(t, got.RelatedModels)
	assert.Nil(t, got.Year)
}

func TestAdd_Rejects(t *testing.T) {
	s := newTestStore(t)
	existing := seedRecords(t, s, rec(model.CategoryQuote, "already here"))

	tests := []struct {
		name string
		recs []model.WisdomRecord
		want error
	}{
		{"unknown category", []model.WisdomRecord{rec("anecdote", "text")}, ErrInvalidCategory},
		{"empty content", []model.WisdomRecord{rec(model.CategoryQuote, "   ")}, ErrEmptyContent},
		{"duplicate of stored id", []model.WisdomRecord{{ID: existing[0], Category: model.CategoryQuote, Content: "x"}}, ErrDuplicateID},
		{"duplicate within batch", []model.WisdomRecord{
			{ID: "same", Category: model.CategoryQuote, Content: "a"},
			{ID: "same", Category: model.CategoryQuote, Content: "b"},
		}, ErrDuplicateID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddBatch(context.Background(), tt.recs)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, s.Count(), "rejected batch must not change the store")
		})
	}
}

type failingEmbedder struct{ err error }

func (f failingEmbedder) Embed(context.Context, string) (embedding.Vector, error) { return nil, f.err }
func (f failingEmbedder) Dims() int                                              { return 8 }

func TestAdd_EmbeddingFailurePropagates(t *testing.T) {
	boom := errors.New("model unavailable")
	s, err := Open(t.TempDir(), failingEmbedder{err: boom})
	require.NoError(t, err)

	_, err = s.Add(context.Background(), rec(model.CategoryQuote, "text"))
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, s.Count())
	_, statErr := os.Stat(filepath.Join(s.Dir(), RecordsFile))
	assert.True(t, os.IsNotExist(statErr), "nothing should be written")
}

func TestAdd_RollsBackWhenSaveFails(t *testing.T) {
	s := newTestStore(t)
	seedRecords(t, s, rec(model.CategoryQuote, "kept"))

	// a directory in place of the records file makes the next save fail
	path := filepath.Join(s.Dir(), RecordsFile)
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))

	_, err := s.Add(context.Background(), rec(model.CategoryQuote, "lost"))
	require.Error(t, err)
	assert.Equal(t, 1, s.Count())
	assert.Len(t, s.rows, 1)
}

func TestDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, embedding.NewHashEmbedder(64))
	require.NoError(t, err)
	seedRecords(t, s, rec(model.CategoryQuote, "sixty four"))

	other, err := Open(dir, embedding.NewHashEmbedder(32))
	require.NoError(t, err)
	_, err = other.Add(context.Background(), rec(model.CategoryQuote, "thirty two"))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = other.Search(context.Background(), SearchParams{Query: "anything"})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestClear_Idempotent(t *testing.T) {
	s := newTestStore(t)
	seedRecords(t, s, rec(model.CategoryQuote, "one"), rec(model.CategoryQuote, "two"))

	require.NoError(t, s.Clear())
	assert.Zero(t, s.Count())
	require.NoError(t, s.Clear())
	assert.Zero(t, s.Count())

	for _, name := range []string{RecordsFile, EmbeddingsFile} {
		_, err := os.Stat(filepath.Join(s.Dir(), name))
		assert.True(t, os.IsNotExist(err), "%s should be removed", name)
	}

	reopened, err := Open(s.Dir(), embedding.NewHashEmbedder(256))
	require.NoError(t, err)
	assert.Zero(t, reopened.Count())
}

func TestDelete_KeepsAlignment(t *testing.T) {
	s := newTestStore(t)
	contents := []string{
		"invert always invert",
		"compound interest is the eighth wonder",
		"sit on your ass investing",
		"know the edge of your competence",
	}
	var recs []model.WisdomRecord
	for _, c := range contents {
		recs = append(recs, rec(model.CategoryQuote, c))
	}
	ids := seedRecords(t, s, recs...)

	require.NoError(t, s.Delete(ids[1]))
	require.NoError(t, s.Delete("no-such-id"), "unknown id is a no-op")

	reopened, err := Open(s.Dir(), embedding.NewHashEmbedder(256))
	require.NoError(t, err)
	require.Equal(t, 3, reopened.Count())
	require.Len(t, reopened.rows, 3)

	all := reopened.All()
	assert.Equal(t, []string{ids[0], ids[2], ids[3]}, []string{all[0].ID, all[1].ID, all[2].ID})

	// each remaining row still embeds its own record's content
	for _, r := range all {
		results, err := reopened.Search(context.Background(), SearchParams{Query: r.Content, TopK: 1})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, r.ID, results[0].ID)
		assert.InDelta(t, 0, results[0].Distance, 1e-6)
	}
	_, ok := reopened.Get(ids[1])
	assert.False(t, ok)
}

func TestDelete_LastRecordLeavesEmptyStore(t *testing.T) {
	s := newTestStore(t)
	ids := seedRecords(t, s, rec(model.CategoryQuote, "only one"))
	require.NoError(t, s.Delete(ids[0]))

	reopened, err := Open(s.Dir(), embedding.NewHashEmbedder(256))
	require.NoError(t, err)
	assert.Zero(t, reopened.Count())
	assert.Equal(t, 256, reopened.Dims(), "an emptied matrix keeps its width")
}

func TestSearch_CategoryFilter(t *testing.T) {
	s := newTestStore(t)
	seedRecords(t, s,
		rec(model.CategoryQuote, "x marks the spot"),
		rec(model.CategoryQuote, "another quote"),
		rec(model.CategoryPrinciple, "x is a principle"),
	)

	results, err := s.Search(context.Background(), SearchParams{Query: "x", TopK: 5, Category: model.CategoryQuote})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 2)
	for _, r := range results {
		assert.Equal(t, model.CategoryQuote, r.Category)
	}

	_, err = s.Search(context.Background(), SearchParams{Query: "x", Category: "gossip"})
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestSearch_TagFilter(t *testing.T) {
	s := newTestStore(t)
	a := rec(model.CategoryQuote, "think about money")
	a.Tags = []string{"investing"}
	b := rec(model.CategoryQuote, "think about people")
	b.Tags = []string{"relationships", "trust"}
	seedRecords(t, s, a, b, rec(model.CategoryQuote, "think about nothing"))

	results, err := s.Search(context.Background(), SearchParams{Query: "think", Tags: []string{"trust", "missing"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "think about people", results[0].Content)
}

func TestSearch_EmptyStore(t *testing.T) {
	s := newTestStore(t)
	results, err := s.Search(context.Background(), SearchParams{Query: "anything", TopK: 5})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	_, ok := s.Random()
	assert.False(t, ok)
	assert.Empty(t, s.DistinctCategories())
	assert.Zero(t, s.Count())

	hits, err := s.SearchByRelatedModel(context.Background(), "Inversion", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchByRelatedModel_BoostsMatches(t *testing.T) {
	s := newTestStore(t)
	target := rec(model.CategoryStory, "compound interest grows slowly over decades")
	target.RelatedModels = []string{"Compounding", "inversion"}
	seedRecords(t, s,
		rec(model.CategoryQuote, "inversion inversion thinking backwards"),
		rec(model.CategoryQuote, "inversion helps avoid stupidity"),
		target,
		rec(model.CategoryQuote, "inversion of hard problems"),
		rec(model.CategoryQuote, "inversion always works"),
	)

	raw, err := s.Search(context.Background(), SearchParams{Query: "Inversion", TopK: 5})
	require.NoError(t, err)
	require.NotEqual(t, target.Content, raw[0].Content, "target should not win on distance alone")

	results, err := s.SearchByRelatedModel(context.Background(), "Inversion", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, target.Content, results[0].Content)
	assert.True(t, results[0].ModelMatch)
	for _, r := range results[1:] {
		assert.False(t, r.ModelMatch)
	}
	assert.LessOrEqual(t, results[1].Distance, results[2].Distance)
}

func TestSearch_IdenticalContentHasZeroDistance(t *testing.T) {
	s := newTestStore(t)
	content := "Take a simple idea and take it seriously."
	seedRecords(t, s,
		rec(model.CategoryQuote, content),
		rec(model.CategoryPrinciple, content),
		rec(model.CategoryQuote, "something else entirely"),
	)

	results, err := s.Search(context.Background(), SearchParams{Query: content, TopK: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, content, r.Content)
		assert.InDelta(t, 0, r.Distance, 1e-6)
	}
	// ties keep insertion order
	assert.Equal(t, model.CategoryQuote, results[0].Category)
}

func TestRandom_UsesInjectedSource(t *testing.T) {
	s := newTestStore(t, WithRand(rand.New(rand.NewSource(7))))
	ids := seedRecords(t, s,
		rec(model.CategoryQuote, "a"), rec(model.CategoryQuote, "b"), rec(model.CategoryQuote, "c"),
	)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		r, ok := s.Random()
		require.True(t, ok)
		seen[r.ID] = true
	}
	for _, id := range ids {
		assert.True(t, seen[id], "record %s never chosen", id)
	}
}

func TestDistinctCategories(t *testing.T) {
	s := newTestStore(t)
	seedRecords(t, s,
		rec(model.CategoryStory, "s"),
		rec(model.CategoryQuote, "q1"),
		rec(model.CategoryQuote, "q2"),
		rec(model.CategoryMentalModel, "m"),
	)
	assert.Equal(t,
		[]model.WisdomCategory{model.CategoryMentalModel, model.CategoryQuote, model.CategoryStory},
		s.DistinctCategories())
}

func TestGet_ReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	r := rec(model.CategoryQuote, "mutable?")
	r.Tags = []string{"a"}
	ids := seedRecords(t, s, r)

	got, _ := s.Get(ids[0])
	got.Tags[0] = "changed"
	again, _ := s.Get(ids[0])
	assert.Equal(t, "a", again.Tags[0])
}

func TestOpen_Corrupt(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, dir string)
	}{
		{"unparsable records", func(t *testing.T, dir string) {
			require.NoError(t, os.WriteFile(filepath.Join(dir, RecordsFile), []byte("{not json"), 0o644))
		}},
		{"unknown category on disk", func(t *testing.T, dir string) {
			data := `[{"id":"1","category":"rumor","title":"","content":"x","source":"","tags":[],"related_models":[],"year":null}]`
			require.NoError(t, os.WriteFile(filepath.Join(dir, RecordsFile), []byte(data), 0o644))
		}},
		{"unparsable matrix", func(t *testing.T, dir string) {
			require.NoError(t, os.WriteFile(filepath.Join(dir, EmbeddingsFile), []byte("garbage"), 0o644))
		}},
		{"matrix shape larger than file", func(t *testing.T, dir string) {
			header := "{'descr': '<f4', 'fortran_order': False, 'shape': (1000000000000, 384), }"
			header += strings.Repeat(" ", 64-(10+len(header)+1)%64) + "\n"
			var buf bytes.Buffer
			buf.Write(npyMagic)
			buf.Write([]byte{1, 0})
			binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
			buf.WriteString(header)
			buf.Write(make([]byte, 384*4))
			require.NoError(t, os.WriteFile(filepath.Join(dir, RecordsFile), []byte("[]"), 0o644))
			require.NoError(t, os.WriteFile(filepath.Join(dir, EmbeddingsFile), buf.Bytes(), 0o644))
		}},
		{"row count mismatch", func(t *testing.T, dir string) {
			s, err := Open(dir, embedding.NewHashEmbedder(16))
			require.NoError(t, err)
			_, err = s.AddBatch(context.Background(), []model.WisdomRecord{
				rec(model.CategoryQuote, "one"), rec(model.CategoryQuote, "two"),
			})
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(filepath.Join(dir, RecordsFile), []byte("[]"), 0o644))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, dir)

			s, err := Open(dir, embedding.NewHashEmbedder(16))
			assert.Nil(t, s)
			var corrupt *CorruptStoreError
			require.ErrorAs(t, err, &corrupt)
			assert.NotEmpty(t, corrupt.Path)
			assert.NotNil(t, errors.Unwrap(err))
		})
	}
}

func TestAtomicWrites(t *testing.T) {
	s := newTestStore(t, WithAtomicWrites(true))
	seedRecords(t, s, rec(model.CategoryQuote, "durable"))
	_, err := s.Add(context.Background(), rec(model.CategoryQuote, "also durable"))
	require.NoError(t, err)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{RecordsFile, EmbeddingsFile}, names, "no temp files left behind")

	reopened, err := Open(s.Dir(), embedding.NewHashEmbedder(256))
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Count())
}
