package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/munger/internal/embedding"
	"github.com/rcliao/munger/internal/model"
	"github.com/rcliao/munger/internal/wisdom"
)

type recordingSink struct {
	batches [][]model.WisdomRecord
	err     error
}

func (s *recordingSink) AddBatch(_ context.Context, recs []model.WisdomRecord) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.batches = append(s.batches, recs)
	ids := make([]string, len(recs))
	for i := range recs {
		ids[i] = fmt.Sprintf("id-%d", i)
	}
	return ids, nil
}

func (s *recordingSink) all() []model.WisdomRecord {
	var out []model.WisdomRecord
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func newTestWisdom(t *testing.T) *wisdom.Store {
	t.Helper()
	s, err := wisdom.Open(t.TempDir(), embedding.NewHashEmbedder(128))
	require.NoError(t, err)
	return s
}

const paragraph = "The big money is not in the buying and selling but in the waiting. " +
	"Investors who trade constantly pay the market for the privilege of being wrong. "

func TestExtractTags(t *testing.T) {
	assert.Equal(t, []string{"investing", "business"}, ExtractTags("A wonderful BUSINESS with a stock moat"))
	assert.Equal(t, []string{}, ExtractTags("nothing relevant here"))

	all := ExtractTags("invest framework bias company lesson mistake success trust friend job")
	assert.Equal(t, []string{"investing", "mental_models", "psychology", "business", "wisdom"}, all)
}

func TestProcessText_SingleChunk(t *testing.T) {
	sink := &recordingSink{}
	p := NewProcessor(sink, nil)

	n, err := p.ProcessText(context.Background(), paragraph, Params{Title: "Waiting", Source: "notes", Category: "PRINCIPLE"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	recs := sink.all()
	require.Len(t, recs, 1)
	assert.Equal(t, "Waiting", recs[0].Title)
	assert.Equal(t, model.CategoryPrinciple, recs[0].Category)
	assert.Equal(t, "notes", recs[0].Source)
	assert.Contains(t, recs[0].Tags, "investing")
}

func TestProcessText_PartsAndUnknownCategory(t *testing.T) {
	sink := &recordingSink{}
	p := NewProcessor(sink, nil, WithChunkOptions(ChunkOptions{Size: 200, Overlap: 20}))

	n, err := p.ProcessText(context.Background(), strings.Repeat(paragraph, 4), Params{Title: "Waiting", Category: "gossip"})
	require.NoError(t, err)
	require.Greater(t, n, 1)
	require.Len(t, sink.batches, 1)

	recs := sink.all()
	assert.Equal(t, "Waiting (Part 1)", recs[0].Title)
	assert.Equal(t, fmt.Sprintf("Waiting (Part %d)", n), recs[n-1].Title)
	for _, r := range recs {
		assert.Equal(t, model.CategoryQuote, r.Category)
	}
}

func TestProcessText_SkipsShortChunks(t *testing.T) {
	sink := &recordingSink{}
	n, err := NewProcessor(sink, nil).ProcessText(context.Background(), "Too short.", Params{Title: "x"})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, sink.batches)
}

func TestProcessText_SinkError(t *testing.T) {
	sink := &recordingSink{err: wisdom.ErrDimensionMismatch}
	_, err := NewProcessor(sink, nil).ProcessText(context.Background(), paragraph, Params{})
	assert.ErrorIs(t, err, wisdom.ErrDimensionMismatch)
}

func TestProcessURL(t *testing.T) {
	page := `<html><head><title>Poor Charlie's Almanack</title></head><body>
<nav>Home | About</nav>
<article><h1>On Waiting</h1>` + strings.Repeat("<p>"+paragraph+paragraph+"</p>\n", 3) + `</article>
<footer>copyright</footer></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer srv.Close()

	sink := &recordingSink{}
	p := NewProcessor(sink, nil, WithHTTPClient(srv.Client()))

	n, err := p.ProcessURL(context.Background(), srv.URL+"/almanack", Params{})
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, 1)
	rec := sink.all()[0]
	assert.Contains(t, rec.Title, "Almanack")
	assert.Equal(t, srv.URL+"/almanack", rec.Source)
	assert.Contains(t, rec.Content, "in the waiting")

	_, err = p.ProcessURL(context.Background(), srv.URL+"/missing", Params{})
	assert.ErrorContains(t, err, "HTTP 404")

	_, err = p.ProcessURL(context.Background(), "not a url", Params{})
	assert.Error(t, err)
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "waiting.txt")
	md := filepath.Join(dir, "notes.md")
	csv := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(txt, []byte(paragraph), 0o644))
	require.NoError(t, os.WriteFile(md, []byte("# One\n\n"+paragraph+"\n\n\n# Two\n\n"+paragraph), 0o644))
	require.NoError(t, os.WriteFile(csv, []byte("a,b"), 0o644))

	sink := &recordingSink{}
	p := NewProcessor(sink, nil, WithChunkOptions(ChunkOptions{Size: 200, Overlap: 20}))
	ctx := context.Background()

	n, err := p.ProcessFile(ctx, txt, Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "waiting.txt", sink.all()[0].Title)
	assert.Equal(t, txt, sink.all()[0].Source)

	n, err = p.ProcessFile(ctx, md, Params{Title: "Notes"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	last := sink.batches[len(sink.batches)-1]
	assert.True(t, strings.HasPrefix(last[0].Content, "# One\n\n"), "markdown chunks keep their headings")
	assert.Equal(t, "Notes (Part 2)", last[1].Title)

	_, err = p.ProcessFile(ctx, csv, Params{})
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = p.ProcessFile(ctx, filepath.Join(dir, "gone.txt"), Params{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestProcessGlob(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "books", "deep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "books", "a.md"), []byte(paragraph), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "books", "deep", "b.md"), []byte(paragraph), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "books", "deep", "c.txt"), []byte(paragraph), 0o644))

	sink := &recordingSink{}
	p := NewProcessor(sink, nil)

	results, err := p.ProcessGlob(context.Background(), filepath.Join(dir, "books", "**", "*.md"), Params{Title: "ignored"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.Equal(t, 1, r.Added)
	}
	titles := []string{sink.all()[0].Title, sink.all()[1].Title}
	assert.ElementsMatch(t, []string{"a.md", "b.md"}, titles)

	_, err = p.ProcessGlob(context.Background(), filepath.Join(dir, "*.pdf"), Params{})
	assert.ErrorContains(t, err, "no files match")
}

func TestSeed(t *testing.T) {
	st := newTestWisdom(t)
	ctx := context.Background()

	n, err := Seed(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, len(SeedRecords()), n)
	assert.Equal(t, n, st.Count())

	again, err := Seed(ctx, st)
	require.NoError(t, err)
	assert.Zero(t, again, "seeding twice adds nothing")

	// wide enough to rank every record; only Margin of Safety lists Redundancy
	hits, err := st.SearchByRelatedModel(ctx, "Redundancy", n)
	require.NoError(t, err)
	require.Len(t, hits, n)
	assert.True(t, hits[0].ModelMatch)
	assert.Equal(t, "Mental Model: Margin of Safety", hits[0].Title)
	assert.False(t, hits[1].ModelMatch)
}

func TestSeedRecords_Valid(t *testing.T) {
	cats := make(map[model.WisdomCategory]int)
	for _, r := range SeedRecords() {
		assert.True(t, r.Category.Valid())
		assert.NotEmpty(t, r.Content)
		assert.NotNil(t, r.RelatedModels)
		cats[r.Category]++
	}
	assert.Equal(t, 36, cats[model.CategoryQuote])
	assert.Equal(t, 6, cats[model.CategoryMentalModel])
	assert.Equal(t, 6, cats[model.CategoryPrinciple])
	assert.Equal(t, 4, cats[model.CategorySpeechExcerpt])
}

func TestBundle_RoundTrip(t *testing.T) {
	src := newTestWisdom(t)
	ctx := context.Background()
	_, err := Seed(ctx, src)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, src.All()))
	data := buf.Bytes()
	require.NoError(t, ValidateBundle(data))

	dst := newTestWisdom(t)
	added, skipped, err := ImportJSON(ctx, dst, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, src.Count(), added)
	assert.Zero(t, skipped)

	for _, r := range src.All() {
		got, ok := dst.Get(r.ID)
		require.True(t, ok, r.ID)
		assert.Equal(t, r, got)
	}

	added, skipped, err = ImportJSON(ctx, dst, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Equal(t, src.Count(), skipped)
}

func TestImportJSON_RejectsInvalid(t *testing.T) {
	st := newTestWisdom(t)
	tests := map[string]any{
		"bad category": Bundle{Version: 1, Records: []model.WisdomRecord{{Category: "gossip", Content: "x"}}},
		"wrong version": map[string]any{"version": 2, "records": []any{}},
		"missing records": map[string]any{"version": 1},
		"empty content": map[string]any{"version": 1, "records": []any{map[string]any{"category": "quote", "content": ""}}},
	}
	for name, bundle := range tests {
		t.Run(name, func(t *testing.T) {
			data, err := json.Marshal(bundle)
			require.NoError(t, err)
			_, _, err = ImportJSON(context.Background(), st, bytes.NewReader(data))
			assert.ErrorContains(t, err, "invalid bundle")
			assert.Zero(t, st.Count())
		})
	}
}

func TestExportJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportJSON(&buf, nil))
	assert.JSONEq(t, `{"version":1,"records":[]}`, buf.String())
}
