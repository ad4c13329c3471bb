// Package ingest turns text, web pages, PDFs and bundles into wisdom records.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/rcliao/munger/internal/model"
)

// ErrUnsupportedFile is returned for files that are not .pdf, .txt or .md.
var ErrUnsupportedFile = errors.New("unsupported file type")

// chunks shorter than this carry too little meaning to retrieve
const minChunkRunes = 50

const userAgent = "Mozilla/5.0 (compatible; munger/1.0)"

// Sink receives ingested records.
type Sink interface {
	AddBatch(ctx context.Context, recs []model.WisdomRecord) ([]string, error)
}

// Params describe where ingested text came from.
type Params struct {
	Title    string
	Source   string
	Category string // a wisdom category; anything else becomes quote
}

type Processor struct {
	sink   Sink
	client *http.Client
	chunk  ChunkOptions
	logger *zap.Logger
}

type Option func(*Processor)

func WithHTTPClient(c *http.Client) Option {
	return func(p *Processor) { p.client = c }
}

func WithChunkOptions(o ChunkOptions) Option {
	return func(p *Processor) { p.chunk = o }
}

func NewProcessor(sink Sink, logger *zap.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Processor{
		sink:   sink,
		client: &http.Client{Timeout: 30 * time.Second},
		chunk:  DefaultChunkOptions(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessText chunks text and adds one record per chunk. It returns the
// number of records added.
func (p *Processor) ProcessText(ctx context.Context, text string, params Params) (int, error) {
	return p.add(ctx, Chunk(text, p.chunk), params)
}

// ProcessURL fetches a page and ingests its main article text. The title
// defaults to the page title, then to the URL.
func (p *Processor) ProcessURL(ctx context.Context, rawURL string, params Params) (int, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return 0, fmt.Errorf("invalid URL %q", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, u)
	if err != nil {
		return 0, fmt.Errorf("extract article from %s: %w", rawURL, err)
	}
	if params.Title == "" {
		params.Title = strings.TrimSpace(article.Title)
	}
	if params.Title == "" {
		params.Title = rawURL
	}
	if params.Source == "" {
		params.Source = rawURL
	}
	p.logger.Debug("fetched article", zap.String("url", rawURL), zap.Int("bytes", len(article.TextContent)))
	return p.ProcessText(ctx, article.TextContent, params)
}

// ProcessFile ingests a .pdf, .txt or .md file. Markdown is split on its
// headings before windowing.
func (p *Processor) ProcessFile(ctx context.Context, path string, params Params) (int, error) {
	if params.Title == "" {
		params.Title = filepath.Base(path)
	}
	if params.Source == "" {
		params.Source = path
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".pdf":
		text, err := readPDF(path)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", path, err)
		}
		return p.ProcessText(ctx, text, params)
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, err
		}
		if ext == ".md" {
			return p.add(ctx, ChunkMarkdown(string(data), p.chunk), params)
		}
		return p.ProcessText(ctx, string(data), params)
	default:
		return 0, fmt.Errorf("%s: %w %q", path, ErrUnsupportedFile, ext)
	}
}

// GlobResult reports one file ingested by ProcessGlob.
type GlobResult struct {
	Path  string
	Added int
	Err   error
}

// ProcessGlob ingests every file matching a doublestar pattern such as
// "books/**/*.md". A failing file does not stop the others; its error is in
// the result. Titles default to each file's name.
func (p *Processor) ProcessGlob(ctx context.Context, pattern string, params Params) ([]GlobResult, error) {
	paths, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files match %q", pattern)
	}

	results := make([]GlobResult, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		fp := params
		if len(paths) > 1 {
			fp.Title, fp.Source = "", ""
		}
		n, err := p.ProcessFile(ctx, path, fp)
		if err != nil {
			p.logger.Warn("ingest file failed", zap.String("path", path), zap.Error(err))
		}
		results = append(results, GlobResult{Path: path, Added: n, Err: err})
	}
	return results, nil
}

func (p *Processor) add(ctx context.Context, chunks []string, params Params) (int, error) {
	cat := model.WisdomCategory(strings.ToLower(params.Category))
	if !cat.Valid() {
		cat = model.CategoryQuote
	}

	var recs []model.WisdomRecord
	for i, c := range chunks {
		if utf8.RuneCountInString(strings.TrimSpace(c)) < minChunkRunes {
			continue
		}
		title := params.Title
		if len(chunks) > 1 {
			title = fmt.Sprintf("%s (Part %d)", params.Title, i+1)
		}
		recs = append(recs, model.WisdomRecord{
			Category: cat,
			Title:    title,
			Content:  c,
			Source:   params.Source,
			Tags:     ExtractTags(c),
		})
	}
	if len(recs) == 0 {
		return 0, nil
	}
	if _, err := p.sink.AddBatch(ctx, recs); err != nil {
		return 0, err
	}
	p.logger.Info("ingested", zap.String("title", params.Title), zap.Int("records", len(recs)))
	return len(recs), nil
}

// readPDF returns the plain text of every page, pages separated by a blank line.
func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		text = strings.ReplaceAll(text, "\x00", "")
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}
