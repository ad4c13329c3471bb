package embedding

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Handle builds an Embedder on first use and shares it afterwards.
// One Handle is owned by the process and passed to every store that needs it.
type Handle struct {
	build       func() (Embedder, error)
	concurrency int

	once sync.Once
	e    Embedder
	err  error
}

// NewHandle returns a lazy handle around build. concurrency bounds parallel
// requests when the built embedder has no batch API.
func NewHandle(build func() (Embedder, error), concurrency int) *Handle {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Handle{build: build, concurrency: concurrency}
}

// Get returns the shared embedder, building it once.
func (h *Handle) Get() (Embedder, error) {
	h.once.Do(func() { h.e, h.err = h.build() })
	return h.e, h.err
}

func (h *Handle) Embed(ctx context.Context, text string) (Vector, error) {
	e, err := h.Get()
	if err != nil {
		return nil, err
	}
	return e.Embed(ctx, text)
}

func (h *Handle) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	e, err := h.Get()
	if err != nil {
		return nil, err
	}
	if be, ok := e.(BatchEmbedder); ok {
		return be.EmbedBatch(ctx, texts)
	}
	return fanOut(ctx, e, texts, h.concurrency)
}

// Dims reports the embedder's dimensionality, or 0 if it cannot be built.
func (h *Handle) Dims() int {
	e, err := h.Get()
	if err != nil {
		return 0
	}
	return e.Dims()
}

// rateLimited paces requests to the wrapped embedder.
type rateLimited struct {
	inner       Embedder
	limiter     *rate.Limiter
	concurrency int
}

// WithRateLimit wraps e so it issues at most perSecond requests per second.
func WithRateLimit(e Embedder, perSecond float64, concurrency int) Embedder {
	burst := concurrency
	if burst <= 0 {
		burst = 1
	}
	return &rateLimited{
		inner:       e,
		limiter:     rate.NewLimiter(rate.Limit(perSecond), burst),
		concurrency: concurrency,
	}
}

func (r *rateLimited) Embed(ctx context.Context, text string) (Vector, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, text)
}

func (r *rateLimited) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	if be, ok := r.inner.(BatchEmbedder); ok {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return be.EmbedBatch(ctx, texts)
	}
	return fanOut(ctx, r, texts, r.concurrency)
}

func (r *rateLimited) Dims() int { return r.inner.Dims() }
