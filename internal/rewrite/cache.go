package rewrite

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Rewriter - всё, что умеет переписывать текст поста.
type Rewriter interface {
	Rewrite(ctx context.Context, text string) string
}

// CachedEngine запоминает результаты по входному тексту, чтобы одинаковые
// шаблоны в пакетном режиме не уходили в сервис повторно.
type CachedEngine struct {
	next  Rewriter
	cache *lru.Cache[string, string]
}

// NewCachedEngine оборачивает next LRU-кэшем на size записей.
func NewCachedEngine(next Rewriter, size int) (*CachedEngine, error) {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &CachedEngine{next: next, cache: cache}, nil
}

// Rewrite реализует Rewriter.
func (c *CachedEngine) Rewrite(ctx context.Context, text string) string {
	if cached, ok := c.cache.Get(text); ok {
		return cached
	}
	result := c.next.Rewrite(ctx, text)
	c.cache.Add(text, result)
	return result
}
