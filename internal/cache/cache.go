package cache

import (
	"context"

	"kadaipos/engine/internal/domain"
)

// ProductCache memoizes barcode lookups, the hottest read path during
// checkout. Implementations are best-effort: a cache failure must never
// fail the lookup itself.
type ProductCache interface {
	Get(ctx context.Context, barcode string) (*domain.Product, bool)
	Set(ctx context.Context, barcode string, product domain.Product)
	Invalidate(ctx context.Context, barcode string)
}

// NoopProductCache satisfies ProductCache without caching anything. Used
// when no Redis address is configured.
type NoopProductCache struct{}

func NewNoopProductCache() *NoopProductCache {
	return &NoopProductCache{}
}

func (*NoopProductCache) Get(context.Context, string) (*domain.Product, bool) { return nil, false }

func (*NoopProductCache) Set(context.Context, string, domain.Product) {}

func (*NoopProductCache) Invalidate(context.Context, string) {}
