package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"salesengine/m/domain"
)

// CachedSaleRepository keeps recently read sales in an LRU cache in front of
// another repository. Cached values are never handed out; callers always get a
// deep copy.
//
// A read only fills the cache when no write started or finished while it was
// loading, so a lookup racing an Update or Delete cannot cache the old row.
type CachedSaleRepository struct {
	next     domain.SaleRepository
	byID     *lru.Cache[uuid.UUID, *domain.Sale]
	byNumber *lru.Cache[string, uuid.UUID]

	mu      sync.Mutex
	gen     uint64
	writing int
}

func NewCachedSaleRepository(next domain.SaleRepository, size int) (*CachedSaleRepository, error) {
	byID, err := lru.New[uuid.UUID, *domain.Sale](size)
	if err != nil {
		return nil, fmt.Errorf("sale cache: %w", err)
	}
	byNumber, err := lru.New[string, uuid.UUID](size)
	if err != nil {
		return nil, fmt.Errorf("sale number cache: %w", err)
	}
	return &CachedSaleRepository{next: next, byID: byID, byNumber: byNumber}, nil
}

func (c *CachedSaleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	if sale, ok := c.byID.Get(id); ok {
		return sale.Snapshot(), nil
	}
	gen := c.generation()
	sale, err := c.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.storeIfUnchanged(gen, sale)
	return sale, nil
}

func (c *CachedSaleRepository) GetByNumber(ctx context.Context, number string) (*domain.Sale, error) {
	if id, ok := c.byNumber.Get(number); ok {
		if sale, ok := c.byID.Get(id); ok && sale.SaleNumber == number {
			return sale.Snapshot(), nil
		}
		c.byNumber.Remove(number)
	}
	gen := c.generation()
	sale, err := c.next.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	c.storeIfUnchanged(gen, sale)
	return sale, nil
}

func (c *CachedSaleRepository) Add(ctx context.Context, sale *domain.Sale) (*domain.Sale, error) {
	return c.next.Add(ctx, sale)
}

// Update evicts the sale for the duration of the write and caches the saved
// aggregate on success.
func (c *CachedSaleRepository) Update(ctx context.Context, sale *domain.Sale) (*domain.Sale, error) {
	c.beginWrite(sale.ID)
	updated, err := c.next.Update(ctx, sale)
	c.endWrite(sale.ID, updated, err)
	return updated, err
}

func (c *CachedSaleRepository) Delete(ctx context.Context, sale *domain.Sale) (bool, error) {
	c.beginWrite(sale.ID)
	ok, err := c.next.Delete(ctx, sale)
	c.endWrite(sale.ID, nil, err)
	return ok, err
}

// Paginate is not cached.
func (c *CachedSaleRepository) Paginate(ctx context.Context, page, size int, filter domain.SaleFilter) ([]*domain.Sale, int, error) {
	return c.next.Paginate(ctx, page, size, filter)
}

func (c *CachedSaleRepository) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func (c *CachedSaleRepository) beginWrite(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.writing++
	c.evict(id)
}

// endWrite evicts whatever a reader may have cached meanwhile. saved is
// cached only when it is the result of a successful write.
func (c *CachedSaleRepository) endWrite(id uuid.UUID, saved *domain.Sale, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.writing--
	c.evict(id)
	if err == nil && saved != nil && c.writing == 0 {
		c.store(saved)
	}
}

func (c *CachedSaleRepository) storeIfUnchanged(gen uint64, sale *domain.Sale) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.writing > 0 {
		return
	}
	c.store(sale)
}

func (c *CachedSaleRepository) store(sale *domain.Sale) {
	c.byID.Add(sale.ID, sale.Snapshot())
	c.byNumber.Add(sale.SaleNumber, sale.ID)
}

func (c *CachedSaleRepository) evict(id uuid.UUID) {
	if old, ok := c.byID.Peek(id); ok {
		c.byNumber.Remove(old.SaleNumber)
	}
	c.byID.Remove(id)
}
