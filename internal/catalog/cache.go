package catalog

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/brandlover88/brandlover-backend/internal/models"
)

// Cache is the in-memory copy of the products table, newest first. Every
// mutation goes through Upsert/Remove, which are idempotent by row id, so the
// direct flow completions and the change-event subscriber can both feed it
// without deduplication: applying the same logical change twice is a no-op.
//
// The filtered view is always re-derived from the full list with the last
// search query, never from a previous filtered result.
type Cache struct {
	mu       sync.RWMutex
	products []models.Product
	query    string
}

func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) ReplaceAll(products []models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = make([]models.Product, len(products))
	copy(c.products, products)
}

// Upsert replaces the entry with the same id in place, or prepends the
// product when it is new.
func (c *Cache) Upsert(p models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.products {
		if c.products[i].ID == p.ID {
			c.products[i] = p
			return
		}
	}
	c.products = append([]models.Product{p}, c.products...)
}

func (c *Cache) Remove(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.products {
		if c.products[i].ID == id {
			c.products = append(c.products[:i], c.products[i+1:]...)
			return
		}
	}
}

func (c *Cache) Get(id uuid.UUID) (models.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.products {
		if c.products[i].ID == id {
			return c.products[i], true
		}
	}
	return models.Product{}, false
}

func (c *Cache) All() []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

// Search stores the query and returns the matching products. An empty query
// matches everything.
func (c *Cache) Search(query string) []models.Product {
	c.mu.Lock()
	c.query = query
	c.mu.Unlock()
	return c.Filtered()
}

// Filtered re-applies the last search query against the full list.
func (c *Cache) Filtered() []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q := strings.ToLower(c.query)
	out := make([]models.Product, 0, len(c.products))
	for _, p := range c.products {
		if q == "" || matches(p, q) {
			out = append(out, p)
		}
	}
	return out
}

// matches does a case-insensitive substring match over the searchable fields.
func matches(p models.Product, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(p.Brand), lowerQuery) ||
		strings.Contains(strings.ToLower(p.Model), lowerQuery) ||
		strings.Contains(strings.ToLower(p.Title), lowerQuery) ||
		strings.Contains(strings.ToLower(p.Price), lowerQuery)
}
