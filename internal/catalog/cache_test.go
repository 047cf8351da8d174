package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/brandlover88/brandlover-backend/internal/models"
)

func product(brand, model, title, price string) models.Product {
	return models.Product{
		ID:     uuid.New(),
		Brand:  brand,
		Model:  model,
		Title:  title,
		Price:  price,
		Images: []string{"/uploads/product-images/x.jpg"},
	}
}

func TestCacheUpsertPrependsNewAndReplacesExisting(t *testing.T) {
	c := NewCache()

	a := product("Nike", "Air", "Sneakers", "120")
	b := product("Casio", "F91W", "Watch", "25")

	c.Upsert(a)
	c.Upsert(b)

	all := c.All()
	require.Len(t, all, 2)
	require.Equal(t, b.ID, all[0].ID, "newest first")

	// replaying the same insert is a no-op
	c.Upsert(b)
	require.Equal(t, 2, c.Len())

	// update replaces in place, order unchanged
	b.Title = "Digital Watch"
	c.Upsert(b)
	all = c.All()
	require.Equal(t, "Digital Watch", all[0].Title)
	require.Equal(t, 2, c.Len())
}

func TestCacheRemoveIdempotent(t *testing.T) {
	c := NewCache()
	a := product("Nike", "Air", "Sneakers", "120")
	c.Upsert(a)

	c.Remove(a.ID)
	require.Equal(t, 0, c.Len())
	c.Remove(a.ID) // replayed delete event
	require.Equal(t, 0, c.Len())
}

func TestCacheSearchMatchesAllFields(t *testing.T) {
	c := NewCache()
	c.Upsert(product("Nike", "Air Max", "Running Shoes", "120"))
	c.Upsert(product("Casio", "F91W", "Digital Watch", "25.50"))

	require.Len(t, c.Search("nike"), 1)     // brand
	require.Len(t, c.Search("f91"), 1)      // model
	require.Len(t, c.Search("WATCH"), 1)    // title, case-insensitive
	require.Len(t, c.Search("25.5"), 1)     // price substring
	require.Len(t, c.Search("nothing"), 0)
}

func TestCacheSearchNonDestructive(t *testing.T) {
	c := NewCache()
	c.Upsert(product("Nike", "Air", "Sneakers", "120"))
	c.Upsert(product("Casio", "F91W", "Watch", "25"))

	require.Len(t, c.Search("nike"), 1)
	// the filtered view is always derived from the full list
	require.Len(t, c.Search("nike"), 1)
	require.Len(t, c.Search(""), 2)
	require.Equal(t, 2, c.Len())
}

func TestCacheFilteredTracksUpserts(t *testing.T) {
	c := NewCache()
	c.Upsert(product("Nike", "Air", "Sneakers", "120"))
	require.Len(t, c.Search("casio"), 0)

	// an insert event arriving later shows up in the same filtered view
	c.Upsert(product("Casio", "F91W", "Watch", "25"))
	require.Len(t, c.Filtered(), 1)
}
