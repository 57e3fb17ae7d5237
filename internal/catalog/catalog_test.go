package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/cms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T, handler http.HandlerFunc) *Catalog {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(cms.NewClient(srv.URL, "", time.Second))
}

func TestGetProduct(t *testing.T) {
	c := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products", r.URL.Path)
		assert.Equal(t, "12", r.URL.Query().Get("filters[id][$eq]"))
		assert.Equal(t, "priceTiers", r.URL.Query().Get("populate"))
		_, _ = w.Write([]byte(`{"data":[{
			"id":12,"documentId":"d12","name":"Buzo","slug":"buzo","basePrice":45000,
			"minWholesaleQty":6,"isActive":true,"sizes":["S","M"],
			"priceTiers":[{"id":1,"minQuantity":6,"maxQuantity":11,"pricePerUnit":40000,"label":"Mayorista"},
			              {"id":2,"minQuantity":12,"maxQuantity":null,"pricePerUnit":35000}]
		}]}`))
	})

	p, err := c.GetProduct(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, "Buzo", p.Name)
	assert.Equal(t, 6, p.MinQuantity())
	require.Len(t, p.PriceTiers, 2)
	require.NotNil(t, p.PriceTiers[0].MaxQuantity)
	assert.Equal(t, 11, *p.PriceTiers[0].MaxQuantity)
	assert.Nil(t, p.PriceTiers[1].MaxQuantity)
}

func TestGetProduct_NotFound(t *testing.T) {
	c := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	_, err := c.GetProduct(context.Background(), 99)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestSearch(t *testing.T) {
	c := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "cami", q.Get("filters[name][$containsi]"))
		assert.Equal(t, "true", q.Get("filters[isActive][$eq]"))
		assert.Equal(t, "coverImage,category", q.Get("populate"))
		assert.Equal(t, "6", q.Get("pagination[pageSize]"))
		_, _ = w.Write([]byte(`{"data":[{"id":1,"name":"Camiseta","slug":"camiseta","basePrice":10000,
			"coverImage":{"url":"/uploads/c.jpg"},"category":{"name":"Ropa","slug":"ropa"}}]}`))
	})

	hits, err := c.Search(context.Background(), "cami", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Camiseta", hits[0].Name)
	assert.Equal(t, "/uploads/c.jpg", hits[0].CoverImage.URL)
	assert.Equal(t, "ropa", hits[0].Category.Slug)
}
