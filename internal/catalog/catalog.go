// Package catalog reads products from the CMS.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fjod/go_storefront/internal/cms"
	"github.com/fjod/go_storefront/internal/domain"
)

const DefaultSearchLimit = 6

var ErrProductNotFound = errors.New("product not found")

type Doer interface {
	Do(ctx context.Context, req cms.Request, out any) error
}

type Media struct {
	URL             string `json:"url"`
	AlternativeText string `json:"alternativeText,omitempty"`
}

type Category struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Hit is a search result: the product plus what a result row displays.
type Hit struct {
	domain.Product
	CoverImage *Media    `json:"coverImage,omitempty"`
	Category   *Category `json:"category,omitempty"`
}

type Catalog struct {
	cms Doer
}

func New(c Doer) *Catalog {
	return &Catalog{cms: c}
}

// GetProduct loads a product with its price tiers, active or not.
func (c *Catalog) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := url.Values{}
	query.Set("filters[id][$eq]", strconv.FormatInt(id, 10))
	query.Set("populate", "priceTiers")

	var resp struct {
		Data []domain.Product `json:"data"`
	}
	if err := c.cms.Do(ctx, cms.Request{Method: http.MethodGet, Path: "/api/products", Query: query}, &resp); err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	if len(resp.Data) == 0 {
		return nil, ErrProductNotFound
	}
	return &resp.Data[0], nil
}

// Search finds active products whose name contains term, case-insensitively.
func (c *Catalog) Search(ctx context.Context, term string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	query := url.Values{}
	query.Set("filters[name][$containsi]", term)
	query.Set("filters[isActive][$eq]", "true")
	query.Set("populate", "coverImage,category")
	query.Set("pagination[pageSize]", strconv.Itoa(limit))

	var resp struct {
		Data []Hit `json:"data"`
	}
	if err := c.cms.Do(ctx, cms.Request{Method: http.MethodGet, Path: "/api/products", Query: query}, &resp); err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	if resp.Data == nil {
		return []Hit{}, nil
	}
	return resp.Data, nil
}
