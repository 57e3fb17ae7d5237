// Package reviews submits and lists product reviews stored in the CMS. Submitted reviews are
// moderated there and only show up in listings once approved.
package reviews

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/cms"
	"github.com/go-playground/validator/v10"
)

const DefaultPageSize = 5

var ErrSubmitReview = errors.New("could not submit review")

// ValidationError lists field-scoped messages for a rejected review.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid review: %s", strings.Join(names, ", "))
}

// Doer is the CMS transport.
type Doer interface {
	Do(ctx context.Context, req cms.Request, out any) error
}

type Author struct {
	Username string `json:"username"`
}

type Review struct {
	ID               int64     `json:"id"`
	DocumentID       string    `json:"documentId"`
	Rating           int       `json:"rating"`
	Title            string    `json:"title,omitempty"`
	Comment          string    `json:"comment"`
	VerifiedPurchase bool      `json:"verifiedPurchase"`
	IsApproved       bool      `json:"isApproved"`
	User             *Author   `json:"user,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Summary aggregates approved reviews. Distribution counts reviews per star (1-5).
type Summary struct {
	Average      float64        `json:"average"`
	Count        int            `json:"count"`
	Distribution map[string]int `json:"distribution"`
}

type Page struct {
	Reviews   []Review `json:"reviews"`
	Page      int      `json:"page"`
	PageCount int      `json:"page_count"`
	Total     int      `json:"total"`
}

// Submission is a customer's review of one product.
type Submission struct {
	ProductID string `json:"productId" validate:"required"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Title     string `json:"title,omitempty" validate:"max=150"`
	Comment   string `json:"comment" validate:"required,min=10"`
}

var messages = map[string]string{
	"productId": "product is required",
	"rating":    "select a rating",
	"title":     "title is too long",
	"comment":   "comment must have at least 10 characters",
}

type Client struct {
	cms      Doer
	validate *validator.Validate
}

func NewClient(c Doer) *Client {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return &Client{cms: c, validate: v}
}

// Submit trims and validates the review, then posts it with the customer's token. The CMS
// message of a rejected submission is kept in the returned error.
func (c *Client) Submit(ctx context.Context, token string, sub Submission) (*Review, error) {
	sub.ProductID = strings.TrimSpace(sub.ProductID)
	sub.Title = strings.TrimSpace(sub.Title)
	sub.Comment = strings.TrimSpace(sub.Comment)

	if err := c.validate.Struct(sub); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = messages[fe.Field()]
		}
		return nil, &ValidationError{Fields: fields}
	}

	var resp struct {
		Data Review `json:"data"`
	}
	err := c.cms.Do(ctx, cms.Request{
		Method: http.MethodPost,
		Path:   "/api/reviews/submit",
		Body:   sub,
		Token:  token,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmitReview, err)
	}
	return &resp.Data, nil
}

// List returns one page of approved reviews for a product. Pages start at 1.
func (c *Client) List(ctx context.Context, productID string, page int) (Page, error) {
	if page < 1 {
		page = 1
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(DefaultPageSize))

	var resp struct {
		Data []Review `json:"data"`
		Meta struct {
			Pagination struct {
				Total     int `json:"total"`
				PageCount int `json:"pageCount"`
			} `json:"pagination"`
		} `json:"meta"`
	}
	err := c.cms.Do(ctx, cms.Request{
		Method: http.MethodGet,
		Path:   "/api/reviews/product/" + url.PathEscape(productID),
		Query:  query,
	}, &resp)
	if err != nil {
		return Page{}, fmt.Errorf("list reviews: %w", err)
	}

	out := Page{
		Reviews:   resp.Data,
		Page:      page,
		PageCount: resp.Meta.Pagination.PageCount,
		Total:     resp.Meta.Pagination.Total,
	}
	if out.Reviews == nil {
		out.Reviews = []Review{}
	}
	return out, nil
}

func (c *Client) Summary(ctx context.Context, productID string) (Summary, error) {
	var s Summary
	err := c.cms.Do(ctx, cms.Request{
		Method: http.MethodGet,
		Path:   "/api/reviews/summary/" + url.PathEscape(productID),
	}, &s)
	if err != nil {
		return Summary{}, fmt.Errorf("review summary: %w", err)
	}
	if s.Distribution == nil {
		s.Distribution = map[string]int{}
	}
	return s, nil
}
