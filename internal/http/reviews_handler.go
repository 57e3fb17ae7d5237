package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_storefront/internal/cms"
	"github.com/fjod/go_storefront/internal/reviews"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ReviewService interface {
	Submit(ctx context.Context, token string, sub reviews.Submission) (*reviews.Review, error)
	List(ctx context.Context, productID string, page int) (reviews.Page, error)
	Summary(ctx context.Context, productID string) (reviews.Summary, error)
}

type ReviewsHandler struct {
	reviews ReviewService
	timeout time.Duration
	log     *zap.Logger
}

func NewReviewsHandler(svc ReviewService, timeout time.Duration, log *zap.Logger) *ReviewsHandler {
	return &ReviewsHandler{
		reviews: svc,
		timeout: timeout,
		log:     log,
	}
}

type SubmitReviewRequestDTO struct {
	Rating  int    `json:"rating"`
	Title   string `json:"title"`
	Comment string `json:"comment"`
}

type ReviewsResponseDTO struct {
	reviews.Page
	// Summary is only sent with the first page.
	Summary *reviews.Summary `json:"summary,omitempty"`
}

// GET /api/v1/products/{document_id}/reviews?page=
func (h *ReviewsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "document_id")
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			respondError(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
			return
		}
		page = p
	}

	list, err := h.reviews.List(ctx, productID, page)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	resp := ReviewsResponseDTO{Page: list}
	if page == 1 {
		summary, err := h.reviews.Summary(ctx, productID)
		if err != nil {
			h.log.Warn("review summary unavailable", zap.String("product", productID), zap.Error(err))
		} else {
			resp.Summary = &summary
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// POST /api/v1/products/{document_id}/reviews
// A review the CMS refuses (e.g. a second review of the same product) keeps the CMS status and message.
func (h *ReviewsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SubmitReviewRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	review, err := h.reviews.Submit(ctx, getToken(r.Context()), reviews.Submission{
		ProductID: chi.URLParam(r, "document_id"),
		Rating:    req.Rating,
		Title:     req.Title,
		Comment:   req.Comment,
	})
	if err != nil {
		var apiErr *cms.APIError
		if errors.Is(err, reviews.ErrSubmitReview) && errors.As(err, &apiErr) {
			status, msg := apiErr.Status, apiErr.Message
			if status >= http.StatusInternalServerError {
				status = http.StatusBadGateway
			}
			if msg == "" {
				msg = reviews.ErrSubmitReview.Error()
			}
			respondError(w, status, "review_rejected", msg)
			return
		}
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, review)
}
