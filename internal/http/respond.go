package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_storefront/internal/cart/service"
	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/cms"
	"github.com/fjod/go_storefront/internal/payment"
	"github.com/fjod/go_storefront/internal/reconcile"
	"github.com/fjod/go_storefront/internal/reviews"
	"github.com/fjod/go_storefront/internal/search"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// handleError maps service errors to HTTP responses. Unexpected errors are logged and hidden.
func handleError(w http.ResponseWriter, log *zap.Logger, err error) {
	var validation *checkout.ValidationError
	if errors.As(err, &validation) {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "invalid shipping details",
			Code:    "validation_failed",
			Details: validation.Fields,
		})
		return
	}
	var invalidReview *reviews.ValidationError
	if errors.As(err, &invalidReview) {
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "invalid review",
			Code:    "validation_failed",
			Details: invalidReview.Fields,
		})
		return
	}

	var (
		status int
		code   string
	)
	switch {
	case errors.Is(err, checkout.ErrSessionNotFound):
		status, code = http.StatusNotFound, "checkout_not_found"
	case errors.Is(err, catalog.ErrProductNotFound):
		status, code = http.StatusNotFound, "product_not_found"
	case errors.Is(err, reconcile.ErrOrderNotFound):
		status, code = http.StatusNotFound, "order_not_found"
	case errors.Is(err, checkout.ErrEmptyCart):
		status, code = http.StatusConflict, "empty_cart"
	case errors.Is(err, checkout.ErrIllegalTransition):
		status, code = http.StatusConflict, "illegal_transition"
	case errors.Is(err, checkout.ErrMissingShipping):
		status, code = http.StatusConflict, "missing_shipping"
	case errors.Is(err, checkout.ErrStaleSession):
		status, code = http.StatusConflict, "stale_session"
	case errors.Is(err, checkout.ErrReferenceMismatch):
		status, code = http.StatusConflict, "reference_mismatch"
	case errors.Is(err, search.ErrSuperseded):
		status, code = http.StatusConflict, "superseded"
	case errors.Is(err, service.ErrProductUnavailable):
		status, code = http.StatusUnprocessableEntity, "product_unavailable"
	case errors.Is(err, service.ErrUnknownDrawerAction),
		errors.Is(err, payment.ErrInvalidRequest),
		errors.Is(err, reconcile.ErrMalformedEvent):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, reconcile.ErrInvalidChecksum):
		status, code = http.StatusUnauthorized, "invalid_checksum"
	case errors.Is(err, cms.ErrUnavailable):
		status, code = http.StatusServiceUnavailable, "service_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	default:
		log.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, status, code, err.Error())
}
