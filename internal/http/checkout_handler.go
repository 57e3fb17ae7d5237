package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/payment"
	"go.uber.org/zap"
)

type CheckoutMachine interface {
	Begin(ctx context.Context, sessionID string) (*checkout.Session, error)
	Get(ctx context.Context, sessionID string) (*checkout.Session, error)
	SubmitShipping(ctx context.Context, sessionID string, form checkout.ShippingForm) (*checkout.Session, error)
	SelectStep(ctx context.Context, sessionID string, target checkout.Step) (*checkout.Session, error)
	Confirm(ctx context.Context, sessionID, token string) (*checkout.Session, error)
	Widget(ctx context.Context, sessionID string, customer payment.Customer) (payment.WidgetConfig, error)
	Complete(ctx context.Context, sessionID, token string, result payment.TransactionResult) (checkout.Completion, error)
	Abandon(ctx context.Context, sessionID string) error
}

type CheckoutHandler struct {
	machine CheckoutMachine
	timeout time.Duration
	log     *zap.Logger
}

func NewCheckoutHandler(machine CheckoutMachine, timeout time.Duration, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		machine: machine,
		timeout: timeout,
		log:     log,
	}
}

type SelectStepRequestDTO struct {
	Step checkout.Step `json:"step"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess, err := h.machine.Begin(ctx, getSessionID(r.Context()))
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

// GET /api/v1/checkout
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess, err := h.machine.Get(ctx, getSessionID(r.Context()))
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// POST /api/v1/checkout/shipping
func (h *CheckoutHandler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var form checkout.ShippingForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sess, err := h.machine.SubmitShipping(ctx, getSessionID(r.Context()), form)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// POST /api/v1/checkout/step
func (h *CheckoutHandler) SelectStep(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SelectStepRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if !req.Step.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_step", "step must be shipping, review or payment")
		return
	}

	sess, err := h.machine.SelectStep(ctx, getSessionID(r.Context()), req.Step)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// POST /api/v1/checkout/confirm
// A failed order or signature leaves the session in review; the response carries the surfaced
// message and the session.
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sess, err := h.machine.Confirm(ctx, getSessionID(r.Context()), getToken(r.Context()))
	if err != nil {
		if sess != nil && sess.Error != "" {
			respondJSON(w, http.StatusBadGateway, ErrorResponse{
				Error:   sess.Error,
				Code:    "order_failed",
				Details: sess,
			})
			return
		}
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

// GET /api/v1/checkout/widget?email=&name=&phone=
func (h *CheckoutHandler) Widget(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	customer := payment.Customer{
		Email:    q.Get("email"),
		FullName: q.Get("name"),
		Phone:    q.Get("phone"),
	}

	cfg, err := h.machine.Widget(ctx, getSessionID(r.Context()), customer)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// POST /api/v1/checkout/result
func (h *CheckoutHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var result payment.TransactionResult
	if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	completion, err := h.machine.Complete(ctx, getSessionID(r.Context()), getToken(r.Context()), result)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, completion)
}

// DELETE /api/v1/checkout
func (h *CheckoutHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.machine.Abandon(ctx, getSessionID(r.Context())); err != nil {
		handleError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
