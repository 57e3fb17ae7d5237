package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fjod/go_storefront/internal/payment"
	"github.com/fjod/go_storefront/internal/reconcile"
	"go.uber.org/zap"
)

type WebhookReconciler interface {
	Handle(ctx context.Context, body []byte) (reconcile.Result, error)
}

type PaymentHandler struct {
	signer     payment.SignatureProvider
	reconciler WebhookReconciler
	currency   string
	maxBody    int64
	log        *zap.Logger
}

func NewPaymentHandler(signer payment.SignatureProvider, reconciler WebhookReconciler, currency string, maxBody int64, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		signer:     signer,
		reconciler: reconciler,
		currency:   currency,
		maxBody:    maxBody,
		log:        log,
	}
}

type SignatureRequestDTO struct {
	Reference     string `json:"reference"`
	AmountInCents int64  `json:"amountInCents"`
	Currency      string `json:"currency"`
}

type SignatureResponseDTO struct {
	Signature string `json:"signature"`
}

// POST /api/v1/payments/signature
func (h *PaymentHandler) Signature(w http.ResponseWriter, r *http.Request) {
	var req SignatureRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Reference == "" || req.AmountInCents <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", payment.ErrInvalidRequest.Error())
		return
	}
	if req.Currency == "" {
		req.Currency = h.currency
	}

	signature, err := h.signer.Sign(r.Context(), req.Reference, req.AmountInCents, req.Currency)
	if errors.Is(err, payment.ErrMissingSecret) {
		respondError(w, http.StatusInternalServerError, "signature_unavailable", err.Error())
		return
	}
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, SignatureResponseDTO{Signature: signature})
}

// POST /api/v1/payments/webhook
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, "invalid_request", "request body too large")
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "could not read body")
		return
	}

	result, err := h.reconciler.Handle(r.Context(), body)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
