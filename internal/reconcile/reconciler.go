// Package reconcile applies payment gateway webhook events to orders. The webhook is
// the authority on final payment and order status.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/logger"
	"github.com/fjod/go_storefront/internal/orders"
	"github.com/fjod/go_storefront/internal/reconcile/repository"
	"go.uber.org/zap"
)

const EventPaymentStatusChanged = "payment.status_changed"

var ErrOrderNotFound = errors.New("order not found")

type OrderAdmin interface {
	FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	UpdatePayment(ctx context.Context, paymentDocumentID string, update domain.PaymentUpdate) error
	UpdateOrderStatus(ctx context.Context, orderDocumentID string, status domain.OrderStatus) error
}

type Deduper interface {
	FirstDelivery(ctx context.Context, transactionID, status string) (bool, error)
	Forget(ctx context.Context, transactionID, status string) error
}

type EventStore interface {
	InsertEvent(ctx context.Context, event *repository.OutboxEvent) error
}

type Result struct {
	Received    bool               `json:"received"`
	OrderNumber string             `json:"orderNumber,omitempty"`
	Status      domain.OrderStatus `json:"status,omitempty"`
	Duplicate   bool               `json:"duplicate,omitempty"`
	// AmountMismatch is set when an approved transaction did not pay the order total.
	AmountMismatch bool `json:"amountMismatch,omitempty"`
}

// StatusChanged is the outbox payload published for every applied transaction update.
type StatusChanged struct {
	OrderNumber       string               `json:"order_number"`
	TransactionID     string               `json:"transaction_id"`
	TransactionStatus string               `json:"transaction_status"`
	PaymentStatus     domain.PaymentStatus `json:"payment_status"`
	OrderStatus       domain.OrderStatus   `json:"order_status"`
	PaymentMethod     string               `json:"payment_method,omitempty"`
	OccurredAt        time.Time            `json:"occurred_at"`
}

type Reconciler struct {
	admin    OrderAdmin
	dedupe   Deduper
	events   EventStore
	secret   string
	currency string
	log      *zap.Logger
}

// NewReconciler builds a reconciler. Approved transactions must pay the order total in currency.
func NewReconciler(admin OrderAdmin, dedupe Deduper, events EventStore, secret, currency string, log *zap.Logger) *Reconciler {
	return &Reconciler{
		admin:    admin,
		dedupe:   dedupe,
		events:   events,
		secret:   secret,
		currency: currency,
		log:      log,
	}
}

// Handle verifies and applies one webhook delivery. Events other than transaction.updated
// and events without a transaction are acknowledged and ignored.
func (r *Reconciler) Handle(ctx context.Context, body []byte) (Result, error) {
	ev, err := ParseEvent(body)
	if err != nil {
		return Result{}, err
	}
	if ev.Event != EventTransactionUpdated {
		return Result{Received: true}, nil
	}
	if err := Verify(ev, r.secret); err != nil {
		r.log.Warn("webhook checksum rejected", zap.String("event", ev.Event))
		return Result{}, err
	}

	tx, raw, err := ev.Transaction()
	if err != nil {
		return Result{}, err
	}
	if tx == nil {
		return Result{Received: true}, nil
	}

	paymentStatus, orderStatus := MapStatus(tx.Status)
	log := logger.WithTrace(ctx, r.log).With(
		zap.String("order_number", tx.Reference),
		zap.String("transaction_id", tx.ID),
		zap.String("transaction_status", tx.Status),
	)

	first, err := r.dedupe.FirstDelivery(ctx, tx.ID, tx.Status)
	if err != nil {
		log.Warn("idempotency check failed, processing anyway", zap.Error(err))
		first = true
	}
	if !first {
		log.Info("duplicate webhook delivery ignored")
		return Result{Received: true, OrderNumber: tx.Reference, Status: orderStatus, Duplicate: true}, nil
	}

	applied, err := r.apply(ctx, ev, tx, raw, paymentStatus, orderStatus)
	if err != nil {
		if ferr := r.dedupe.Forget(ctx, tx.ID, tx.Status); ferr != nil {
			log.Warn("failed to release idempotency key", zap.Error(ferr))
		}
		log.Error("webhook reconciliation failed", zap.Error(err))
		return Result{}, err
	}

	log.Info("order reconciled",
		zap.String("payment_status", string(applied.payment)),
		zap.String("order_status", string(applied.order)),
	)
	return Result{
		Received:       true,
		OrderNumber:    tx.Reference,
		Status:         applied.order,
		AmountMismatch: applied.mismatch,
	}, nil
}

type outcome struct {
	payment  domain.PaymentStatus
	order    domain.OrderStatus
	mismatch bool
}

func (r *Reconciler) apply(
	ctx context.Context,
	ev *Event,
	tx *Transaction,
	raw json.RawMessage,
	paymentStatus domain.PaymentStatus,
	orderStatus domain.OrderStatus,
) (outcome, error) {
	order, err := r.admin.FindByOrderNumber(ctx, tx.Reference)
	if errors.Is(err, orders.ErrOrderNotFound) {
		return outcome{}, fmt.Errorf("%w: %s", ErrOrderNotFound, tx.Reference)
	}
	if err != nil {
		return outcome{}, err
	}

	res := outcome{payment: paymentStatus, order: orderStatus}
	if paymentStatus == domain.PaymentStatusApproved {
		want := domain.MinorUnits(order.Total)
		if tx.AmountInCents != want || !strings.EqualFold(tx.Currency, r.currency) {
			logger.WithTrace(ctx, r.log).Error("approved transaction does not match order total",
				zap.String("order_number", tx.Reference),
				zap.Int64("paid_in_cents", tx.AmountInCents),
				zap.Int64("expected_in_cents", want),
				zap.String("paid_currency", tx.Currency),
				zap.String("expected_currency", r.currency),
			)
			res = outcome{payment: domain.PaymentStatusError, order: domain.OrderStatusPending, mismatch: true}
		}
	}
	paymentStatus, orderStatus = res.payment, res.order

	if order.Payment != nil && order.Payment.DocumentID != "" {
		update := domain.PaymentUpdate{
			TransactionID: tx.ID,
			Status:        paymentStatus,
			Raw:           raw,
		}
		if tx.PaymentMethodType != "" {
			method := tx.PaymentMethodType
			update.Method = &method
		}
		if err := r.admin.UpdatePayment(ctx, order.Payment.DocumentID, update); err != nil {
			return outcome{}, err
		}
	}

	if err := r.admin.UpdateOrderStatus(ctx, order.DocumentID, orderStatus); err != nil {
		return outcome{}, err
	}

	occurredAt := time.Now().UTC()
	if sec, err := ev.Timestamp.Int64(); err == nil && sec > 0 {
		occurredAt = time.Unix(sec, 0).UTC()
	}
	payload, err := json.Marshal(StatusChanged{
		OrderNumber:       tx.Reference,
		TransactionID:     tx.ID,
		TransactionStatus: tx.Status,
		PaymentStatus:     paymentStatus,
		OrderStatus:       orderStatus,
		PaymentMethod:     tx.PaymentMethodType,
		OccurredAt:        occurredAt,
	})
	if err != nil {
		return outcome{}, fmt.Errorf("marshal status change: %w", err)
	}

	if err := r.events.InsertEvent(ctx, &repository.OutboxEvent{
		AggregateID: tx.Reference,
		EventType:   EventPaymentStatusChanged,
		Payload:     payload,
	}); err != nil {
		return outcome{}, err
	}
	return res, nil
}
