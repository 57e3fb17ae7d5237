// Package checkout drives the three-step checkout flow: shipping, review, payment.
//
// The Machine is stateless; every call loads the session, checks the requested move against the
// current step, performs the side effects and saves the session back. A save against a session
// that changed in the meantime fails with ErrStaleSession and its result is discarded.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/fjod/go_storefront/internal/cms"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/logger"
	"github.com/fjod/go_storefront/internal/payment"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	msgProcessOrder = "could not process order"
	msgSignature    = "could not obtain payment signature"

	// failureSaveTimeout bounds the save of a failed confirm, which may outlive the request context.
	failureSaveTimeout = 2 * time.Second
)

var tracer = otel.Tracer("github.com/fjod/go_storefront/internal/checkout")

// Carts is the view of the session cart the machine needs.
type Carts interface {
	Lines(ctx context.Context, sessionID string) ([]domain.CartLine, error)
	Clear(ctx context.Context, sessionID string) error
}

type OrderSubmitter interface {
	CreateOrder(ctx context.Context, token string, items []domain.OrderItem, address domain.ShippingAddress, notes string) (domain.PlacedOrder, error)
	ConfirmPayment(ctx context.Context, token, orderNumber, transactionID string) error
}

type Config struct {
	Currency         string
	PublicKey        string
	ConfirmationPath string
}

// Completion tells the caller where to send the customer once the widget is done.
type Completion struct {
	OrderReference string `json:"order_reference"`
	RedirectURL    string `json:"redirect_url"`
	Approved       bool   `json:"approved"`
}

type Machine struct {
	sessions SessionStore
	carts    Carts
	orders   OrderSubmitter
	signer   payment.SignatureProvider
	cfg      Config
	log      *zap.Logger
	now      func() time.Time
}

func NewMachine(sessions SessionStore, carts Carts, orders OrderSubmitter, signer payment.SignatureProvider, cfg Config, log *zap.Logger) *Machine {
	return &Machine{
		sessions: sessions,
		carts:    carts,
		orders:   orders,
		signer:   signer,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Begin starts a fresh flow at the shipping step, replacing any previous session.
func (m *Machine) Begin(ctx context.Context, sessionID string) (*Session, error) {
	if err := m.requireItems(ctx, sessionID); err != nil {
		return nil, err
	}

	var version int64
	prev, err := m.sessions.Get(ctx, sessionID)
	switch {
	case err == nil:
		version = prev.Version
	case !errors.Is(err, ErrSessionNotFound):
		return nil, err
	}

	now := m.now().UTC()
	sess := &Session{
		ID:        sessionID,
		Step:      StepShipping,
		Prefill:   DefaultShippingForm(),
		Version:   version,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (m *Machine) Get(ctx context.Context, sessionID string) (*Session, error) {
	return m.sessions.Get(ctx, sessionID)
}

// SubmitShipping validates the form and moves shipping -> review. Invalid input returns a
// *ValidationError and leaves the session untouched.
func (m *Machine) SubmitShipping(ctx context.Context, sessionID string, form ShippingForm) (*Session, error) {
	sess, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Step.CanTransitionTo(StepReview) {
		return sess, transitionError(sess.Step, StepReview)
	}

	details, err := ValidateShipping(form)
	if err != nil {
		return sess, err
	}
	if err := m.requireItems(ctx, sessionID); err != nil {
		return sess, err
	}

	sess.Shipping = &details
	sess.Step = StepReview
	sess.Error = ""
	if err := m.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// SelectStep handles the step selector. Only review -> shipping is possible; selecting the
// current step is a no-op.
func (m *Machine) SelectStep(ctx context.Context, sessionID string, target Step) (*Session, error) {
	sess, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Step == target {
		return sess, nil
	}
	if target != StepShipping || !sess.Step.CanTransitionTo(target) {
		return sess, transitionError(sess.Step, target)
	}

	sess.Step = StepShipping
	sess.Error = ""
	if sess.Shipping != nil {
		sess.Prefill = ShippingForm(*sess.Shipping)
	}
	if err := m.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Confirm creates the order, prices it in minor units, obtains the integrity signature and moves
// review -> payment. Any failure leaves the session in review with Error set; retrying creates a
// brand-new order.
func (m *Machine) Confirm(ctx context.Context, sessionID, token string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "checkout.Confirm")
	defer span.End()
	span.SetAttributes(attribute.String("checkout.session_id", sessionID))
	log := logger.WithTrace(ctx, m.log).With(zap.String("session_id", sessionID))

	sess, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Step.CanTransitionTo(StepPayment) {
		return sess, transitionError(sess.Step, StepPayment)
	}
	if sess.Shipping == nil {
		return sess, ErrMissingShipping
	}
	if _, err := ValidateShipping(ShippingForm(*sess.Shipping)); err != nil {
		return sess, err
	}

	lines, err := m.carts.Lines(ctx, sessionID)
	if err != nil {
		return sess, err
	}
	if len(lines) == 0 {
		return sess, ErrEmptyCart
	}

	intent, err := m.placeOrder(ctx, token, lines, *sess.Shipping)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "confirm failed")
		log.Warn("checkout confirm failed", zap.Error(err))

		sess.Error = surfacedMessage(err)
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureSaveTimeout)
		defer cancel()
		if saveErr := m.sessions.Save(saveCtx, sess); saveErr != nil {
			return nil, saveErr
		}
		return sess, err
	}

	sess.Intent = &intent
	sess.Step = StepPayment
	sess.Error = ""
	if err := m.sessions.Save(ctx, sess); err != nil {
		log.Warn("discarding confirmed order on stale session", zap.String("order", intent.Reference), zap.Error(err))
		return nil, err
	}

	span.SetAttributes(attribute.String("checkout.order_reference", intent.Reference))
	log.Info("order placed", zap.String("order", intent.Reference), zap.Int64("amount_in_cents", intent.AmountInCents))
	return sess, nil
}

// placeOrder runs the strictly sequential part of confirm: the signature is only requested once
// the order exists.
func (m *Machine) placeOrder(ctx context.Context, token string, lines []domain.CartLine, shipping domain.ShippingDetails) (domain.PaymentIntent, error) {
	placed, err := m.orders.CreateOrder(ctx, token, OrderItems(lines), shipping.ShippingAddress(), shipping.Notes)
	if err != nil {
		return domain.PaymentIntent{}, err
	}

	amount := AmountInCents(placed.Total)
	signature, err := m.signer.Sign(ctx, placed.OrderNumber, amount, m.cfg.Currency)
	if err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("%w: %w", payment.ErrSignature, err)
	}

	return domain.PaymentIntent{
		Reference:     placed.OrderNumber,
		AmountInCents: amount,
		Currency:      m.cfg.Currency,
		Signature:     signature,
	}, nil
}

// Widget returns the payment widget configuration for a session in the payment step.
func (m *Machine) Widget(ctx context.Context, sessionID string, customer payment.Customer) (payment.WidgetConfig, error) {
	sess, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		return payment.WidgetConfig{}, err
	}
	if sess.Step != StepPayment || sess.Intent == nil {
		return payment.WidgetConfig{}, fmt.Errorf("%w: widget requested in step %s", ErrIllegalTransition, sess.Step)
	}
	if customer.FullName == "" && sess.Shipping != nil {
		customer.FullName = sess.Shipping.FullName
		customer.Phone = sess.Shipping.Phone
	}
	return payment.NewWidgetConfig(*sess.Intent, m.cfg.PublicKey, customer, sess.Shipping)
}

// Complete handles the widget outcome. Approved transactions are confirmed best effort; the cart
// is cleared and the session discarded whatever the outcome.
func (m *Machine) Complete(ctx context.Context, sessionID, token string, result payment.TransactionResult) (Completion, error) {
	ctx, span := tracer.Start(ctx, "checkout.Complete")
	defer span.End()
	log := logger.WithTrace(ctx, m.log).With(zap.String("session_id", sessionID))

	sess, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		return Completion{}, err
	}
	if sess.Step != StepPayment || sess.Intent == nil {
		return Completion{}, fmt.Errorf("%w: completion in step %s", ErrIllegalTransition, sess.Step)
	}
	reference := sess.Intent.Reference
	if result.Reference != "" && result.Reference != reference {
		return Completion{}, ErrReferenceMismatch
	}
	span.SetAttributes(
		attribute.String("checkout.order_reference", reference),
		attribute.String("payment.status", result.Status),
	)

	approved := result.Approved()
	if approved {
		if err := m.orders.ConfirmPayment(ctx, token, reference, result.ID); err != nil {
			// the payment webhook corrects the status later
			log.Warn("confirm payment failed", zap.String("order", reference), zap.Error(err))
		}
	}

	if err := m.carts.Clear(ctx, sessionID); err != nil {
		log.Warn("clear cart after checkout failed", zap.String("order", reference), zap.Error(err))
	}
	if err := m.sessions.Delete(ctx, sessionID); err != nil {
		log.Warn("discard checkout session failed", zap.Error(err))
	}

	log.Info("checkout completed", zap.String("order", reference), zap.Bool("approved", approved))
	return Completion{
		OrderReference: reference,
		RedirectURL:    m.cfg.ConfirmationPath + "?" + url.Values{"order": {reference}}.Encode(),
		Approved:       approved,
	}, nil
}

// Abandon discards the session when the customer leaves the flow.
func (m *Machine) Abandon(ctx context.Context, sessionID string) error {
	return m.sessions.Delete(ctx, sessionID)
}

func (m *Machine) requireItems(ctx context.Context, sessionID string) error {
	lines, err := m.carts.Lines(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return ErrEmptyCart
	}
	return nil
}

// OrderItems maps cart lines to order records. Unit price is always the base price.
func OrderItems(lines []domain.CartLine) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.OrderItem{
			ProductID:     l.Product.ID,
			ProductName:   l.Product.Name,
			ProductSlug:   l.Product.Slug,
			Quantity:      l.Quantity,
			UnitPrice:     l.Product.BasePrice,
			SelectedSize:  l.SelectedSize,
			SelectedColor: l.SelectedColor,
		})
	}
	return items
}

// AmountInCents converts an order total in whole units to minor units, rounding half up.
func AmountInCents(total decimal.Decimal) int64 {
	return domain.MinorUnits(total)
}

func surfacedMessage(err error) string {
	var apiErr *cms.APIError
	switch {
	case errors.Is(err, payment.ErrSignature):
		return msgSignature
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	default:
		return msgProcessOrder
	}
}
