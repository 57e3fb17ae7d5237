package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/cart/service"
	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/payment"
	"github.com/fjod/go_storefront/internal/reconcile"
	"github.com/fjod/go_storefront/internal/reviews"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSession = "5f0c6a3e-8a1b-4c5d-9e2f-0a1b2c3d4e5f"

var tshirt = domain.Product{ID: 1, Name: "Camiseta Polo", BasePrice: 45000, MinWholesaleQty: 1, IsActive: true}

type fakeCarts struct {
	mu       sync.Mutex
	stores   map[string]*cart.Store
	products map[int64]domain.Product
	err      error
}

func newFakeCarts(products ...domain.Product) *fakeCarts {
	f := &fakeCarts{stores: make(map[string]*cart.Store), products: make(map[int64]domain.Product)}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeCarts) store(sessionID string) *cart.Store {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.stores[sessionID]
	if !ok {
		st = cart.NewStore()
		f.stores[sessionID] = st
	}
	return st
}

func (f *fakeCarts) GetCart(_ context.Context, sessionID string) (cart.Summary, error) {
	if f.err != nil {
		return cart.Summary{}, f.err
	}
	return f.store(sessionID).Summary(), nil
}

func (f *fakeCarts) AddItem(_ context.Context, sessionID string, productID int64, quantity int, size, color string) (cart.Summary, error) {
	if f.err != nil {
		return cart.Summary{}, f.err
	}
	p, ok := f.products[productID]
	if !ok {
		return cart.Summary{}, catalog.ErrProductNotFound
	}
	if !p.IsActive {
		return cart.Summary{}, service.ErrProductUnavailable
	}
	st := f.store(sessionID)
	st.AddItem(p, quantity, size, color)
	return st.Summary(), nil
}

func (f *fakeCarts) UpdateQuantity(_ context.Context, sessionID string, productID int64, quantity int) (cart.Summary, error) {
	st := f.store(sessionID)
	st.UpdateQuantity(productID, quantity)
	return st.Summary(), nil
}

func (f *fakeCarts) RemoveItem(_ context.Context, sessionID string, productID int64) (cart.Summary, error) {
	st := f.store(sessionID)
	st.RemoveItem(productID)
	return st.Summary(), nil
}

func (f *fakeCarts) Clear(_ context.Context, sessionID string) error {
	f.store(sessionID).Clear()
	return nil
}

func (f *fakeCarts) SetDrawer(_ context.Context, sessionID string, action service.DrawerAction) (cart.Summary, error) {
	st := f.store(sessionID)
	switch action {
	case service.DrawerOpen:
		st.Open()
	case service.DrawerClose:
		st.Close()
	case service.DrawerToggle:
		st.Toggle()
	default:
		return cart.Summary{}, service.ErrUnknownDrawerAction
	}
	return st.Summary(), nil
}

type fakeMachine struct {
	sess       *checkout.Session
	err        error
	token      string
	sessionID  string
	completion checkout.Completion
	widget     payment.WidgetConfig
	customer   payment.Customer
	abandoned  bool
}

func (m *fakeMachine) record(sessionID string) (*checkout.Session, error) {
	m.sessionID = sessionID
	return m.sess, m.err
}

func (m *fakeMachine) Begin(_ context.Context, id string) (*checkout.Session, error) {
	return m.record(id)
}

func (m *fakeMachine) Get(_ context.Context, id string) (*checkout.Session, error) {
	return m.record(id)
}

func (m *fakeMachine) SubmitShipping(_ context.Context, id string, _ checkout.ShippingForm) (*checkout.Session, error) {
	return m.record(id)
}

func (m *fakeMachine) SelectStep(_ context.Context, id string, _ checkout.Step) (*checkout.Session, error) {
	return m.record(id)
}

func (m *fakeMachine) Confirm(_ context.Context, id, token string) (*checkout.Session, error) {
	m.token = token
	return m.record(id)
}

func (m *fakeMachine) Widget(_ context.Context, id string, customer payment.Customer) (payment.WidgetConfig, error) {
	m.sessionID = id
	m.customer = customer
	return m.widget, m.err
}

func (m *fakeMachine) Complete(_ context.Context, id, token string, _ payment.TransactionResult) (checkout.Completion, error) {
	m.sessionID = id
	m.token = token
	return m.completion, m.err
}

func (m *fakeMachine) Abandon(_ context.Context, id string) error {
	m.sessionID = id
	m.abandoned = true
	return m.err
}

type fakeOrders struct {
	orders []domain.Order
	token  string
}

func (f *fakeOrders) FetchMyOrders(_ context.Context, token string) []domain.Order {
	f.token = token
	return f.orders
}

type fakeReviews struct {
	submitted  []reviews.Submission
	token      string
	page       reviews.Page
	summary    reviews.Summary
	submitErr  error
	listErr    error
	summaryErr error
	pages      []int
}

func (f *fakeReviews) Submit(_ context.Context, token string, sub reviews.Submission) (*reviews.Review, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.token = token
	f.submitted = append(f.submitted, sub)
	return &reviews.Review{ID: 1, Rating: sub.Rating, Comment: sub.Comment}, nil
}

func (f *fakeReviews) List(_ context.Context, _ string, page int) (reviews.Page, error) {
	f.pages = append(f.pages, page)
	p := f.page
	p.Page = page
	return p, f.listErr
}

func (f *fakeReviews) Summary(_ context.Context, _ string) (reviews.Summary, error) {
	return f.summary, f.summaryErr
}

type fakeSearcher struct {
	hits []catalog.Hit
	err  error
	key  string
}

func (f *fakeSearcher) Query(_ context.Context, key, _ string) ([]catalog.Hit, error) {
	f.key = key
	return f.hits, f.err
}

type fakeReconciler struct {
	result reconcile.Result
	err    error
	body   []byte
}

func (f *fakeReconciler) Handle(_ context.Context, body []byte) (reconcile.Result, error) {
	f.body = body
	return f.result, f.err
}

type testDeps struct {
	carts      *fakeCarts
	machine    *fakeMachine
	orders     *fakeOrders
	searcher   *fakeSearcher
	reconciler *fakeReconciler
	reviews    *fakeReviews
	router     chi.Router
}

func newTestRouter(t *testing.T) *testDeps {
	t.Helper()
	d := &testDeps{
		carts:      newFakeCarts(tshirt),
		machine:    &fakeMachine{},
		orders:     &fakeOrders{},
		searcher:   &fakeSearcher{},
		reconciler: &fakeReconciler{},
		reviews:    &fakeReviews{},
	}
	log := zap.NewNop()
	d.router = NewRouter(Handlers{
		Cart:     NewCartHandler(d.carts, 5*time.Second, log),
		Checkout: NewCheckoutHandler(d.machine, 5*time.Second, log),
		Orders:   NewOrdersHandler(d.orders, 5*time.Second),
		Search:   NewSearchHandler(d.searcher, log),
		Payment:  NewPaymentHandler(payment.NewIntegritySigner("integrity_secret"), d.reconciler, "COP", 1<<20, log),
		Reviews:  NewReviewsHandler(d.reviews, 5*time.Second, log),
	}, 5*time.Second)
	return d
}

type reqOpt func(*http.Request)

func withSession(id string) reqOpt {
	return func(r *http.Request) { r.Header.Set(SessionHeader, id) }
}

func withToken(token string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func (d *testDeps) do(t *testing.T, method, path string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	d.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}
