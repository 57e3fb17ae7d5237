package checkout

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakeCarts struct {
	mu       sync.Mutex
	stores   map[string]*cart.Store
	clearErr error
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{stores: make(map[string]*cart.Store)}
}

func (f *fakeCarts) store(sessionID string) *cart.Store {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.stores[sessionID]
	if !ok {
		s = cart.NewStore()
		f.stores[sessionID] = s
	}
	return s
}

func (f *fakeCarts) Lines(_ context.Context, sessionID string) ([]domain.CartLine, error) {
	return f.store(sessionID).Lines(), nil
}

func (f *fakeCarts) Clear(_ context.Context, sessionID string) error {
	f.store(sessionID).Clear()
	return f.clearErr
}

type confirmCall struct {
	token, orderNumber, transactionID string
}

type fakeOrders struct {
	mu         sync.Mutex
	created    [][]domain.OrderItem
	addresses  []domain.ShippingAddress
	confirmed  []confirmCall
	createErr  error
	confirmErr error
	// hang makes CreateOrder wait for its context to end
	hang  bool
	total decimal.Decimal
	next  int
}

func (f *fakeOrders) CreateOrder(ctx context.Context, _ string, items []domain.OrderItem, address domain.ShippingAddress, _ string) (domain.PlacedOrder, error) {
	if f.hang {
		<-ctx.Done()
		return domain.PlacedOrder{}, fmt.Errorf("create order: %w", ctx.Err())
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.PlacedOrder{}, f.createErr
	}
	f.created = append(f.created, items)
	f.addresses = append(f.addresses, address)
	f.next++
	total := f.total
	if total.IsZero() {
		for _, it := range items {
			total = total.Add(decimal.NewFromInt(it.UnitPrice * int64(it.Quantity)))
		}
	}
	return domain.PlacedOrder{
		OrderNumber: orderNumber(f.next),
		Total:       total,
		PaymentID:   "pay",
	}, nil
}

func (f *fakeOrders) ConfirmPayment(_ context.Context, token, orderNumber, transactionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, confirmCall{token, orderNumber, transactionID})
	return f.confirmErr
}

func (f *fakeOrders) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeOrders) confirmCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.confirmed)
}

func orderNumber(n int) string {
	return fmt.Sprintf("ORD-%04d", n)
}

type fakeSigner struct {
	err   error
	calls int
}

func (f *fakeSigner) Sign(_ context.Context, reference string, amountInCents int64, currency string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "sig-" + reference, nil
}

type fixture struct {
	machine *Machine
	store   *RedisSessionStore
	mr      *miniredis.Miniredis
	carts   *fakeCarts
	orders  *fakeOrders
	signer  *fakeSigner
}

func newFixture(t *testing.T) *fixture {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return newFixtureWith(mr, client)
}

func newFixtureWith(mr *miniredis.Miniredis, client *redis.Client) *fixture {
	f := &fixture{
		store:  NewRedisSessionStore(client, time.Hour),
		mr:     mr,
		carts:  newFakeCarts(),
		orders: &fakeOrders{},
		signer: &fakeSigner{},
	}
	f.machine = NewMachine(f.store, f.carts, f.orders, f.signer, Config{
		Currency:         "COP",
		PublicKey:        "pub_test_key",
		ConfirmationPath: "/confirmacion",
	}, zap.NewNop())
	return f
}

func productA() domain.Product {
	return domain.Product{ID: 1, Name: "Camiseta", Slug: "camiseta", BasePrice: 10000, MinWholesaleQty: 5, IsActive: true}
}

func productB() domain.Product {
	return domain.Product{ID: 2, Name: "Gorra", Slug: "gorra", BasePrice: 20000, MinWholesaleQty: 1, IsActive: true}
}

func validForm() ShippingForm {
	return ShippingForm{
		FullName:   "Ana Pérez",
		Phone:      "+57 300 123 4567",
		Department: "Córdoba",
		City:       "Montería",
		Address:    "Calle 27 # 4-15",
		Notes:      "Portería",
	}
}
