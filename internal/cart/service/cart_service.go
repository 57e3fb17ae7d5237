package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/cart/cache"
	"github.com/fjod/go_storefront/internal/cart/repository"
	"github.com/fjod/go_storefront/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CleanupInterval is how often idle session carts are dropped from memory.
const CleanupInterval = time.Minute

var (
	ErrProductUnavailable  = errors.New("product is not available")
	ErrUnknownDrawerAction = errors.New("unknown drawer action")
)

// ProductCatalog resolves the authoritative product record before a line is added.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

type DrawerAction string

const (
	DrawerOpen   DrawerAction = "open"
	DrawerClose  DrawerAction = "close"
	DrawerToggle DrawerAction = "toggle"
)

type session struct {
	// serializes mutate + persist for one session
	mu       sync.Mutex
	store    *cart.Store
	lastSeen time.Time
}

func (s *session) current() *cart.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

// CartService owns the live cart of every active session. Carts are loaded once from the
// cache or the repository and written back after every line mutation.
type CartService struct {
	repo     repository.CartRepository
	cache    cache.CartCache
	products ProductCatalog
	log      *zap.Logger
	idleTTL  time.Duration
	sfg      singleflight.Group // Prevents cache stampede

	mu       sync.Mutex
	sessions map[string]*session

	stopCleanup chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

func NewCartService(repo repository.CartRepository, c cache.CartCache, products ProductCatalog, log *zap.Logger, idleTTL time.Duration) *CartService {
	s := &CartService{
		repo:        repo,
		cache:       c,
		products:    products,
		log:         log,
		idleTTL:     idleTTL,
		sessions:    make(map[string]*session),
		stopCleanup: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

// Close stops the background eviction loop. Persisted carts are unaffected.
func (s *CartService) Close() {
	s.closeOnce.Do(func() {
		close(s.stopCleanup)
		s.wg.Wait()
	})
}

func (s *CartService) GetCart(ctx context.Context, sessionID string) (cart.Summary, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return cart.Summary{}, err
	}
	return sess.current().Summary(), nil
}

func (s *CartService) AddItem(ctx context.Context, sessionID string, productID int64, quantity int, size, color string) (cart.Summary, error) {
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return cart.Summary{}, fmt.Errorf("resolve product %d: %w", productID, err)
	}
	if !product.IsActive {
		return cart.Summary{}, ErrProductUnavailable
	}

	return s.mutate(ctx, sessionID, func(st *cart.Store) {
		st.AddItem(*product, quantity, size, color)
	})
}

func (s *CartService) UpdateQuantity(ctx context.Context, sessionID string, productID int64, quantity int) (cart.Summary, error) {
	return s.mutate(ctx, sessionID, func(st *cart.Store) {
		st.UpdateQuantity(productID, quantity)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID string, productID int64) (cart.Summary, error) {
	return s.mutate(ctx, sessionID, func(st *cart.Store) {
		st.RemoveItem(productID)
	})
}

// Clear empties the session cart and drops its durable copy.
func (s *CartService) Clear(ctx context.Context, sessionID string) error {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := s.repo.DeleteCart(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		s.log.Error("repo delete cart error", zap.String("session_id", sessionID), zap.Error(err))
		return err
	}
	sess.store.Clear()
	s.invalidateCache(sessionID)
	return nil
}

// SetDrawer changes drawer visibility. Drawer state is never persisted.
func (s *CartService) SetDrawer(ctx context.Context, sessionID string, action DrawerAction) (cart.Summary, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return cart.Summary{}, err
	}

	st := sess.current()
	switch action {
	case DrawerOpen:
		st.Open()
	case DrawerClose:
		st.Close()
	case DrawerToggle:
		st.Toggle()
	default:
		return cart.Summary{}, fmt.Errorf("%w: %q", ErrUnknownDrawerAction, action)
	}
	return st.Summary(), nil
}

// Lines returns the current cart lines of the session.
func (s *CartService) Lines(ctx context.Context, sessionID string) ([]domain.CartLine, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.current().Lines(), nil
}

// mutate applies fn to a copy of the session cart, persists the copy and only then publishes it.
// A failed write leaves the live cart as it was.
func (s *CartService) mutate(ctx context.Context, sessionID string, fn func(*cart.Store)) (cart.Summary, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return cart.Summary{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	next := sess.store.Clone()
	fn(next)

	if err := s.repo.SaveCart(ctx, next.Snapshot(sessionID)); err != nil {
		s.log.Error("repo save cart error", zap.String("session_id", sessionID), zap.Error(err))
		return cart.Summary{}, err
	}
	s.invalidateCache(sessionID)

	sess.store = next
	return next.Summary(), nil
}

func (s *CartService) load(ctx context.Context, sessionID string) (*session, error) {
	if sess := s.lookup(sessionID); sess != nil {
		return sess, nil
	}

	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		if sess := s.lookup(sessionID); sess != nil {
			return sess, nil
		}

		stored, err := s.fetch(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		sess := &session{store: cart.NewStore(stored.Lines...), lastSeen: time.Now()}
		s.mu.Lock()
		s.sessions[sessionID] = sess
		s.mu.Unlock()
		return sess, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*session), nil
}

func (s *CartService) fetch(ctx context.Context, sessionID string) (*domain.Cart, error) {
	stored, err := s.cache.Get(ctx, sessionID)
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("cache get error", zap.String("session_id", sessionID), zap.Error(err))
	}

	stored, err = s.repo.GetCart(ctx, sessionID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return &domain.Cart{SessionID: sessionID}, nil
	}
	if err != nil {
		return nil, err
	}

	// Warmed before returning so a mutation that follows the load invalidates after this write.
	warmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Set(warmCtx, sessionID, stored); err != nil {
		s.log.Warn("cache set error", zap.String("session_id", sessionID), zap.Error(err))
	}

	return stored, nil
}

func (s *CartService) lookup(sessionID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	sess.lastSeen = time.Now()
	return sess
}

func (s *CartService) invalidateCache(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		s.log.Warn("cache invalidate error", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *CartService) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			s.evictIdle(now)
		case <-s.stopCleanup:
			return
		}
	}
}

// evictIdle forgets sessions not touched within idleTTL. Their carts reload from storage on next use.
func (s *CartService) evictIdle(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.idleTTL {
			delete(s.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		s.log.Debug("evicted idle carts", zap.Int("count", evicted))
	}
	return evicted
}
