// Package search runs search-as-you-type queries. A newer query from the same caller cancels
// the older one, and results of a superseded query are never returned.
package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fjod/go_storefront/internal/catalog"
)

const MinTermLength = 2

var ErrSuperseded = errors.New("query superseded by a newer one")

type Backend interface {
	Search(ctx context.Context, term string, limit int) ([]catalog.Hit, error)
}

type inflight struct {
	gen    uint64
	cancel context.CancelFunc
}

type Searcher struct {
	backend  Backend
	debounce time.Duration
	limit    int

	mu      sync.Mutex
	gen     uint64
	current map[string]inflight
}

func NewSearcher(backend Backend, debounce time.Duration, limit int) *Searcher {
	return &Searcher{
		backend:  backend,
		debounce: debounce,
		limit:    limit,
		current:  make(map[string]inflight),
	}
}

// Query searches for term on behalf of key (usually a session id). It waits the debounce delay
// first; a newer Query with the same key during the wait or the backend call cancels this one.
func (s *Searcher) Query(ctx context.Context, key, term string) ([]catalog.Hit, error) {
	qctx, gen := s.begin(ctx, key)
	defer s.end(key, gen)

	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < MinTermLength {
		return []catalog.Hit{}, nil
	}

	timer := time.NewTimer(s.debounce)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-qctx.Done():
		return nil, s.abortErr(ctx)
	}

	hits, err := s.backend.Search(qctx, term, s.limit)
	if !s.isCurrent(key, gen) {
		return nil, ErrSuperseded
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return hits, nil
}

// begin registers a new generation for key and cancels the one it replaces.
func (s *Searcher) begin(ctx context.Context, key string) (context.Context, uint64) {
	qctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.current[key]; ok {
		prev.cancel()
	}
	s.gen++
	s.current[key] = inflight{gen: s.gen, cancel: cancel}
	return qctx, s.gen
}

func (s *Searcher) end(key string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if q, ok := s.current[key]; ok && q.gen == gen {
		q.cancel()
		delete(s.current, key)
	}
}

func (s *Searcher) isCurrent(key string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.current[key]
	return ok && q.gen == gen
}

func (s *Searcher) abortErr(parent context.Context) error {
	if err := parent.Err(); err != nil {
		return err
	}
	return ErrSuperseded
}
