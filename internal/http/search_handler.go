package http

import (
	"context"
	"net/http"

	"github.com/fjod/go_storefront/internal/catalog"
	"go.uber.org/zap"
)

type ProductSearcher interface {
	Query(ctx context.Context, key, term string) ([]catalog.Hit, error)
}

type SearchHandler struct {
	searcher ProductSearcher
	log      *zap.Logger
}

func NewSearchHandler(searcher ProductSearcher, log *zap.Logger) *SearchHandler {
	return &SearchHandler{searcher: searcher, log: log}
}

type SearchResponseDTO struct {
	Query   string        `json:"query"`
	Results []catalog.Hit `json:"results"`
}

// GET /api/v1/search?q=
// A newer search from the same session supersedes this one and answers 409.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")

	hits, err := h.searcher.Query(r.Context(), getSessionID(r.Context()), term)
	if err != nil {
		handleError(w, h.log, err)
		return
	}
	if hits == nil {
		hits = []catalog.Hit{}
	}
	respondJSON(w, http.StatusOK, SearchResponseDTO{Query: term, Results: hits})
}
