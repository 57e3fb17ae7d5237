package checkout

import (
	"context"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
)

// Session is the transient per-browser checkout state. It lives only as long as the flow.
type Session struct {
	ID       string                  `json:"id"`
	Step     Step                    `json:"step"`
	Prefill  ShippingForm            `json:"prefill"`
	Shipping *domain.ShippingDetails `json:"shipping,omitempty"`
	Intent   *domain.PaymentIntent   `json:"intent,omitempty"`
	// Error is the single message surfaced after a failed confirm.
	Error     string    `json:"error,omitempty"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionStore keeps sessions. Save must fail with ErrStaleSession when the stored version
// differs from sess.Version, and bump sess.Version on success.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Delete(ctx context.Context, id string) error
}
