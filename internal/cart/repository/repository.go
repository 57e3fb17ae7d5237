package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_storefront/internal/domain"
)

var ErrCartNotFound = errors.New("cart not found")

// CartRepository is the durable home of session carts. Only the line list is stored.
type CartRepository interface {
	GetCart(ctx context.Context, sessionID string) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, sessionID string) error
}
