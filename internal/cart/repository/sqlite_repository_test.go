package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSQLite(t *testing.T) *SQLiteRepository {
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "carts.db"))
	require.NoError(t, err)

	require.NoError(t, repo.RunMigrations("./migrations/sqlite"))
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func sampleLines() []domain.CartLine {
	return []domain.CartLine{
		{
			Product:       domain.Product{ID: 1, Name: "Camiseta", Slug: "camiseta", BasePrice: 10000, MinWholesaleQty: 5},
			Quantity:      6,
			SelectedSize:  "M",
			SelectedColor: "negro",
		},
		{
			Product:  domain.Product{ID: 2, Name: "Gorra", Slug: "gorra", BasePrice: 20000, MinWholesaleQty: 1},
			Quantity: 2,
		},
	}
}

func TestSQLite_GetCart_NotFound(t *testing.T) {
	repo := setupSQLite(t)

	cart, err := repo.GetCart(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestSQLite_SaveAndGet(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()

	err := repo.SaveCart(ctx, &domain.Cart{SessionID: "s1", Lines: sampleLines()})
	require.NoError(t, err)

	cart, err := repo.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", cart.SessionID)
	assert.Equal(t, sampleLines(), cart.Lines)
	assert.False(t, cart.CreatedAt.IsZero())
}

func TestSQLite_SaveOverwritesLines(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveCart(ctx, &domain.Cart{SessionID: "s1", Lines: sampleLines()}))
	require.NoError(t, repo.SaveCart(ctx, &domain.Cart{SessionID: "s1"}))

	cart, err := repo.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
}

func TestSQLite_DeleteCart(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveCart(ctx, &domain.Cart{SessionID: "s1", Lines: sampleLines()}))
	require.NoError(t, repo.DeleteCart(ctx, "s1"))

	_, err := repo.GetCart(ctx, "s1")
	assert.ErrorIs(t, err, ErrCartNotFound)

	assert.ErrorIs(t, repo.DeleteCart(ctx, "s1"), ErrCartNotFound)
}
