package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// carts untouched for this long are dropped by the TTL index
const cartRetention = 90 * 24 * time.Hour

type mongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) CartRepository {
	return &mongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *mongoRepository) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	var cart domain.Cart

	err := m.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

// SaveCart replaces the stored lines of the session cart, creating the document if needed.
func (m *mongoRepository) SaveCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now().UTC()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	lines := cart.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}

	filter := bson.M{"session_id": cart.SessionID}
	update := bson.M{
		"$set": bson.M{
			"lines":      lines,
			"updated_at": cart.UpdatedAt,
		},
		"$setOnInsert": bson.M{"created_at": cart.CreatedAt},
	}

	_, err := m.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}

	return nil
}

func (m *mongoRepository) DeleteCart(ctx context.Context, sessionID string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (m *mongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(cartRetention.Seconds())),
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
