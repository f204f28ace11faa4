package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"platform-gateway-core/internal/domain"
	"platform-gateway-core/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// shopCollections are the per-shop data collections the redaction purge
// walks. Adding a collection here extends both the purge and the
// data-request snapshot.
var shopCollections = []string{"orders", "customers", "products"}

// MongoShopDataStore implements ShopDataStore over the shop-scoped
// collections. Deletes are keyed delete-many calls: removing rows that are
// already gone matches zero documents and succeeds, which keeps every purge
// step idempotent.
type MongoShopDataStore struct {
	db *mongo.Database
}

func NewMongoShopDataStore(db *mongo.Database) ports.ShopDataStore {
	return &MongoShopDataStore{db: db}
}

// CollectCustomerData gathers every stored record for one customer into a
// single document keyed by collection name.
func (s *MongoShopDataStore) CollectCustomerData(ctx context.Context, shopDomain, customerID string) (json.RawMessage, error) {
	out := make(map[string][]bson.M, len(shopCollections))

	for _, name := range shopCollections {
		filter := bson.M{"shop_domain": shopDomain, "customer_id": customerID}
		cursor, err := s.db.Collection(name).Find(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s for customer: %w", name, domain.ErrPersistence)
		}

		var docs []bson.M
		if err := cursor.All(ctx, &docs); err != nil {
			return nil, fmt.Errorf("failed to decode %s for customer: %w", name, domain.ErrPersistence)
		}
		out[name] = docs
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal customer data: %w", err)
	}
	return data, nil
}

func (s *MongoShopDataStore) DeleteCustomerData(ctx context.Context, shopDomain, customerID string) error {
	filter := bson.M{"shop_domain": shopDomain, "customer_id": customerID}
	for _, name := range shopCollections {
		if _, err := s.db.Collection(name).DeleteMany(ctx, filter); err != nil {
			return fmt.Errorf("failed to delete %s for customer: %w", name, domain.ErrPersistence)
		}
	}
	return nil
}

func (s *MongoShopDataStore) PurgeShopData(ctx context.Context, shopDomain string) error {
	filter := bson.M{"shop_domain": shopDomain}
	for _, name := range shopCollections {
		if _, err := s.db.Collection(name).DeleteMany(ctx, filter); err != nil {
			return fmt.Errorf("failed to purge %s for shop: %w", name, domain.ErrPersistence)
		}
	}
	return nil
}
