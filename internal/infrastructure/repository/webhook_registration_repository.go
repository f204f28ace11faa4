package repository

import (
	"context"
	"fmt"
	"time"

	"platform-gateway-core/internal/domain"
	"platform-gateway-core/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoWebhookRegistrationRepository implements WebhookRegistrationRepository
// using MongoDB. Registrations are keyed shop+topic; re-registering a topic
// after a failed install attempt overwrites the earlier record.
type MongoWebhookRegistrationRepository struct {
	collection *mongo.Collection
}

func NewMongoWebhookRegistrationRepository(db *mongo.Database) ports.WebhookRegistrationRepository {
	return &MongoWebhookRegistrationRepository{
		collection: db.Collection("webhook_registrations"),
	}
}

func (r *MongoWebhookRegistrationRepository) SaveRegistration(ctx context.Context, reg *domain.WebhookRegistration) error {
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now()
	}

	filter := bson.M{"shop_domain": reg.ShopDomain, "topic": reg.Topic}
	update := bson.M{
		"$set": bson.M{
			"address":     reg.Address,
			"platform_id": reg.PlatformID,
		},
		"$setOnInsert": bson.M{
			"shop_domain": reg.ShopDomain,
			"topic":       reg.Topic,
			"created_at":  reg.CreatedAt,
		},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save webhook registration: %w", domain.ErrPersistence)
	}
	return nil
}

func (r *MongoWebhookRegistrationRepository) ListRegistrations(ctx context.Context, shopDomain string) ([]*domain.WebhookRegistration, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"shop_domain": shopDomain})
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook registrations: %w", domain.ErrPersistence)
	}
	defer cursor.Close(ctx)

	var regs []*domain.WebhookRegistration
	if err := cursor.All(ctx, &regs); err != nil {
		return nil, fmt.Errorf("failed to decode webhook registrations: %w", domain.ErrPersistence)
	}
	return regs, nil
}

// DeleteRegistrations removes every registration for the shop. Zero matches
// is not an error, so uninstall and redaction cleanup stay retryable.
func (r *MongoWebhookRegistrationRepository) DeleteRegistrations(ctx context.Context, shopDomain string) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{"shop_domain": shopDomain}); err != nil {
		return fmt.Errorf("failed to delete webhook registrations: %w", domain.ErrPersistence)
	}
	return nil
}
