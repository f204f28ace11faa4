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

// MongoWebhookEventRepository implements WebhookEventRepository using MongoDB.
// The collection carries a unique index on webhook_id; concurrent deliveries
// of the same id race safely because the upsert resolves at the store.
type MongoWebhookEventRepository struct {
	collection *mongo.Collection
}

func NewMongoWebhookEventRepository(db *mongo.Database) ports.WebhookEventRepository {
	return &MongoWebhookEventRepository{
		collection: db.Collection("webhook_events"),
	}
}

// EnsureIndexes creates the unique keys the idempotency contracts rely on.
// Called once at startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("webhook_events").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "webhook_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create webhook_events index: %w", err)
	}

	_, err = db.Collection("webhook_registrations").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "shop_domain", Value: 1}, {Key: "topic", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create webhook_registrations index: %w", err)
	}
	return nil
}

// UpsertEvent inserts the event keyed on webhook_id. Payload, topic, shop
// and the signature verdict are written only on insert, so a retry with a
// different verdict can never overwrite the original record.
func (r *MongoWebhookEventRepository) UpsertEvent(ctx context.Context, event *domain.WebhookEvent) (bool, error) {
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}

	filter := bson.M{"webhook_id": event.WebhookID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"webhook_id":      event.WebhookID,
			"shop_domain":     event.ShopDomain,
			"topic":           event.Topic,
			"payload":         event.Payload,
			"signature_valid": event.SignatureValid,
			"received_at":     event.ReceivedAt,
			"processed":       false,
		},
		"$set": bson.M{
			"last_seen_at": time.Now(),
		},
	}

	opts := options.Update().SetUpsert(true)
	res, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return false, fmt.Errorf("failed to upsert webhook event: %w", domain.ErrPersistence)
	}

	return res.UpsertedCount > 0, nil
}

func (r *MongoWebhookEventRepository) MarkProcessed(ctx context.Context, webhookID string, note string) error {
	now := time.Now()
	filter := bson.M{"webhook_id": webhookID}
	update := bson.M{"$set": bson.M{
		"processed":       true,
		"processing_note": note,
		"processed_at":    now,
	}}

	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to mark webhook event processed: %w", domain.ErrPersistence)
	}
	return nil
}

func (r *MongoWebhookEventRepository) GetEvent(ctx context.Context, webhookID string) (*domain.WebhookEvent, error) {
	var event domain.WebhookEvent
	err := r.collection.FindOne(ctx, bson.M{"webhook_id": webhookID}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("webhook event %s: %w", webhookID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook event: %w", domain.ErrPersistence)
	}
	return &event, nil
}
