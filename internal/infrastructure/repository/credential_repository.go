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

// MongoCredentialRepository implements CredentialRepository using MongoDB.
// TODO: encrypt tokens at rest once a key-management story exists.
type MongoCredentialRepository struct {
	collection *mongo.Collection
}

func NewMongoCredentialRepository(db *mongo.Database) ports.CredentialRepository {
	return &MongoCredentialRepository{
		collection: db.Collection("shop_credentials"),
	}
}

// SaveCredential saves or updates a credential, keyed on provider+external id.
func (r *MongoCredentialRepository) SaveCredential(ctx context.Context, cred *domain.ShopCredential) error {
	now := time.Now()
	cred.UpdatedAt = now
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}

	filter := bson.M{"provider": cred.Provider, "external_id": cred.ExternalID}
	update := bson.M{
		"$set": bson.M{
			"access_token":     cred.AccessToken,
			"refresh_token":    cred.RefreshToken,
			"token_expires_at": cred.TokenExpiresAt,
			"scopes":           cred.Scopes,
			"status":           cred.Status,
			"updated_at":       cred.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"provider":    cred.Provider,
			"external_id": cred.ExternalID,
			"created_at":  cred.CreatedAt,
		},
	}

	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save credential: %w", domain.ErrPersistence)
	}
	return nil
}

func (r *MongoCredentialRepository) GetCredential(ctx context.Context, provider, externalID string) (*domain.ShopCredential, error) {
	var cred domain.ShopCredential
	filter := bson.M{"provider": provider, "external_id": externalID}

	err := r.collection.FindOne(ctx, filter).Decode(&cred)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("credential for %s/%s: %w", provider, externalID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", domain.ErrPersistence)
	}

	return &cred, nil
}

func (r *MongoCredentialRepository) MarkUninstalled(ctx context.Context, provider, externalID string) error {
	filter := bson.M{"provider": provider, "external_id": externalID}
	update := bson.M{"$set": bson.M{
		"status":     domain.CredentialUninstalled,
		"updated_at": time.Now(),
	}}

	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to mark credential uninstalled: %w", domain.ErrPersistence)
	}
	return nil
}

// Redact nulls the stored secrets and sets status=redacted. Matching zero
// documents is not an error: redacting an unknown or already-redacted
// credential is a no-op so the purge stays retryable.
func (r *MongoCredentialRepository) Redact(ctx context.Context, provider, externalID string) error {
	filter := bson.M{"provider": provider, "external_id": externalID}
	update := bson.M{"$set": bson.M{
		"access_token":  "",
		"refresh_token": "",
		"status":        domain.CredentialRedacted,
		"updated_at":    time.Now(),
	}}

	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to redact credential: %w", domain.ErrPersistence)
	}
	return nil
}
