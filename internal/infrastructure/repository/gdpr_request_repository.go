package repository

import (
	"context"
	"fmt"
	"time"

	"platform-gateway-core/internal/domain"
	"platform-gateway-core/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoGdprRequestRepository implements GdprRequestRepository using MongoDB.
// Requests are only ever inserted and transitioned, never deleted.
type MongoGdprRequestRepository struct {
	collection *mongo.Collection
}

func NewMongoGdprRequestRepository(db *mongo.Database) ports.GdprRequestRepository {
	return &MongoGdprRequestRepository{
		collection: db.Collection("gdpr_requests"),
	}
}

func (r *MongoGdprRequestRepository) CreateRequest(ctx context.Context, req *domain.GdprRequest) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, req); err != nil {
		return fmt.Errorf("failed to create gdpr request: %w", domain.ErrPersistence)
	}
	return nil
}

func (r *MongoGdprRequestRepository) GetRequest(ctx context.Context, id string) (*domain.GdprRequest, error) {
	var req domain.GdprRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("gdpr request %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gdpr request: %w", domain.ErrPersistence)
	}
	return &req, nil
}

func (r *MongoGdprRequestRepository) UpdateStatus(ctx context.Context, id string, status domain.GdprStatus, failureReason string) error {
	set := bson.M{"status": status}
	if status == domain.GdprCompleted || status == domain.GdprFailed {
		set["processed_at"] = time.Now()
	}
	if failureReason != "" {
		set["failure_reason"] = failureReason
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update gdpr request: %w", domain.ErrPersistence)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("gdpr request %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
