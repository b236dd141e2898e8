package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/coa-classifier/internal/domain/audit"
	"github.com/coa-classifier/internal/domain/shared"
)

const (
	// AuditCollectionName is the name of the apply audit trail in MongoDB
	AuditCollectionName = "apply_audit_log"
)

// AuditRepository implements the audit.Repository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Repository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new audit entry after checking for duplicates.
// Returns ErrDuplicateEntry if an entry with the same request ID exists.
func (r *AuditRepository) Create(ctx context.Context, entry *audit.Entry) error {
	collection := r.db.Collection(AuditCollectionName)

	existingEntry, err := r.GetByRequestID(ctx, entry.RequestID)
	if err != nil && !errors.Is(err, audit.ErrEntryNotFound{}) {
		r.logger.Error("Failed to check for existing audit entry",
			"request_id", entry.RequestID.String(),
			"error", err)
		return fmt.Errorf("failed to check for existing audit entry: %w", err)
	}

	if existingEntry != nil {
		return audit.ErrDuplicateEntry{RequestID: entry.RequestID}
	}

	_, err = collection.InsertOne(ctx, entry)
	if err != nil {
		r.logger.Error("Failed to create audit entry",
			"request_id", entry.RequestID.String(),
			"error", err)
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	return nil
}

// GetByRequestID retrieves an audit entry by its apply-request ID.
// Returns ErrEntryNotFound if no entry exists for the given request.
func (r *AuditRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*audit.Entry, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"request_id": requestID}
	var entry audit.Entry
	err := collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, audit.ErrEntryNotFound{RequestID: requestID}
		}
		r.logger.Error("Failed to get audit entry",
			"request_id", requestID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get audit entry: %w", err)
	}

	return &entry, nil
}

// UpdateStatus updates the entry's status, failure reason, and processed timestamp.
// Returns ErrEntryNotFound if the entry doesn't exist.
func (r *AuditRepository) UpdateStatus(ctx context.Context, requestID uuid.UUID, status shared.ApplyStatus, reason string) error {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"request_id": requestID}
	update := bson.M{
		"$set": bson.M{
			"status":         status,
			"failure_reason": reason,
			"processed_at":   time.Now(),
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to update audit entry status",
			"request_id", requestID.String(),
			"status", string(status),
			"error", err)
		return fmt.Errorf("failed to update audit entry status: %w", err)
	}

	if result.MatchedCount == 0 {
		return audit.ErrEntryNotFound{RequestID: requestID}
	}

	return nil
}
