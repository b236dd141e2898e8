// Package mongo provides MongoDB implementations of the historical-archive
// repositories used by retroactive impact analysis and apply processing.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/coa-classifier/internal/domain/ledger"
)

const (
	// HistoryCollectionName is the name of the historical row archive in MongoDB
	HistoryCollectionName = "historical_rows"
)

// HistoryRepository implements the ledger.HistoryRepository interface for MongoDB
type HistoryRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewHistoryRepository creates a new MongoDB historical row repository
func NewHistoryRepository(logger *slog.Logger, db *mongo.Database) ledger.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// GetByAccountCode retrieves every archived row carrying the given account
// code, across all reports. Results are sorted by report then row ID so
// impact analysis sees a stable sequence.
func (r *HistoryRepository) GetByAccountCode(ctx context.Context, code string) ([]ledger.HistoricalRow, error) {
	if code == "" {
		return nil, errors.New("account code cannot be empty")
	}

	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{"code": code}
	opts := options.Find().
		SetSort(bson.D{{Key: "report_id", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get historical rows",
			"code", code,
			"error", err)
		return nil, fmt.Errorf("failed to get historical rows: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []ledger.HistoricalRow
	if err := cursor.All(ctx, &rows); err != nil {
		r.logger.Error("Failed to decode historical rows",
			"code", code,
			"error", err)
		return nil, fmt.Errorf("failed to decode historical rows: %w", err)
	}

	return rows, nil
}

// UpdateClassificationByCode re-tags every archived row carrying the given
// account code with the new classification, returning the number of rows
// modified. Called only after an apply request has been confirmed.
func (r *HistoryRepository) UpdateClassificationByCode(ctx context.Context, code string, classification ledger.Classification) (int64, error) {
	if code == "" {
		return 0, errors.New("account code cannot be empty")
	}

	collection := r.db.Collection(HistoryCollectionName)

	filter := bson.M{"code": code}
	update := bson.M{
		"$set": bson.M{
			"classification": classification,
		},
	}

	result, err := collection.UpdateMany(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to update historical row classifications",
			"code", code,
			"error", err)
		return 0, fmt.Errorf("failed to update historical row classifications: %w", err)
	}

	return result.ModifiedCount, nil
}
