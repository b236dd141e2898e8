package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/coa-classifier/internal/domain/shared"
)

// ProcessingService defines the interface for processing retroactive apply requests.
type ProcessingService interface {
	ProcessApply(ctx context.Context, request *shared.RetroApplyRequest) error
}

// ChangeValidator validates apply requests before processing
type ChangeValidator interface {
	Validate(ctx context.Context, request *shared.RetroApplyRequest) error
	CheckIdempotency(ctx context.Context, request *shared.RetroApplyRequest) (bool, error)
}

// RuleUpdater commits the classification rule changes of an apply request
type RuleUpdater interface {
	ApplyRules(ctx context.Context, tx pgx.Tx, request *shared.RetroApplyRequest) error
}

// OutboxManager handles the creation of outbox entries for processed apply requests
type OutboxManager interface {
	CreateOutboxEntry(ctx context.Context, tx pgx.Tx, request *shared.RetroApplyRequest) error
}

// HistoryRetagger propagates the new classifications to the historical archive
type HistoryRetagger interface {
	RetagHistory(ctx context.Context, request *shared.RetroApplyRequest) (int64, error)
}

// FailureRecorder handles recording failed apply requests
type FailureRecorder interface {
	RecordFailure(ctx context.Context, request *shared.RetroApplyRequest, failureReason string) error
}
