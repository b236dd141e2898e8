package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/coa-classifier/internal/domain/shared"
	"github.com/coa-classifier/internal/platform/messaging/producers"
	"github.com/coa-classifier/internal/retro_processor/service"
)

// ApplyEventHandler handles incoming apply request messages from Kafka
type ApplyEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewApplyEventHandler creates a new handler
func NewApplyEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *ApplyEventHandler {
	return &ApplyEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *ApplyEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.RetroApplyRequest
	if err := json.Unmarshal(value, &request); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal apply request from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
				// Return original error if DLQ fails
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	// Add correlation ID to logger
	logger := h.logger
	if request.CorrelationID != "" {
		logger = h.logger.With("correlation_id", request.CorrelationID)
	}

	logger.Info("Received apply request for processing",
		"request_id", request.RequestID.String(),
		"changes", len(request.Changes),
		"affected_records", request.AffectedRecords,
	)

	if err := h.processingService.ProcessApply(ctx, &request); err != nil {
		logger.Error("Failed to process apply request",
			"request_id", request.RequestID.String(),
			"error", err,
		)
		return fmt.Errorf("processing apply request %s failed: %w", request.RequestID.String(), err)
	}

	logger.Info("Successfully processed apply request", "request_id", request.RequestID.String())
	return nil // Success, commit offset
}
