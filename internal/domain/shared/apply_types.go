package shared

// ApplyStatus defines retroactive-apply processing states
type ApplyStatus string

const (
	ApplyStatusPending    ApplyStatus = "PENDING"
	ApplyStatusProcessing ApplyStatus = "PROCESSING"
	ApplyStatusCompleted  ApplyStatus = "COMPLETED"
	ApplyStatusFailed     ApplyStatus = "FAILED"
)

// FailureReason defines retroactive-apply failure categories
type FailureReason string

const (
	FailureReasonMalformedCode      FailureReason = "MALFORMED_ACCOUNT_CODE"
	FailureReasonEmptyChangeSet     FailureReason = "EMPTY_CHANGE_SET"
	FailureReasonRuleUpdateFailed   FailureReason = "RULE_UPDATE_FAILED"
	FailureReasonHistoryRetagFailed FailureReason = "HISTORY_RETAG_FAILED"
	FailureReasonCommitFailed       FailureReason = "TRANSACTION_COMMIT_FAILED"
	FailureReasonUnknownError       FailureReason = "UNKNOWN_ERROR"
)

// OutboxStatus defines audit-event publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
