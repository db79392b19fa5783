package dynamo

// DynamoDB attribute names used in update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldEnable           = "enable"
	fieldReaded           = "readed"
	fieldRefreshToken     = "refresh_token"
	fieldRefreshExpiresAt = "refresh_expires_at"
	fieldStep             = "step"
	fieldStatus           = "status"
	fieldLastError        = "last_error"
	fieldConsumed         = "consumed"
	fieldAttemptNumber    = "attempt_number"
	fieldNextRetryDate    = "next_retry_date"
	fieldCanRetry         = "can_retry"
	fieldFailureReason    = "failure_reason"
	fieldStatementKey     = "statement_key"
)
