package domain

import "time"

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// MaxPaymentAttempts is the hard retry ceiling. At attempt 4 the retry
// affordance is withdrawn and replaced by a manual-support contact.
const MaxPaymentAttempts = 4

// Payment is one period's share charge for a party member.
// AttemptNumber is authoritative on the server only; it increases solely on
// a failed attempt and is never derived client-side.
type Payment struct {
	PaymentID     string        `json:"id" dynamodbav:"payment_id"`
	PartyID       string        `json:"party_id" dynamodbav:"party_id"`
	UserID        string        `json:"user_id" dynamodbav:"user_id"`
	Period        string        `json:"period" dynamodbav:"period"` // YYYY-MM
	Amount        int64         `json:"amount" dynamodbav:"amount"` // KRW
	Status        PaymentStatus `json:"status" dynamodbav:"status"`
	AttemptNumber *int          `json:"attempt_number,omitempty" dynamodbav:"attempt_number"` // nil = first attempt
	NextRetryDate *time.Time    `json:"next_retry_date,omitempty" dynamodbav:"next_retry_date"`
	CanRetry      *bool         `json:"can_retry,omitempty" dynamodbav:"can_retry"`
	FailureReason string        `json:"failure_reason,omitempty" dynamodbav:"failure_reason"`
	CreatedAt     time.Time     `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time     `json:"updated" dynamodbav:"updated_at"`
}

// RetryEligible reports whether the retry action is offered for this payment.
// The server-declared CanRetry flag wins when present; otherwise an unset
// AttemptNumber counts as the first attempt and the ceiling applies.
func (p *Payment) RetryEligible() bool {
	if p.Status != PaymentFailed {
		return false
	}
	if p.CanRetry != nil {
		return *p.CanRetry
	}
	if p.AttemptNumber == nil {
		return true
	}
	return *p.AttemptNumber < MaxPaymentAttempts
}

// PaymentStatusLabel is the closed status→label mapping. Unknown values get
// a generic in-progress label rather than failing the render.
func PaymentStatusLabel(s PaymentStatus) string {
	switch s {
	case PaymentPending:
		return "결제 대기"
	case PaymentCompleted:
		return "결제 완료"
	case PaymentFailed:
		return "결제 실패"
	default:
		return "처리중"
	}
}
