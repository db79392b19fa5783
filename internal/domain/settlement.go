package domain

import "time"

type SettlementStatus string

const (
	SettlementPending    SettlementStatus = "PENDING"
	SettlementInProgress SettlementStatus = "IN_PROGRESS"
	SettlementCompleted  SettlementStatus = "COMPLETED"
	SettlementFailed     SettlementStatus = "FAILED" // requires manual reconciliation
)

// Settlement is a party leader's payout for one period, aggregated from the
// period's completed payments. NetAmount = TotalAmount − CommissionAmount
// must hold for every record.
type Settlement struct {
	SettlementID     string           `json:"id" dynamodbav:"settlement_id"`
	PartyID          string           `json:"party_id" dynamodbav:"party_id"`
	UserID           string           `json:"user_id" dynamodbav:"user_id"` // payee (party leader)
	Period           string           `json:"period" dynamodbav:"period"`   // YYYY-MM
	TotalAmount      int64            `json:"total_amount" dynamodbav:"total_amount"`
	CommissionAmount int64            `json:"commission_amount" dynamodbav:"commission_amount"`
	NetAmount        int64            `json:"net_amount" dynamodbav:"net_amount"`
	Status           SettlementStatus `json:"status" dynamodbav:"status"`
	FailureReason    string           `json:"failure_reason,omitempty" dynamodbav:"failure_reason"`
	StatementKey     string           `json:"statement_key,omitempty" dynamodbav:"statement_key"` // S3 object key
	CreatedAt        time.Time        `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time        `json:"updated" dynamodbav:"updated_at"`
}

// Consistent reports whether the amount invariant holds.
func (s *Settlement) Consistent() bool {
	return s.NetAmount == s.TotalAmount-s.CommissionAmount
}

// SettlementStatusLabel is the closed status→label mapping. Unknown values
// get a generic in-progress label rather than failing the render.
func SettlementStatusLabel(s SettlementStatus) string {
	switch s {
	case SettlementPending:
		return "정산 대기"
	case SettlementInProgress:
		return "정산 진행중"
	case SettlementCompleted:
		return "정산 완료"
	case SettlementFailed:
		return "정산 실패"
	default:
		return "처리중"
	}
}
