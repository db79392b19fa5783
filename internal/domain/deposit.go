package domain

import "time"

type DepositStatus string

const (
	DepositPaid      DepositStatus = "PAID"      // escrowed
	DepositRefunded  DepositStatus = "REFUNDED"  // terminal: orderly party exit
	DepositForfeited DepositStatus = "FORFEITED" // terminal: disorderly post-start exit
)

// Deposit is a party member's escrowed security deposit. PAID is the only
// non-terminal state; the terminal outcomes are driven by external
// party-membership events and only consumed here.
type Deposit struct {
	DepositID string        `json:"id" dynamodbav:"deposit_id"`
	PartyID   string        `json:"party_id" dynamodbav:"party_id"`
	UserID    string        `json:"user_id" dynamodbav:"user_id"`
	Amount    int64         `json:"amount" dynamodbav:"amount"` // KRW
	Status    DepositStatus `json:"status" dynamodbav:"status"`
	CreatedAt time.Time     `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time     `json:"updated" dynamodbav:"updated_at"`
}

// TerminalDepositStatus reports whether s is a valid terminal outcome.
func TerminalDepositStatus(s DepositStatus) bool {
	return s == DepositRefunded || s == DepositForfeited
}

// DepositStatusLabel is the closed status→label mapping. Unknown values get
// a generic in-progress label rather than failing the render.
func DepositStatusLabel(s DepositStatus) string {
	switch s {
	case DepositPaid:
		return "보증금 예치중"
	case DepositRefunded:
		return "보증금 환급 완료"
	case DepositForfeited:
		return "보증금 몰수"
	default:
		return "처리중"
	}
}
