package domain

import (
	"regexp"
	"time"
)

// BankVerificationStep is one stage of the micro-deposit ownership flow.
// The flow is strictly forward: input → processing → verify → complete.
type BankVerificationStep string

const (
	BankStepInput      BankVerificationStep = "input"
	BankStepProcessing BankVerificationStep = "processing"
	BankStepVerify     BankVerificationStep = "verify"
	BankStepComplete   BankVerificationStep = "complete"
)

// Next returns the only step reachable from s, or "" for the terminal step.
func (s BankVerificationStep) Next() BankVerificationStep {
	switch s {
	case BankStepInput:
		return BankStepProcessing
	case BankStepProcessing:
		return BankStepVerify
	case BankStepVerify:
		return BankStepComplete
	default:
		return ""
	}
}

// BankVerification is one user's micro-deposit verification session.
// PK: user_id. Re-entering the flow always resets the record to the input
// step, whatever its prior value; partial progress is lost on purpose so a
// user can never get stuck mid-flow.
type BankVerification struct {
	UserID           string               `json:"user_id" dynamodbav:"user_id"`
	Step             BankVerificationStep `json:"step" dynamodbav:"step"`
	BankCode         string               `json:"bank_code,omitempty" dynamodbav:"bank_code"`
	AccountNumber    string               `json:"account_number,omitempty" dynamodbav:"account_number"`
	DepositReference string               `json:"-" dynamodbav:"deposit_reference"`
	Consumed         bool                 `json:"-" dynamodbav:"consumed"`
	LastError        string               `json:"last_error,omitempty" dynamodbav:"last_error"`
	ExpiresAt        int64                `json:"-" dynamodbav:"expires_at"` // TTL (Unix seconds)
	UpdatedAt        time.Time            `json:"updated" dynamodbav:"updated_at"`
}

// BankAccount is a verified payout destination for settlements.
type BankAccount struct {
	UserID        string    `json:"user_id" dynamodbav:"user_id"`
	BankCode      string    `json:"bank_code" dynamodbav:"bank_code"`
	AccountNumber string    `json:"account_number" dynamodbav:"account_number"`
	Verified      bool      `json:"verified" dynamodbav:"verified"`
	VerifiedAt    time.Time `json:"verified_at" dynamodbav:"verified_at"`
}

var (
	bankCodeRe      = regexp.MustCompile(`^[0-9]{3}$`)
	accountNumberRe = regexp.MustCompile(`^[0-9]{10,14}$`)
)

// ValidBankDetails performs the local, format-only validation of the input stage.
func ValidBankDetails(bankCode, accountNumber string) bool {
	return bankCodeRe.MatchString(bankCode) && accountNumberRe.MatchString(accountNumber)
}
