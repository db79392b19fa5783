package domain

// PendingSocialIdentity is the transient identity carried between the OAuth
// resolution gateway and the register / phone-link subflows. Request-scoped;
// never persisted.
type PendingSocialIdentity struct {
	Provider       string `json:"provider" validate:"required"`
	ProviderUserID string `json:"provider_user_id" validate:"required"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"` // masked, e.g. 010****1234
}

// Key identifies the social identity for single-flight guarding.
func (p PendingSocialIdentity) Key() string {
	return p.Provider + ":" + p.ProviderUserID
}

// CertificationReceipt is the server-verified result of a PASS identity
// certification. Consumed exactly once by the account-link call. Must never
// be logged or persisted beyond that call.
type CertificationReceipt struct {
	Phone string `json:"-"`
	CI    string `json:"-"`
}

// Valid reports whether the receipt carries both required fields. Absence of
// either is a hard verification failure.
func (r CertificationReceipt) Valid() bool {
	return r.Phone != "" && r.CI != ""
}

// CertificationDescriptor is handed to the front-end PASS widget:
// provider configuration plus the transaction identifier the widget's
// terminal callback will report back with.
type CertificationDescriptor struct {
	MerchantID    string `json:"merchant_id"`
	TransactionID string `json:"transaction_id"`
	WidgetURL     string `json:"widget_url"`
}

// LinkState is the stage of one identity-linking flow.
type LinkState string

const (
	LinkIdle                 LinkState = "idle"
	LinkCertificationStarted LinkState = "certification_started"
	LinkReceiptVerified      LinkState = "receipt_verified"
	LinkUserConfirmed        LinkState = "user_confirmed"
	LinkLinked               LinkState = "linked"
	LinkDeclined             LinkState = "declined"
	LinkFailed               LinkState = "link_failed"
)
