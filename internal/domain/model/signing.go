package model

import "time"

// SigningStatus describes the e-contract signing lifecycle.
type SigningStatus string

const (
	SigningPending SigningStatus = "pending"
	SigningSent    SigningStatus = "sent"
	SigningSigned  SigningStatus = "signed"
	SigningFailed  SigningStatus = "failed"
	SigningExpired SigningStatus = "expired"
)

// Terminal reports whether the record can no longer transition.
func (s SigningStatus) Terminal() bool {
	switch s {
	case SigningSigned, SigningFailed, SigningExpired:
		return true
	}
	return false
}

// PIISnapshot is the consented identity snapshot captured when a signing
// record is created. It is stored encrypted and must never be logged.
type PIISnapshot struct {
	RealName    string
	IDNumber    string
	Phone       string
	BankName    string
	BankAccount string
}

// SigningRecord is one signing attempt against the provider. The correlator
// is embedded in the outbound request and echoed back in the webhook; it is
// the only key callbacks are routed by. The PII snapshot is immutable: a
// re-sign requires a new record.
type SigningRecord struct {
	ID               int64
	Correlator       string
	UserID           int64
	PII              PIISnapshot
	CardFingerprint  string
	TemplateID       string
	ProviderOrderRef string
	Status           SigningStatus
	SignedAt         *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
