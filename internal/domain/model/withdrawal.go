package model

import "time"

// WithdrawalStatus describes the withdrawal authorization lifecycle.
type WithdrawalStatus string

const (
	WithdrawalDraft             WithdrawalStatus = "draft"
	WithdrawalAwaitingSignature WithdrawalStatus = "awaiting_signature"
	WithdrawalSignatureInFlight WithdrawalStatus = "signature_in_progress"
	WithdrawalSigned            WithdrawalStatus = "signed"
	WithdrawalSubmitted         WithdrawalStatus = "submitted"
	WithdrawalCompleted         WithdrawalStatus = "completed"
	WithdrawalFailed            WithdrawalStatus = "failed"
	WithdrawalCancelled         WithdrawalStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s WithdrawalStatus) Terminal() bool {
	switch s {
	case WithdrawalCompleted, WithdrawalFailed, WithdrawalCancelled:
		return true
	}
	return false
}

// BankCard is the destination account snapshot taken at request time.
type BankCard struct {
	BankName string
	Account  string
}

// WithdrawalRequest ties a user's withdrawal to a ledger reservation and,
// once signing is required, to a SigningRecord.
type WithdrawalRequest struct {
	ID              int64
	UserID          int64
	PoolID          int64
	Amount          int64
	Card            BankCard
	CardFingerprint string
	Status          WithdrawalStatus
	ReservationID   *int64
	SigningRecordID *int64
	FailureReason   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
