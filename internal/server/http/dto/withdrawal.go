package dto

import "time"

// CreateWithdrawalRequest starts a withdrawal. The identity snapshot is
// required for the e-contract and is stored encrypted.
type CreateWithdrawalRequest struct {
	UserID      int64  `json:"user_id" binding:"required"`
	Amount      int64  `json:"amount" binding:"required"`
	BankName    string `json:"bank_name" binding:"required"`
	BankAccount string `json:"bank_account" binding:"required"`
	RealName    string `json:"real_name" binding:"required"`
	IDNumber    string `json:"id_number" binding:"required"`
	Phone       string `json:"phone" binding:"required"`
}

// WithdrawalResponse reports a withdrawal. Only the tail of the account
// number is ever echoed back.
type WithdrawalResponse struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	BankName      string    `json:"bank_name"`
	AccountTail   string    `json:"account_tail"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RollbackRequest carries the operator's reason for a forced failure.
type RollbackRequest struct {
	Reason string `json:"reason"`
}
