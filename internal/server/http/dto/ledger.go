package dto

import "time"

// GrantRequest credits points to an owner's pool.
type GrantRequest struct {
	OwnerID   int64      `json:"owner_id" binding:"required"`
	Kind      string     `json:"kind" binding:"required"`
	Tag       string     `json:"tag"`
	Amount    int64      `json:"amount" binding:"required"`
	Reason    string     `json:"reason"`
	Reference string     `json:"reference"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// TransactionResponse is one ledger entry.
type TransactionResponse struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Delta     int64     `json:"delta"`
	Reason    string    `json:"reason,omitempty"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GrantResponse reports the recorded transaction; created is false when the
// reference was seen before.
type GrantResponse struct {
	Transaction TransactionResponse `json:"transaction"`
	Created     bool                `json:"created"`
}

// BalanceQuery selects a pool.
type BalanceQuery struct {
	OwnerID int64  `form:"owner_id" binding:"required"`
	Kind    string `form:"kind" binding:"required"`
	Tag     string `form:"tag"`
}

// BalanceResponse reports a pool's figures.
type BalanceResponse struct {
	Balance   int64 `json:"balance"`
	Reserved  int64 `json:"reserved"`
	Available int64 `json:"available"`
}

// ReserveRequest places a hold on available balance.
type ReserveRequest struct {
	OwnerID   int64  `json:"owner_id" binding:"required"`
	Kind      string `json:"kind" binding:"required"`
	Tag       string `json:"tag"`
	Amount    int64  `json:"amount" binding:"required"`
	Reference string `json:"reference"`
}

// ReservationResponse reports a hold; created is false on replay.
type ReservationResponse struct {
	ID        int64  `json:"id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	Reference string `json:"reference,omitempty"`
	Created   bool   `json:"created"`
}
