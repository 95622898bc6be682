package model

import "time"

// PointKind separates withdrawable cash points from gift points.
type PointKind string

const (
	PointKindCash PointKind = "cash"
	PointKindGift PointKind = "gift"
)

// Valid reports whether the kind is one of the known point kinds.
func (k PointKind) Valid() bool {
	return k == PointKindCash || k == PointKindGift
}

// TransactionKind describes the ledger operation an entry records.
type TransactionKind string

const (
	TransactionGrant   TransactionKind = "grant"
	TransactionReserve TransactionKind = "reserve"
	TransactionRelease TransactionKind = "release"
	TransactionCommit  TransactionKind = "commit"
	TransactionExpire  TransactionKind = "expire"
)

// ReservationStatus is the lifecycle of a provisional hold on a pool.
type ReservationStatus string

const (
	ReservationOpen      ReservationStatus = "open"
	ReservationCommitted ReservationStatus = "committed"
	ReservationReleased  ReservationStatus = "released"
)

// PointPool is a balance bucket scoped to an owner, a tag and a kind.
type PointPool struct {
	ID        int64
	OwnerID   int64
	Kind      PointKind
	Tag       string
	CreatedAt time.Time
}

// PointGrant is a single issuance of points with its own expiry.
// Remaining tracks the unconsumed, unexpired part of the grant.
type PointGrant struct {
	ID        int64
	PoolID    int64
	Amount    int64
	Remaining int64
	Reason    string
	Reference string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// PointTransaction is an append-only ledger entry. Delta is signed: the sum
// of all deltas of a pool equals its available balance.
type PointTransaction struct {
	ID        int64
	PoolID    int64
	Kind      TransactionKind
	Delta     int64
	Reason    string
	Reference string
	CreatedAt time.Time
}

// Reservation is a hold against available balance pending commit or release.
type Reservation struct {
	ID        int64
	PoolID    int64
	Amount    int64
	Status    ReservationStatus
	Reference string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BalanceDetail aggregates a pool's balance figures.
// Balance counts unexpired grant remainders, Reserved counts open holds,
// Available is what new reservations may claim.
type BalanceDetail struct {
	Balance   int64
	Reserved  int64
	Available int64
}
