package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/opendigger/pointgate/internal/domain/errors"
	"github.com/opendigger/pointgate/internal/domain/model"
	"github.com/opendigger/pointgate/internal/domain/repository"
	"github.com/opendigger/pointgate/internal/pkg/crypt"
)

// Pool is the subset of pgxpool.Pool the storage uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   Pool
	cipher *crypt.Cipher
	logger *slog.Logger
}

type ledgerRepository struct {
	storage *Storage
}

type withdrawalRepository struct {
	storage *Storage
}

type signingRepository struct {
	storage *Storage
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (Pool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, cipher *crypt.Cipher, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, cipher: cipher, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Ledger() repository.LedgerRepository {
	return &ledgerRepository{storage: s}
}

func (s *Storage) Withdrawals() repository.WithdrawalRepository {
	return &withdrawalRepository{storage: s}
}

func (s *Storage) Signings() repository.SigningRepository {
	return &signingRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS point_pools (
            id BIGSERIAL PRIMARY KEY,
            owner_id BIGINT NOT NULL,
            kind TEXT NOT NULL,
            tag TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (owner_id, kind, tag)
        )`,
		`CREATE TABLE IF NOT EXISTS point_grants (
            id BIGSERIAL PRIMARY KEY,
            pool_id BIGINT NOT NULL REFERENCES point_pools(id),
            amount BIGINT NOT NULL,
            remaining BIGINT NOT NULL,
            reason TEXT NOT NULL DEFAULT '',
            reference TEXT NOT NULL DEFAULT '',
            expires_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS point_transactions (
            id BIGSERIAL PRIMARY KEY,
            pool_id BIGINT NOT NULL REFERENCES point_pools(id),
            kind TEXT NOT NULL,
            delta BIGINT NOT NULL,
            reason TEXT NOT NULL DEFAULT '',
            reference TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS point_reservations (
            id BIGSERIAL PRIMARY KEY,
            pool_id BIGINT NOT NULL REFERENCES point_pools(id),
            amount BIGINT NOT NULL,
            status TEXT NOT NULL,
            reference TEXT NOT NULL UNIQUE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS withdrawal_requests (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL,
            pool_id BIGINT NOT NULL REFERENCES point_pools(id),
            amount BIGINT NOT NULL,
            bank_name TEXT NOT NULL,
            bank_account TEXT NOT NULL,
            card_fingerprint TEXT NOT NULL,
            status TEXT NOT NULL,
            reservation_id BIGINT,
            signing_record_id BIGINT,
            failure_reason TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS signing_records (
            id BIGSERIAL PRIMARY KEY,
            correlator TEXT NOT NULL UNIQUE,
            user_id BIGINT NOT NULL,
            real_name TEXT NOT NULL,
            id_number TEXT NOT NULL,
            phone TEXT NOT NULL,
            bank_name TEXT NOT NULL,
            bank_account TEXT NOT NULL,
            card_fingerprint TEXT NOT NULL,
            template_id TEXT NOT NULL,
            provider_order_ref TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL,
            signed_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_point_transactions_ref
            ON point_transactions(pool_id, kind, reference) WHERE reference <> ''`,
		`CREATE INDEX IF NOT EXISTS idx_point_grants_expiry
            ON point_grants(expires_at) WHERE remaining > 0`,
		`CREATE INDEX IF NOT EXISTS idx_withdrawals_user
            ON withdrawal_requests(user_id, created_at DESC)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_withdrawals_one_active
            ON withdrawal_requests(user_id)
            WHERE status NOT IN ('completed', 'failed', 'cancelled')`,
		`CREATE INDEX IF NOT EXISTS idx_signing_reuse
            ON signing_records(user_id, card_fingerprint, created_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// lockPool serializes mutations for a pool within the transaction.
func lockPool(ctx context.Context, tx pgx.Tx, poolID int64) error {
	var id int64
	err := tx.QueryRow(ctx, `SELECT id FROM point_pools WHERE id=$1 FOR UPDATE`, poolID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainErrors.ErrNotFound
		}
		return err
	}
	return nil
}

func poolBalances(ctx context.Context, tx pgx.Tx, poolID int64) (balance, reserved int64, err error) {
	const query = `SELECT
        COALESCE((SELECT SUM(remaining) FROM point_grants WHERE pool_id=$1 AND remaining > 0), 0),
        COALESCE((SELECT SUM(amount) FROM point_reservations WHERE pool_id=$1 AND status='open'), 0)`
	err = tx.QueryRow(ctx, query, poolID).Scan(&balance, &reserved)
	return balance, reserved, err
}

// --- LedgerRepository implementation ---

func (r *ledgerRepository) GetOrCreatePool(ctx context.Context, ownerID int64, kind model.PointKind, tag string) (*model.PointPool, error) {
	const query = `INSERT INTO point_pools (owner_id, kind, tag) VALUES ($1, $2, $3)
                   ON CONFLICT (owner_id, kind, tag) DO UPDATE SET owner_id = EXCLUDED.owner_id
                   RETURNING id, created_at`
	pool := &model.PointPool{OwnerID: ownerID, Kind: kind, Tag: tag}
	err := r.storage.pool.QueryRow(ctx, query, ownerID, string(kind), tag).Scan(&pool.ID, &pool.CreatedAt)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

func (r *ledgerRepository) GetPool(ctx context.Context, poolID int64) (*model.PointPool, error) {
	const query = `SELECT id, owner_id, kind, tag, created_at FROM point_pools WHERE id=$1`
	var pool model.PointPool
	err := r.storage.pool.QueryRow(ctx, query, poolID).Scan(&pool.ID, &pool.OwnerID, &pool.Kind, &pool.Tag, &pool.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &pool, nil
}

func (r *ledgerRepository) Grant(ctx context.Context, poolID, amount int64, reason, reference string, expiresAt *time.Time) (*model.PointTransaction, bool, error) {
	var txn *model.PointTransaction
	created := false

	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		if err := lockPool(ctx, tx, poolID); err != nil {
			return err
		}

		if reference != "" {
			prior, err := findTransaction(ctx, tx, poolID, model.TransactionGrant, reference)
			if err != nil {
				return err
			}
			if prior != nil {
				txn = prior
				return nil
			}
		}

		const insertGrant = `INSERT INTO point_grants (pool_id, amount, remaining, reason, reference, expires_at)
                             VALUES ($1, $2, $2, $3, $4, $5)`
		if _, err := tx.Exec(ctx, insertGrant, poolID, amount, reason, reference, expiresAt); err != nil {
			return err
		}

		entry, err := appendTransaction(ctx, tx, poolID, model.TransactionGrant, amount, reason, reference)
		if err != nil {
			return err
		}
		txn = entry
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return txn, created, nil
}

func (r *ledgerRepository) Balance(ctx context.Context, poolID int64) (*model.BalanceDetail, error) {
	const query = `SELECT
        COALESCE((SELECT SUM(remaining) FROM point_grants WHERE pool_id=$1 AND remaining > 0), 0),
        COALESCE((SELECT SUM(amount) FROM point_reservations WHERE pool_id=$1 AND status='open'), 0)`
	var detail model.BalanceDetail
	err := r.storage.pool.QueryRow(ctx, query, poolID).Scan(&detail.Balance, &detail.Reserved)
	if err != nil {
		return nil, err
	}
	detail.Available = detail.Balance - detail.Reserved
	return &detail, nil
}

func (r *ledgerRepository) Reserve(ctx context.Context, poolID, amount int64, reference string) (*model.Reservation, bool, error) {
	var reservation *model.Reservation
	created := false

	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		if err := lockPool(ctx, tx, poolID); err != nil {
			return err
		}

		if reference != "" {
			prior, err := findReservationByReference(ctx, tx, reference)
			if err != nil {
				return err
			}
			if prior != nil {
				reservation = prior
				return nil
			}
		}

		balance, reserved, err := poolBalances(ctx, tx, poolID)
		if err != nil {
			return err
		}
		if amount > balance-reserved {
			return domainErrors.ErrInsufficientBalance
		}

		const insert = `INSERT INTO point_reservations (pool_id, amount, status, reference)
                        VALUES ($1, $2, 'open', $3)
                        RETURNING id, created_at, updated_at`
		res := &model.Reservation{PoolID: poolID, Amount: amount, Status: model.ReservationOpen, Reference: reference}
		if err := tx.QueryRow(ctx, insert, poolID, amount, reference).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return err
		}

		if _, err := appendTransaction(ctx, tx, poolID, model.TransactionReserve, -amount, "reserve for withdrawal", reference); err != nil {
			return err
		}

		reservation = res
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return reservation, created, nil
}

func (r *ledgerRepository) CommitReservation(ctx context.Context, reservationID int64) error {
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		res, err := lockReservation(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if res.Status != model.ReservationOpen {
			return domainErrors.ErrInvalidState
		}
		if err := lockPool(ctx, tx, res.PoolID); err != nil {
			return err
		}

		const update = `UPDATE point_reservations SET status='committed', updated_at=NOW() WHERE id=$1`
		if _, err := tx.Exec(ctx, update, reservationID); err != nil {
			return err
		}

		if err := consumeGrants(ctx, tx, res.PoolID, res.Amount); err != nil {
			return err
		}

		// the reserve entry already subtracted the amount from available
		ref := fmt.Sprintf("reservation:%d", reservationID)
		if _, err := appendTransaction(ctx, tx, res.PoolID, model.TransactionCommit, 0, "commit reservation", ref); err != nil {
			return err
		}
		return nil
	})
}

func (r *ledgerRepository) ReleaseReservation(ctx context.Context, reservationID int64) error {
	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		res, err := lockReservation(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if res.Status == model.ReservationReleased {
			return nil
		}
		if res.Status == model.ReservationCommitted {
			return domainErrors.ErrInvalidState
		}
		if err := lockPool(ctx, tx, res.PoolID); err != nil {
			return err
		}

		const update = `UPDATE point_reservations SET status='released', updated_at=NOW() WHERE id=$1`
		if _, err := tx.Exec(ctx, update, reservationID); err != nil {
			return err
		}

		ref := fmt.Sprintf("reservation:%d", reservationID)
		if _, err := appendTransaction(ctx, tx, res.PoolID, model.TransactionRelease, res.Amount, "release reservation", ref); err != nil {
			return err
		}
		return nil
	})
}

func (r *ledgerRepository) GetReservation(ctx context.Context, reservationID int64) (*model.Reservation, error) {
	const query = `SELECT id, pool_id, amount, status, reference, created_at, updated_at
                   FROM point_reservations WHERE id=$1`
	var res model.Reservation
	err := r.storage.pool.QueryRow(ctx, query, reservationID).Scan(
		&res.ID, &res.PoolID, &res.Amount, &res.Status, &res.Reference, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

func (r *ledgerRepository) ExpireSweep(ctx context.Context, now time.Time) (int64, error) {
	const poolsQuery = `SELECT DISTINCT pool_id FROM point_grants
                        WHERE remaining > 0 AND expires_at IS NOT NULL AND expires_at <= $1`
	rows, err := r.storage.pool.Query(ctx, poolsQuery, now)
	if err != nil {
		return 0, err
	}
	var poolIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		poolIDs = append(poolIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	var total int64
	for _, poolID := range poolIDs {
		expired, err := r.sweepPool(ctx, poolID, now)
		if err != nil {
			return total, err
		}
		total += expired
	}
	return total, nil
}

func (r *ledgerRepository) sweepPool(ctx context.Context, poolID int64, now time.Time) (int64, error) {
	var expired int64
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		if err := lockPool(ctx, tx, poolID); err != nil {
			return err
		}

		balance, reserved, err := poolBalances(ctx, tx, poolID)
		if err != nil {
			return err
		}
		available := balance - reserved
		if available <= 0 {
			return nil
		}

		const grantsQuery = `SELECT id, remaining FROM point_grants
                             WHERE pool_id=$1 AND remaining > 0 AND expires_at IS NOT NULL AND expires_at <= $2
                             ORDER BY expires_at, created_at
                             FOR UPDATE`
		rows, err := tx.Query(ctx, grantsQuery, poolID, now)
		if err != nil {
			return err
		}
		type grantCut struct {
			id   int64
			take int64
		}
		var cuts []grantCut
		for rows.Next() {
			var id, remaining int64
			if err := rows.Scan(&id, &remaining); err != nil {
				rows.Close()
				return err
			}
			if available <= 0 {
				break
			}
			take := remaining
			if take > available {
				take = available
			}
			cuts = append(cuts, grantCut{id: id, take: take})
			available -= take
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, cut := range cuts {
			const update = `UPDATE point_grants SET remaining = remaining - $2 WHERE id=$1`
			if _, err := tx.Exec(ctx, update, cut.id, cut.take); err != nil {
				return err
			}
			expired += cut.take
		}

		if expired > 0 {
			if _, err := appendTransaction(ctx, tx, poolID, model.TransactionExpire, -expired, "expired grants sweep", ""); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return expired, nil
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, poolID int64, limit int) ([]model.PointTransaction, error) {
	const query = `SELECT id, pool_id, kind, delta, reason, reference, created_at
                   FROM point_transactions WHERE pool_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, poolID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.PointTransaction
	for rows.Next() {
		var t model.PointTransaction
		if err := rows.Scan(&t.ID, &t.PoolID, &t.Kind, &t.Delta, &t.Reason, &t.Reference, &t.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func findTransaction(ctx context.Context, tx pgx.Tx, poolID int64, kind model.TransactionKind, reference string) (*model.PointTransaction, error) {
	const query = `SELECT id, pool_id, kind, delta, reason, reference, created_at
                   FROM point_transactions WHERE pool_id=$1 AND kind=$2 AND reference=$3`
	var t model.PointTransaction
	err := tx.QueryRow(ctx, query, poolID, string(kind), reference).Scan(
		&t.ID, &t.PoolID, &t.Kind, &t.Delta, &t.Reason, &t.Reference, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func findReservationByReference(ctx context.Context, tx pgx.Tx, reference string) (*model.Reservation, error) {
	const query = `SELECT id, pool_id, amount, status, reference, created_at, updated_at
                   FROM point_reservations WHERE reference=$1`
	var res model.Reservation
	err := tx.QueryRow(ctx, query, reference).Scan(
		&res.ID, &res.PoolID, &res.Amount, &res.Status, &res.Reference, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}

func lockReservation(ctx context.Context, tx pgx.Tx, reservationID int64) (*model.Reservation, error) {
	const query = `SELECT id, pool_id, amount, status, reference, created_at, updated_at
                   FROM point_reservations WHERE id=$1 FOR UPDATE`
	var res model.Reservation
	err := tx.QueryRow(ctx, query, reservationID).Scan(
		&res.ID, &res.PoolID, &res.Amount, &res.Status, &res.Reference, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

func consumeGrants(ctx context.Context, tx pgx.Tx, poolID, amount int64) error {
	const query = `SELECT id, remaining FROM point_grants
                   WHERE pool_id=$1 AND remaining > 0
                   ORDER BY created_at, id
                   FOR UPDATE`
	rows, err := tx.Query(ctx, query, poolID)
	if err != nil {
		return err
	}
	type grantCut struct {
		id   int64
		take int64
	}
	var cuts []grantCut
	left := amount
	for rows.Next() {
		var id, remaining int64
		if err := rows.Scan(&id, &remaining); err != nil {
			rows.Close()
			return err
		}
		if left <= 0 {
			break
		}
		take := remaining
		if take > left {
			take = left
		}
		cuts = append(cuts, grantCut{id: id, take: take})
		left -= take
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if left > 0 {
		return fmt.Errorf("grant remainders underflow committing %d points for pool %d", amount, poolID)
	}

	for _, cut := range cuts {
		const update = `UPDATE point_grants SET remaining = remaining - $2 WHERE id=$1`
		if _, err := tx.Exec(ctx, update, cut.id, cut.take); err != nil {
			return err
		}
	}
	return nil
}

func appendTransaction(ctx context.Context, tx pgx.Tx, poolID int64, kind model.TransactionKind, delta int64, reason, reference string) (*model.PointTransaction, error) {
	const insert = `INSERT INTO point_transactions (pool_id, kind, delta, reason, reference)
                    VALUES ($1, $2, $3, $4, $5)
                    RETURNING id, created_at`
	entry := &model.PointTransaction{PoolID: poolID, Kind: kind, Delta: delta, Reason: reason, Reference: reference}
	err := tx.QueryRow(ctx, insert, poolID, string(kind), delta, reason, reference).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// --- WithdrawalRepository implementation ---

const withdrawalColumns = `id, user_id, pool_id, amount, bank_name, bank_account, card_fingerprint,
        status, reservation_id, signing_record_id, failure_reason, created_at, updated_at`

func scanWithdrawal(row pgx.Row) (*model.WithdrawalRequest, error) {
	var w model.WithdrawalRequest
	err := row.Scan(&w.ID, &w.UserID, &w.PoolID, &w.Amount, &w.Card.BankName, &w.Card.Account,
		&w.CardFingerprint, &w.Status, &w.ReservationID, &w.SigningRecordID, &w.FailureReason,
		&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r *withdrawalRepository) Create(ctx context.Context, req *model.WithdrawalRequest) (*model.WithdrawalRequest, error) {
	const query = `INSERT INTO withdrawal_requests
        (user_id, pool_id, amount, bank_name, bank_account, card_fingerprint, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`
	created := *req
	err := r.storage.pool.QueryRow(ctx, query,
		req.UserID, req.PoolID, req.Amount, req.Card.BankName, req.Card.Account,
		req.CardFingerprint, string(req.Status)).
		Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		// idx_withdrawals_one_active: the concurrent loser of a same-user
		// create hits the partial unique index
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domainErrors.ErrWithdrawalInProgress
		}
		return nil, err
	}
	return &created, nil
}

func (r *withdrawalRepository) GetByID(ctx context.Context, id int64) (*model.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id=$1`
	return scanWithdrawal(r.storage.pool.QueryRow(ctx, query, id))
}

func (r *withdrawalRepository) GetActiveByUser(ctx context.Context, userID int64) (*model.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
              WHERE user_id=$1 AND status NOT IN ('completed', 'failed', 'cancelled')
              ORDER BY created_at DESC LIMIT 1`
	return scanWithdrawal(r.storage.pool.QueryRow(ctx, query, userID))
}

func (r *withdrawalRepository) GetBySigningRecord(ctx context.Context, recordID int64) (*model.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
              WHERE signing_record_id=$1 ORDER BY created_at DESC LIMIT 1`
	return scanWithdrawal(r.storage.pool.QueryRow(ctx, query, recordID))
}

func (r *withdrawalRepository) ListByUser(ctx context.Context, userID int64) ([]model.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests
              WHERE user_id=$1 ORDER BY created_at DESC`
	rows, err := r.storage.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *withdrawalRepository) UpdateStatus(ctx context.Context, id int64, from, to model.WithdrawalStatus, reason string) error {
	const query = `UPDATE withdrawal_requests
                   SET status=$3,
                       failure_reason = CASE WHEN $4 = '' THEN failure_reason ELSE $4 END,
                       updated_at=NOW()
                   WHERE id=$1 AND status=$2`
	tag, err := r.storage.pool.Exec(ctx, query, id, string(from), string(to), reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrInvalidState
	}
	return nil
}

func (r *withdrawalRepository) SetReservation(ctx context.Context, id, reservationID int64) error {
	const query = `UPDATE withdrawal_requests SET reservation_id=$2, updated_at=NOW() WHERE id=$1`
	_, err := r.storage.pool.Exec(ctx, query, id, reservationID)
	return err
}

func (r *withdrawalRepository) SetSigningRecord(ctx context.Context, id, recordID int64) error {
	const query = `UPDATE withdrawal_requests SET signing_record_id=$2, updated_at=NOW() WHERE id=$1`
	_, err := r.storage.pool.Exec(ctx, query, id, recordID)
	return err
}

func (r *withdrawalRepository) ListSigningExpired(ctx context.Context, deadline time.Time, limit int) ([]model.WithdrawalRequest, error) {
	query := `SELECT ` + prefixColumns("w", withdrawalColumns) + `
              FROM withdrawal_requests w
              JOIN signing_records s ON s.id = w.signing_record_id
              WHERE w.status='signature_in_progress' AND s.status IN ('pending', 'sent') AND s.created_at <= $1
              ORDER BY w.created_at
              LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, deadline, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

// --- SigningRepository implementation ---

const signingColumns = `id, correlator, user_id, real_name, id_number, phone, bank_name, bank_account,
        card_fingerprint, template_id, provider_order_ref, status, signed_at, created_at, updated_at`

func (r *signingRepository) scanRecord(row pgx.Row) (*model.SigningRecord, error) {
	var rec model.SigningRecord
	err := row.Scan(&rec.ID, &rec.Correlator, &rec.UserID,
		&rec.PII.RealName, &rec.PII.IDNumber, &rec.PII.Phone, &rec.PII.BankName, &rec.PII.BankAccount,
		&rec.CardFingerprint, &rec.TemplateID, &rec.ProviderOrderRef, &rec.Status, &rec.SignedAt,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrRecordNotFound
		}
		return nil, err
	}
	if err := r.decryptPII(&rec.PII); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *signingRepository) encryptPII(pii model.PIISnapshot) (model.PIISnapshot, error) {
	var out model.PIISnapshot
	var err error
	if out.RealName, err = r.storage.cipher.Encrypt(pii.RealName); err != nil {
		return out, err
	}
	if out.IDNumber, err = r.storage.cipher.Encrypt(pii.IDNumber); err != nil {
		return out, err
	}
	if out.Phone, err = r.storage.cipher.Encrypt(pii.Phone); err != nil {
		return out, err
	}
	if out.BankName, err = r.storage.cipher.Encrypt(pii.BankName); err != nil {
		return out, err
	}
	if out.BankAccount, err = r.storage.cipher.Encrypt(pii.BankAccount); err != nil {
		return out, err
	}
	return out, nil
}

func (r *signingRepository) decryptPII(pii *model.PIISnapshot) error {
	var err error
	if pii.RealName, err = r.storage.cipher.Decrypt(pii.RealName); err != nil {
		return err
	}
	if pii.IDNumber, err = r.storage.cipher.Decrypt(pii.IDNumber); err != nil {
		return err
	}
	if pii.Phone, err = r.storage.cipher.Decrypt(pii.Phone); err != nil {
		return err
	}
	if pii.BankName, err = r.storage.cipher.Decrypt(pii.BankName); err != nil {
		return err
	}
	if pii.BankAccount, err = r.storage.cipher.Decrypt(pii.BankAccount); err != nil {
		return err
	}
	return nil
}

func (r *signingRepository) Create(ctx context.Context, record *model.SigningRecord) (*model.SigningRecord, error) {
	encrypted, err := r.encryptPII(record.PII)
	if err != nil {
		return nil, err
	}

	const query = `INSERT INTO signing_records
        (correlator, user_id, real_name, id_number, phone, bank_name, bank_account,
         card_fingerprint, template_id, provider_order_ref, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id, created_at, updated_at`
	created := *record
	err = r.storage.pool.QueryRow(ctx, query,
		record.Correlator, record.UserID,
		encrypted.RealName, encrypted.IDNumber, encrypted.Phone, encrypted.BankName, encrypted.BankAccount,
		record.CardFingerprint, record.TemplateID, record.ProviderOrderRef, string(record.Status)).
		Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	return &created, nil
}

func (r *signingRepository) GetByID(ctx context.Context, id int64) (*model.SigningRecord, error) {
	query := `SELECT ` + signingColumns + ` FROM signing_records WHERE id=$1`
	return r.scanRecord(r.storage.pool.QueryRow(ctx, query, id))
}

func (r *signingRepository) GetByCorrelator(ctx context.Context, correlator string) (*model.SigningRecord, error) {
	query := `SELECT ` + signingColumns + ` FROM signing_records WHERE correlator=$1`
	return r.scanRecord(r.storage.pool.QueryRow(ctx, query, correlator))
}

func (r *signingRepository) FindReusable(ctx context.Context, userID int64, cardFingerprint string, notBefore time.Time) (*model.SigningRecord, error) {
	query := `SELECT ` + signingColumns + ` FROM signing_records
              WHERE user_id=$1 AND card_fingerprint=$2 AND status IN ('pending', 'sent', 'signed') AND created_at > $3
              ORDER BY created_at DESC LIMIT 1`
	return r.scanRecord(r.storage.pool.QueryRow(ctx, query, userID, cardFingerprint, notBefore))
}

func (r *signingRepository) UpdateStatus(ctx context.Context, id int64, from, to model.SigningStatus) error {
	const query = `UPDATE signing_records SET status=$3, updated_at=NOW() WHERE id=$1 AND status=$2`
	tag, err := r.storage.pool.Exec(ctx, query, id, string(from), string(to))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrInvalidState
	}
	return nil
}

func (r *signingRepository) MarkSent(ctx context.Context, id int64, providerOrderRef string) error {
	const query = `UPDATE signing_records SET status='sent', provider_order_ref=$2, updated_at=NOW()
                   WHERE id=$1 AND status='pending'`
	tag, err := r.storage.pool.Exec(ctx, query, id, providerOrderRef)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrInvalidState
	}
	return nil
}

func (r *signingRepository) MarkSigned(ctx context.Context, id int64, signedAt time.Time) error {
	const query = `UPDATE signing_records SET status='signed', signed_at=$2, updated_at=NOW()
                   WHERE id=$1 AND status IN ('pending', 'sent')`
	tag, err := r.storage.pool.Exec(ctx, query, id, signedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrInvalidState
	}
	return nil
}
