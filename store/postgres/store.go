package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/reseller"
	"github.com/xraph/reseller/account"
	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/numberlimit"
	resellerstore "github.com/xraph/reseller/store"
	"github.com/xraph/reseller/validity"
	"github.com/xraph/reseller/wallet"
)

// compile-time interface check
var _ resellerstore.Store = (*Store)(nil)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique index violation.
const uniqueViolation = "23505"

// Store implements store.Store using PostgreSQL via Grove ORM.
//
// Writes that must commit together (a wallet balance and its transaction, a
// validity record and its history entry) are issued as one statement with a
// data-modifying CTE, so PostgreSQL applies them atomically.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("%w: reseller/postgres: create migration executor: %w", reseller.ErrMigrationFailed, err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: reseller/postgres: %w", reseller.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Reseller Store ====================

func (s *Store) CreateReseller(ctx context.Context, r *account.Reseller) error {
	_, err := s.pg.NewInsert(toResellerModel(r)).Exec(ctx)
	if isUniqueViolation(err) {
		return reseller.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetReseller(ctx context.Context, resellerID id.ResellerID) (*account.Reseller, error) {
	m := new(resellerModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", resellerID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, reseller.ErrResellerNotFound
		}
		return nil, err
	}
	return fromResellerModel(m)
}

func (s *Store) ListResellers(ctx context.Context, opts account.ListOpts) ([]*account.Reseller, error) {
	var models []resellerModel
	q := s.pg.NewSelect(&models)

	if cond := stateCondition(opts.State); cond != "" {
		q = q.Where(cond)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*account.Reseller, len(models))
	for i := range models {
		r, err := fromResellerModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

func (s *Store) UpdateReseller(ctx context.Context, r *account.Reseller, expectedVersion int64) error {
	m := toResellerModel(r)
	res, err := s.pg.NewUpdate((*resellerModel)(nil)).
		Set("name = $1", m.Name).
		Set("email = $2", m.Email).
		Set("phone = $3", m.Phone).
		Set("status = $4", m.Status).
		Set("approval_date = $5", m.ApprovalDate).
		Set("approved_by = $6", m.ApprovedBy).
		Set("rejection_reason = $7", m.RejectionReason).
		Set("suspended_at = $8", m.SuspendedAt).
		Set("suspended_by = $9", m.SuspendedBy).
		Set("suspended_reason = $10", m.SuspendedReason).
		Set("grace_period_days = $11", m.GracePeriodDays).
		Set("version = $12", m.Version).
		Set("updated_at = $13", m.UpdatedAt).
		Where("id = $14", m.ID).
		Where("version = $15", expectedVersion).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	if _, err := s.GetReseller(ctx, r.ID); err != nil {
		return err
	}
	return reseller.ErrVersionConflict
}

// stateCondition maps a derived lifecycle state onto the columns it is
// computed from, in the same precedence account.Reseller.State uses.
func stateCondition(state account.State) string {
	switch state {
	case account.StateSuspended:
		return "suspended_at IS NOT NULL"
	case account.StateRejected:
		return "suspended_at IS NULL AND rejection_reason <> ''"
	case account.StateApproved:
		return "suspended_at IS NULL AND rejection_reason = '' AND approval_date IS NOT NULL"
	case account.StatePending:
		return "suspended_at IS NULL AND rejection_reason = '' AND approval_date IS NULL"
	default:
		return ""
	}
}

// ==================== Wallet Store ====================

func (s *Store) GetWallet(ctx context.Context, walletID id.WalletID) (*wallet.Wallet, error) {
	m := new(walletModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", walletID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, reseller.ErrWalletNotFound
		}
		return nil, err
	}
	return fromWalletModel(m)
}

func (s *Store) GetWalletByReseller(ctx context.Context, resellerID id.ResellerID) (*wallet.Wallet, error) {
	m := new(walletModel)
	err := s.pg.NewSelect(m).
		Where("reseller_id = $1", resellerID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, reseller.ErrWalletNotFound
		}
		return nil, err
	}
	return fromWalletModel(m)
}

// createWalletAndPost inserts a new wallet and its first transaction. A
// wallet that already exists for the reseller yields no row.
const createWalletAndPost = `
WITH w AS (
    INSERT INTO reseller_wallets
        (id, reseller_id, currency, balance, credit_total, debit_total, last_transaction_at, version, created_at, updated_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    ON CONFLICT (reseller_id) DO NOTHING
    RETURNING id, reseller_id, currency
)
INSERT INTO reseller_wallet_transactions
    (id, wallet_id, reseller_id, type, currency, amount, balance_before, balance_after, description, reference, created_at)
SELECT $11, w.id, w.reseller_id, $12, w.currency, $13, $14, $15, $16, $17, $18 FROM w
RETURNING id`

// updateWalletAndPost moves an existing wallet from version $8 to $7 and
// appends the transaction. A stale version yields no row.
const updateWalletAndPost = `
WITH w AS (
    UPDATE reseller_wallets SET
        balance = $2,
        credit_total = $3,
        debit_total = $4,
        last_transaction_at = $5,
        updated_at = $6,
        version = $7
    WHERE id = $1 AND version = $8
    RETURNING id, reseller_id, currency
)
INSERT INTO reseller_wallet_transactions
    (id, wallet_id, reseller_id, type, currency, amount, balance_before, balance_after, description, reference, created_at)
SELECT $9, w.id, w.reseller_id, $10, w.currency, $11, $12, $13, $14, $15, $16 FROM w
RETURNING id`

func (s *Store) PostTransaction(ctx context.Context, next *wallet.Wallet, txn *wallet.Transaction, expectedVersion int64) error {
	txnArgs := []any{
		txn.ID.String(),
		string(txn.Type),
		txn.Amount.Amount,
		txn.BalanceBefore.Amount,
		txn.BalanceAfter.Amount,
		txn.Description,
		txn.Reference,
		txn.CreatedAt,
	}

	var stmt string
	var args []any
	if expectedVersion == 0 {
		stmt = createWalletAndPost
		args = append([]any{
			next.ID.String(),
			next.ResellerID.String(),
			next.Balance.Currency,
			next.Balance.Amount,
			next.CreditTotal.Amount,
			next.DebitTotal.Amount,
			next.LastTransactionAt,
			next.Version,
			next.CreatedAt,
			next.UpdatedAt,
		}, txnArgs...)
	} else {
		stmt = updateWalletAndPost
		args = append([]any{
			next.ID.String(),
			next.Balance.Amount,
			next.CreditTotal.Amount,
			next.DebitTotal.Amount,
			next.LastTransactionAt,
			next.UpdatedAt,
			next.Version,
			expectedVersion,
		}, txnArgs...)
	}

	var inserted string
	err := s.pg.NewRaw(stmt, args...).Scan(ctx, &inserted)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return reseller.ErrDuplicateReference
	case isNoRows(err):
		if expectedVersion == 0 {
			return reseller.ErrVersionConflict
		}
		if _, getErr := s.GetWallet(ctx, next.ID); getErr != nil {
			return getErr
		}
		return reseller.ErrVersionConflict
	default:
		return err
	}
}

func (s *Store) ListTransactions(ctx context.Context, walletID id.WalletID, opts wallet.ListOpts) ([]*wallet.Transaction, error) {
	var models []transactionModel
	q := s.pg.NewSelect(&models).Where("wallet_id = $1", walletID.String())

	if opts.Type != "" {
		q = q.Where("type = $2", string(opts.Type))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC, id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*wallet.Transaction, len(models))
	for i := range models {
		t, err := fromTransactionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

func (s *Store) FindTransactionByReference(ctx context.Context, walletID id.WalletID, reference string) (*wallet.Transaction, error) {
	m := new(transactionModel)
	err := s.pg.NewSelect(m).
		Where("wallet_id = $1", walletID.String()).
		Where("reference = $2", reference).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, reseller.ErrTransactionNotFound
		}
		return nil, err
	}
	return fromTransactionModel(m)
}

// ==================== Validity Store ====================

func (s *Store) GetValidity(ctx context.Context, resellerID id.ResellerID) (*validity.Record, error) {
	m := new(validityModel)
	err := s.pg.NewSelect(m).
		Where("reseller_id = $1", resellerID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, reseller.ErrValidityNotFound
		}
		return nil, err
	}
	return fromValidityModel(m)
}

const createWindow = `
WITH v AS (
    INSERT INTO reseller_validity
        (id, reseller_id, start_date, end_date, days, last_wallet_id, last_recharge_amount, currency,
         status, version, created_at, updated_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    ON CONFLICT (reseller_id) DO NOTHING
    RETURNING id, reseller_id, start_date, end_date, days, status, currency
)
INSERT INTO reseller_validity_history
    (id, record_id, reseller_id, wallet_id, recharge_amount, currency, previous_start, previous_end,
     new_start, new_end, days, status, action, created_at)
SELECT $13, v.id, v.reseller_id, $14, $15, v.currency, $16, $17,
       v.start_date, v.end_date, v.days, v.status, $18, $19 FROM v
RETURNING id`

const updateWindow = `
WITH v AS (
    UPDATE reseller_validity SET
        start_date = $2,
        end_date = $3,
        days = $4,
        last_wallet_id = $5,
        last_recharge_amount = $6,
        currency = $7,
        status = $8,
        version = $9,
        updated_at = $10
    WHERE id = $1 AND version = $11
    RETURNING id, reseller_id, start_date, end_date, days, status, currency
)
INSERT INTO reseller_validity_history
    (id, record_id, reseller_id, wallet_id, recharge_amount, currency, previous_start, previous_end,
     new_start, new_end, days, status, action, created_at)
SELECT $12, v.id, v.reseller_id, $13, $14, v.currency, $15, $16,
       v.start_date, v.end_date, v.days, v.status, $17, $18 FROM v
RETURNING id`

func (s *Store) SaveWindow(ctx context.Context, rec *validity.Record, hist *validity.History, expectedVersion int64) error {
	histArgs := []any{
		hist.ID.String(),
		hist.WalletID.String(),
		nullDecimal(hist.RechargeAmount),
		hist.PreviousStart,
		hist.PreviousEnd,
		string(hist.Action),
		hist.CreatedAt,
	}
	currency := currencyOf(rec.LastRechargeAmount, hist.RechargeAmount)

	var stmt string
	var args []any
	if expectedVersion == 0 {
		stmt = createWindow
		args = append([]any{
			rec.ID.String(),
			rec.ResellerID.String(),
			rec.StartDate,
			rec.EndDate,
			rec.Days,
			rec.LastWalletID.String(),
			nullDecimal(rec.LastRechargeAmount),
			currency,
			string(rec.Status),
			rec.Version,
			rec.CreatedAt,
			rec.UpdatedAt,
		}, histArgs...)
	} else {
		stmt = updateWindow
		args = append([]any{
			rec.ID.String(),
			rec.StartDate,
			rec.EndDate,
			rec.Days,
			rec.LastWalletID.String(),
			nullDecimal(rec.LastRechargeAmount),
			currency,
			string(rec.Status),
			rec.Version,
			rec.UpdatedAt,
			expectedVersion,
		}, histArgs...)
	}

	var inserted string
	err := s.pg.NewRaw(stmt, args...).Scan(ctx, &inserted)
	switch {
	case err == nil:
		return nil
	case isNoRows(err):
		return reseller.ErrVersionConflict
	default:
		return err
	}
}

func (s *Store) ListHistory(ctx context.Context, resellerID id.ResellerID, opts validity.ListOpts) ([]*validity.History, error) {
	var models []historyModel
	q := s.pg.NewSelect(&models).Where("reseller_id = $1", resellerID.String())

	if opts.Action != "" {
		q = q.Where("action = $2", string(opts.Action))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC, id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*validity.History, len(models))
	for i := range models {
		h, err := fromHistoryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = h
	}
	return result, nil
}

func (s *Store) CountHistory(ctx context.Context, resellerID id.ResellerID) (int64, error) {
	var total int64
	err := s.pg.NewRaw(`
		SELECT COUNT(*) FROM reseller_validity_history WHERE reseller_id = $1
	`, resellerID.String()).Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListExpiring(ctx context.Context, before time.Time, limit int) ([]*validity.Record, error) {
	var models []validityModel
	q := s.pg.NewSelect(&models).
		Where("status = $1", string(validity.StatusActive)).
		Where("end_date <= $2", before).
		OrderExpr("end_date ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*validity.Record, len(models))
	for i := range models {
		rec, err := fromValidityModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = rec
	}
	return result, nil
}

// ==================== Number limit Store ====================

func (s *Store) UpsertLimit(ctx context.Context, l *numberlimit.Limit) error {
	_, err := s.pg.NewInsert(toLimitModel(l)).
		OnConflict("(reseller_id) DO UPDATE").
		Set("max_virtual_numbers = EXCLUDED.max_virtual_numbers").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return err
	}

	stored, err := s.GetLimit(ctx, l.ResellerID)
	if err != nil {
		return err
	}
	l.ID = stored.ID
	l.CreatedAt = stored.CreatedAt
	return nil
}

func (s *Store) GetLimit(ctx context.Context, resellerID id.ResellerID) (*numberlimit.Limit, error) {
	m := new(limitModel)
	err := s.pg.NewSelect(m).
		Where("reseller_id = $1", resellerID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, reseller.ErrNumberLimitNotFound
		}
		return nil, err
	}
	return fromLimitModel(m)
}

// ==================== Helpers ====================

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
