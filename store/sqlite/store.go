package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
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

// Store implements store.Store using SQLite via Grove ORM.
//
// A wallet or validity write is a single guarded INSERT into the log table.
// The row carries the resulting wallet or record state and a trigger
// applies it, so both halves commit or fail together.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables, indexes and triggers using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("%w: reseller/sqlite: create migration executor: %w", reseller.ErrMigrationFailed, err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: reseller/sqlite: %w", reseller.ErrMigrationFailed, err)
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
	_, err := s.sdb.NewInsert(toResellerModel(r)).Exec(ctx)
	if isUniqueViolation(err) {
		return reseller.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetReseller(ctx context.Context, resellerID id.ResellerID) (*account.Reseller, error) {
	m := new(resellerModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", resellerID.String()).
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
	q := s.sdb.NewSelect(&models)

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
	res, err := s.sdb.NewUpdate((*resellerModel)(nil)).
		Set("name = ?", m.Name).
		Set("email = ?", m.Email).
		Set("phone = ?", m.Phone).
		Set("status = ?", m.Status).
		Set("approval_date = ?", m.ApprovalDate).
		Set("approved_by = ?", m.ApprovedBy).
		Set("rejection_reason = ?", m.RejectionReason).
		Set("suspended_at = ?", m.SuspendedAt).
		Set("suspended_by = ?", m.SuspendedBy).
		Set("suspended_reason = ?", m.SuspendedReason).
		Set("grace_period_days = ?", m.GracePeriodDays).
		Set("version = ?", m.Version).
		Set("updated_at = ?", m.UpdatedAt).
		Where("id = ?", m.ID).
		Where("version = ?", expectedVersion).
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
	err := s.sdb.NewSelect(m).
		Where("id = ?", walletID.String()).
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
	err := s.sdb.NewSelect(m).
		Where("reseller_id = ?", resellerID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, reseller.ErrWalletNotFound
		}
		return nil, err
	}
	return fromWalletModel(m)
}

const postTransaction = `
INSERT INTO reseller_wallet_transactions
    (id, wallet_id, reseller_id, type, currency, amount, balance_before, balance_after,
     credit_total_after, debit_total_after, wallet_version, description, reference, created_at)
SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
WHERE `

// walletIsNew holds while the reseller has no wallet yet.
const walletIsNew = `NOT EXISTS (SELECT 1 FROM reseller_wallets WHERE reseller_id = ?)
RETURNING id`

// walletAtVersion holds while the wallet is still at the expected version.
const walletAtVersion = `EXISTS (SELECT 1 FROM reseller_wallets WHERE id = ? AND version = ?)
RETURNING id`

func (s *Store) PostTransaction(ctx context.Context, next *wallet.Wallet, txn *wallet.Transaction, expectedVersion int64) error {
	args := []any{
		txn.ID.String(),
		next.ID.String(),
		next.ResellerID.String(),
		string(txn.Type),
		txn.Amount.Currency,
		txn.Amount.Amount,
		txn.BalanceBefore.Amount,
		txn.BalanceAfter.Amount,
		next.CreditTotal.Amount,
		next.DebitTotal.Amount,
		next.Version,
		txn.Description,
		txn.Reference,
		txn.CreatedAt,
	}

	stmt := postTransaction + walletAtVersion
	if expectedVersion == 0 {
		stmt = postTransaction + walletIsNew
		args = append(args, next.ResellerID.String())
	} else {
		args = append(args, next.ID.String(), expectedVersion)
	}

	var inserted string
	err := s.sdb.NewRaw(stmt, args...).Scan(ctx, &inserted)
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
	q := s.sdb.NewSelect(&models).Where("wallet_id = ?", walletID.String())

	if opts.Type != "" {
		q = q.Where("type = ?", string(opts.Type))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("wallet_version DESC")

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
	err := s.sdb.NewSelect(m).
		Where("wallet_id = ?", walletID.String()).
		Where("reference = ?", reference).
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
	err := s.sdb.NewSelect(m).
		Where("reseller_id = ?", resellerID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, reseller.ErrValidityNotFound
		}
		return nil, err
	}
	return fromValidityModel(m)
}

const saveWindow = `
INSERT INTO reseller_validity_history
    (id, record_id, reseller_id, wallet_id, recharge_amount, currency, previous_start, previous_end,
     new_start, new_end, days, status, action,
     record_last_wallet_id, record_last_recharge_amount, record_version, record_created_at, created_at)
SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
WHERE `

const windowIsNew = `NOT EXISTS (SELECT 1 FROM reseller_validity WHERE reseller_id = ?)
RETURNING id`

const windowAtVersion = `EXISTS (SELECT 1 FROM reseller_validity WHERE id = ? AND version = ?)
RETURNING id`

func (s *Store) SaveWindow(ctx context.Context, rec *validity.Record, hist *validity.History, expectedVersion int64) error {
	args := []any{
		hist.ID.String(),
		rec.ID.String(),
		rec.ResellerID.String(),
		hist.WalletID.String(),
		nullDecimal(hist.RechargeAmount),
		currencyOf(rec.LastRechargeAmount, hist.RechargeAmount),
		hist.PreviousStart,
		hist.PreviousEnd,
		rec.StartDate,
		rec.EndDate,
		rec.Days,
		string(rec.Status),
		string(hist.Action),
		rec.LastWalletID.String(),
		nullDecimal(rec.LastRechargeAmount),
		rec.Version,
		rec.CreatedAt,
		hist.CreatedAt,
	}

	stmt := saveWindow + windowAtVersion
	if expectedVersion == 0 {
		stmt = saveWindow + windowIsNew
		args = append(args, rec.ResellerID.String())
	} else {
		args = append(args, rec.ID.String(), expectedVersion)
	}

	var inserted string
	err := s.sdb.NewRaw(stmt, args...).Scan(ctx, &inserted)
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
	q := s.sdb.NewSelect(&models).Where("reseller_id = ?", resellerID.String())

	if opts.Action != "" {
		q = q.Where("action = ?", string(opts.Action))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("record_version DESC")

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
	err := s.sdb.NewRaw(`
		SELECT COUNT(*) FROM reseller_validity_history WHERE reseller_id = ?
	`, resellerID.String()).Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListExpiring(ctx context.Context, before time.Time, limit int) ([]*validity.Record, error) {
	var models []validityModel
	q := s.sdb.NewSelect(&models).
		Where("status = ?", string(validity.StatusActive)).
		Where("end_date <= ?", before).
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
	_, err := s.sdb.NewInsert(toLimitModel(l)).
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
	err := s.sdb.NewSelect(m).
		Where("reseller_id = ?", resellerID.String()).
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
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
