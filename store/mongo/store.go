package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/reseller"
	"github.com/xraph/reseller/account"
	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/numberlimit"
	resellerstore "github.com/xraph/reseller/store"
	"github.com/xraph/reseller/validity"
	"github.com/xraph/reseller/wallet"
)

// Collection name constants.
const (
	colResellers    = "reseller_accounts"
	colWallets      = "reseller_wallets"
	colTransactions = "reseller_wallet_transactions"
	colValidity     = "reseller_validity"
	colHistory      = "reseller_validity_history"
	colLimits       = "reseller_number_limits"
)

// compile-time interface check
var _ resellerstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
//
// Wallet postings and validity saves touch two collections and run inside a
// multi-document transaction, which requires a replica set or sharded
// cluster.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all reseller collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("%w: reseller/mongo: migrate %s indexes: %w", reseller.ErrMigrationFailed, col, err)
		}
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
	_, err := s.mdb.NewInsert(toResellerModel(r)).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return reseller.ErrAlreadyExists
		}
		return fmt.Errorf("reseller/mongo: create reseller: %w", err)
	}
	return nil
}

func (s *Store) GetReseller(ctx context.Context, resellerID id.ResellerID) (*account.Reseller, error) {
	var m resellerModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": resellerID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, reseller.ErrResellerNotFound
		}
		return nil, fmt.Errorf("reseller/mongo: get reseller: %w", err)
	}
	return fromResellerModel(&m)
}

func (s *Store) ListResellers(ctx context.Context, opts account.ListOpts) ([]*account.Reseller, error) {
	var models []resellerModel

	q := s.mdb.NewFind(&models).
		Filter(stateFilter(opts.State)).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("reseller/mongo: list resellers: %w", err)
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

	// Replace rather than $set so cleared optional dates are removed.
	res, err := s.mdb.Collection(colResellers).
		ReplaceOne(ctx, bson.M{"_id": m.ID, "version": expectedVersion}, m)
	if err != nil {
		return fmt.Errorf("reseller/mongo: update reseller: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if _, err := s.GetReseller(ctx, r.ID); err != nil {
		return err
	}
	return reseller.ErrVersionConflict
}

// stateFilter mirrors account.Reseller.State: a suspension wins over a
// rejection, which wins over an approval. Unset optional dates are omitted
// from the document, so "missing or null" is matched with $eq null.
func stateFilter(state account.State) bson.M {
	switch state {
	case account.StateSuspended:
		return bson.M{"suspended_at": bson.M{"$ne": nil}}
	case account.StateRejected:
		return bson.M{"suspended_at": nil, "rejection_reason": bson.M{"$ne": ""}}
	case account.StateApproved:
		return bson.M{"suspended_at": nil, "rejection_reason": "", "approval_date": bson.M{"$ne": nil}}
	case account.StatePending:
		return bson.M{"suspended_at": nil, "rejection_reason": "", "approval_date": nil}
	default:
		return bson.M{}
	}
}

// ==================== Wallet Store ====================

func (s *Store) GetWallet(ctx context.Context, walletID id.WalletID) (*wallet.Wallet, error) {
	var m walletModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": walletID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, reseller.ErrWalletNotFound
		}
		return nil, fmt.Errorf("reseller/mongo: get wallet: %w", err)
	}
	return fromWalletModel(&m)
}

func (s *Store) GetWalletByReseller(ctx context.Context, resellerID id.ResellerID) (*wallet.Wallet, error) {
	var m walletModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"reseller_id": resellerID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, reseller.ErrWalletNotFound
		}
		return nil, fmt.Errorf("reseller/mongo: get wallet by reseller: %w", err)
	}
	return fromWalletModel(&m)
}

func (s *Store) PostTransaction(ctx context.Context, next *wallet.Wallet, txn *wallet.Transaction, expectedVersion int64) error {
	wm, err := toWalletModel(next)
	if err != nil {
		return err
	}
	tm, err := toTransactionModel(txn)
	if err != nil {
		return err
	}

	wallets := s.mdb.Collection(colWallets)
	txns := s.mdb.Collection(colTransactions)

	return s.inTransaction(ctx, func(ctx context.Context) error {
		if expectedVersion == 0 {
			if _, err := wallets.InsertOne(ctx, wm); err != nil {
				if mongo.IsDuplicateKeyError(err) {
					return reseller.ErrVersionConflict
				}
				return fmt.Errorf("reseller/mongo: create wallet: %w", err)
			}
		} else {
			res, err := wallets.UpdateOne(ctx,
				bson.M{"_id": wm.ID, "version": expectedVersion},
				bson.M{"$set": bson.M{
					"balance":             wm.Balance,
					"credit_total":        wm.CreditTotal,
					"debit_total":         wm.DebitTotal,
					"last_transaction_at": wm.LastTransactionAt,
					"version":             wm.Version,
					"updated_at":          wm.UpdatedAt,
				}},
			)
			if err != nil {
				return fmt.Errorf("reseller/mongo: update wallet: %w", err)
			}
			if res.MatchedCount == 0 {
				n, err := wallets.CountDocuments(ctx, bson.M{"_id": wm.ID})
				if err != nil {
					return fmt.Errorf("reseller/mongo: check wallet: %w", err)
				}
				if n == 0 {
					return reseller.ErrWalletNotFound
				}
				return reseller.ErrVersionConflict
			}
		}

		if _, err := txns.InsertOne(ctx, tm); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return reseller.ErrDuplicateReference
			}
			return fmt.Errorf("reseller/mongo: insert transaction: %w", err)
		}
		return nil
	})
}

func (s *Store) ListTransactions(ctx context.Context, walletID id.WalletID, opts wallet.ListOpts) ([]*wallet.Transaction, error) {
	var models []transactionModel

	filter := bson.M{"wallet_id": walletID.String()}
	if opts.Type != "" {
		filter["type"] = string(opts.Type)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("reseller/mongo: list transactions: %w", err)
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
	var m transactionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"wallet_id": walletID.String(), "reference": reference}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, reseller.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("reseller/mongo: find transaction by reference: %w", err)
	}
	return fromTransactionModel(&m)
}

// ==================== Validity Store ====================

func (s *Store) GetValidity(ctx context.Context, resellerID id.ResellerID) (*validity.Record, error) {
	var m validityModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"reseller_id": resellerID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, reseller.ErrValidityNotFound
		}
		return nil, fmt.Errorf("reseller/mongo: get validity: %w", err)
	}
	return fromValidityModel(&m)
}

func (s *Store) SaveWindow(ctx context.Context, rec *validity.Record, hist *validity.History, expectedVersion int64) error {
	vm, err := toValidityModel(rec)
	if err != nil {
		return err
	}
	hm, err := toHistoryModel(hist)
	if err != nil {
		return err
	}

	records := s.mdb.Collection(colValidity)
	history := s.mdb.Collection(colHistory)

	return s.inTransaction(ctx, func(ctx context.Context) error {
		if expectedVersion == 0 {
			if _, err := records.InsertOne(ctx, vm); err != nil {
				if mongo.IsDuplicateKeyError(err) {
					return reseller.ErrVersionConflict
				}
				return fmt.Errorf("reseller/mongo: create validity: %w", err)
			}
		} else {
			res, err := records.ReplaceOne(ctx, bson.M{"_id": vm.ID, "version": expectedVersion}, vm)
			if err != nil {
				return fmt.Errorf("reseller/mongo: update validity: %w", err)
			}
			if res.MatchedCount == 0 {
				return reseller.ErrVersionConflict
			}
		}

		if _, err := history.InsertOne(ctx, hm); err != nil {
			return fmt.Errorf("reseller/mongo: insert validity history: %w", err)
		}
		return nil
	})
}

func (s *Store) ListHistory(ctx context.Context, resellerID id.ResellerID, opts validity.ListOpts) ([]*validity.History, error) {
	var models []historyModel

	filter := bson.M{"reseller_id": resellerID.String()}
	if opts.Action != "" {
		filter["action"] = string(opts.Action)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("reseller/mongo: list validity history: %w", err)
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
	n, err := s.mdb.Collection(colHistory).CountDocuments(ctx, bson.M{"reseller_id": resellerID.String()})
	if err != nil {
		return 0, fmt.Errorf("reseller/mongo: count validity history: %w", err)
	}
	return n, nil
}

func (s *Store) ListExpiring(ctx context.Context, before time.Time, limit int) ([]*validity.Record, error) {
	var models []validityModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{
			"status":   string(validity.StatusActive),
			"end_date": bson.M{"$lte": before},
		}).
		Sort(bson.D{{Key: "end_date", Value: 1}})
	if limit > 0 {
		q = q.Limit(int64(limit))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("reseller/mongo: list expiring validity: %w", err)
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
	_, err := s.mdb.NewUpdate((*limitModel)(nil)).
		Filter(bson.M{"reseller_id": l.ResellerID.String()}).
		SetUpdate(bson.M{
			"$set": bson.M{
				"max_virtual_numbers": l.MaxVirtualNumbers,
				"updated_at":          l.UpdatedAt,
			},
			"$setOnInsert": bson.M{
				"_id":        l.ID.String(),
				"created_at": l.CreatedAt,
			},
		}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("reseller/mongo: upsert number limit: %w", err)
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
	var m limitModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"reseller_id": resellerID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, reseller.ErrNumberLimitNotFound
		}
		return nil, fmt.Errorf("reseller/mongo: get number limit: %w", err)
	}
	return fromLimitModel(&m)
}

// ==================== Helpers ====================

// inTransaction runs fn in a multi-document transaction. Sentinel errors
// returned by fn abort the transaction and come back unchanged.
func (s *Store) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	client := s.mdb.Collection(colWallets).Database().Client()

	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("%w: reseller/mongo: start session: %w", reseller.ErrTransactionFailed, err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all reseller collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colResellers: {
			{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
			{Keys: bson.D{{Key: "email", Value: 1}}},
		},
		colWallets: {
			{
				Keys:    bson.D{{Key: "reseller_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colTransactions: {
			{Keys: bson.D{{Key: "wallet_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{
				Keys: bson.D{{Key: "wallet_id", Value: 1}, {Key: "reference", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"reference": bson.M{"$gt": ""}}),
			},
		},
		colValidity: {
			{
				Keys:    bson.D{{Key: "reseller_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "end_date", Value: 1}}},
		},
		colHistory: {
			{Keys: bson.D{{Key: "reseller_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colLimits: {
			{
				Keys:    bson.D{{Key: "reseller_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}
