// Package memory provides an in-process store.Store for tests and
// single-node deployments. One mutex serializes every write, which makes
// each version check and its write a single atomic step.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/xraph/reseller"
	"github.com/xraph/reseller/account"
	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/numberlimit"
	"github.com/xraph/reseller/store"
	"github.com/xraph/reseller/validity"
	"github.com/xraph/reseller/wallet"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	resellers map[string]*account.Reseller

	// Wallets by wallet ID, with a reseller index and per-wallet logs
	// kept in posting order.
	wallets          map[string]*wallet.Wallet
	walletByReseller map[string]string
	transactions     map[string][]*wallet.Transaction

	// Validity keyed by reseller ID.
	validity map[string]*validity.Record
	history  map[string][]*validity.History

	limits map[string]*numberlimit.Limit
}

func New() *Store {
	return &Store{
		resellers:        make(map[string]*account.Reseller),
		wallets:          make(map[string]*wallet.Wallet),
		walletByReseller: make(map[string]string),
		transactions:     make(map[string][]*wallet.Transaction),
		validity:         make(map[string]*validity.Record),
		history:          make(map[string][]*validity.History),
		limits:           make(map[string]*numberlimit.Limit),
	}
}

// ──────────────────────────────────────────────────
// Reseller Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateReseller(_ context.Context, r *account.Reseller) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.resellers[r.ID.String()]; exists {
		return reseller.ErrAlreadyExists
	}
	s.resellers[r.ID.String()] = r.Clone()
	return nil
}

func (s *Store) GetReseller(_ context.Context, resellerID id.ResellerID) (*account.Reseller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.resellers[resellerID.String()]; ok {
		return r.Clone(), nil
	}
	return nil, reseller.ErrResellerNotFound
}

func (s *Store) ListResellers(_ context.Context, opts account.ListOpts) ([]*account.Reseller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*account.Reseller, 0, len(s.resellers))
	for _, r := range s.resellers {
		if opts.State == "" || r.State() == opts.State {
			result = append(result, r.Clone())
		}
	}
	slices.SortFunc(result, func(a, b *account.Reseller) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID.String(), b.ID.String()))
	})
	return page(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateReseller(_ context.Context, r *account.Reseller, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.resellers[r.ID.String()]
	if !ok {
		return reseller.ErrResellerNotFound
	}
	if existing.Version != expectedVersion {
		return reseller.ErrVersionConflict
	}
	s.resellers[r.ID.String()] = r.Clone()
	return nil
}

// ──────────────────────────────────────────────────
// Wallet Store implementation
// ──────────────────────────────────────────────────

func (s *Store) GetWallet(_ context.Context, walletID id.WalletID) (*wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if w, ok := s.wallets[walletID.String()]; ok {
		c := *w
		return &c, nil
	}
	return nil, reseller.ErrWalletNotFound
}

func (s *Store) GetWalletByReseller(_ context.Context, resellerID id.ResellerID) (*wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if wid, ok := s.walletByReseller[resellerID.String()]; ok {
		c := *s.wallets[wid]
		return &c, nil
	}
	return nil, reseller.ErrWalletNotFound
}

func (s *Store) PostTransaction(_ context.Context, next *wallet.Wallet, txn *wallet.Transaction, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wid, exists := s.walletByReseller[next.ResellerID.String()]
	switch {
	case expectedVersion == 0 && exists:
		return reseller.ErrVersionConflict
	case expectedVersion != 0 && !exists:
		return reseller.ErrWalletNotFound
	case exists && (wid != next.ID.String() || s.wallets[wid].Version != expectedVersion):
		return reseller.ErrVersionConflict
	}

	key := next.ID.String()
	if txn.Reference != "" {
		for _, t := range s.transactions[key] {
			if t.Reference == txn.Reference {
				return reseller.ErrDuplicateReference
			}
		}
	}

	w := *next
	t := *txn
	s.wallets[key] = &w
	s.walletByReseller[next.ResellerID.String()] = key
	s.transactions[key] = append(s.transactions[key], &t)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, walletID id.WalletID, opts wallet.ListOpts) ([]*wallet.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.transactions[walletID.String()]
	result := make([]*wallet.Transaction, 0, len(log))
	for i := len(log) - 1; i >= 0; i-- {
		if opts.Type == "" || log[i].Type == opts.Type {
			t := *log[i]
			result = append(result, &t)
		}
	}
	return page(result, opts.Offset, opts.Limit), nil
}

func (s *Store) FindTransactionByReference(_ context.Context, walletID id.WalletID, reference string) (*wallet.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.transactions[walletID.String()] {
		if t.Reference == reference {
			c := *t
			return &c, nil
		}
	}
	return nil, reseller.ErrTransactionNotFound
}

// ──────────────────────────────────────────────────
// Validity Store implementation
// ──────────────────────────────────────────────────

func (s *Store) GetValidity(_ context.Context, resellerID id.ResellerID) (*validity.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.validity[resellerID.String()]; ok {
		c := *rec
		return &c, nil
	}
	return nil, reseller.ErrValidityNotFound
}

func (s *Store) SaveWindow(_ context.Context, rec *validity.Record, hist *validity.History, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rec.ResellerID.String()
	var current int64
	if existing, ok := s.validity[key]; ok {
		current = existing.Version
	}
	if current != expectedVersion {
		return reseller.ErrVersionConflict
	}

	r := *rec
	h := *hist
	s.validity[key] = &r
	s.history[key] = append(s.history[key], &h)
	return nil
}

func (s *Store) ListHistory(_ context.Context, resellerID id.ResellerID, opts validity.ListOpts) ([]*validity.History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.history[resellerID.String()]
	result := make([]*validity.History, 0, len(log))
	for i := len(log) - 1; i >= 0; i-- {
		if opts.Action == "" || log[i].Action == opts.Action {
			h := *log[i]
			result = append(result, &h)
		}
	}
	return page(result, opts.Offset, opts.Limit), nil
}

func (s *Store) CountHistory(_ context.Context, resellerID id.ResellerID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.history[resellerID.String()])), nil
}

func (s *Store) ListExpiring(_ context.Context, before time.Time, limit int) ([]*validity.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*validity.Record, 0)
	for _, rec := range s.validity {
		if rec.Status == validity.StatusActive && !rec.EndDate.After(before) {
			c := *rec
			result = append(result, &c)
		}
	}
	slices.SortFunc(result, func(a, b *validity.Record) int {
		return a.EndDate.Compare(b.EndDate)
	})
	return page(result, 0, limit), nil
}

// ──────────────────────────────────────────────────
// Number limit Store implementation
// ──────────────────────────────────────────────────

func (s *Store) UpsertLimit(_ context.Context, l *numberlimit.Limit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := l.ResellerID.String()
	if existing, ok := s.limits[key]; ok {
		l.ID = existing.ID
		l.CreatedAt = existing.CreatedAt
	}
	c := *l
	s.limits[key] = &c
	return nil
}

func (s *Store) GetLimit(_ context.Context, resellerID id.ResellerID) (*numberlimit.Limit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if l, ok := s.limits[resellerID.String()]; ok {
		c := *l
		return &c, nil
	}
	return nil, reseller.ErrNumberLimitNotFound
}

// ──────────────────────────────────────────────────
// Core methods
// ──────────────────────────────────────────────────

func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

// page applies offset and limit; a zero limit means no limit.
func page[T any](items []T, offset, limit int) []T {
	start := min(max(offset, 0), len(items))
	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return items[start:end]
}
