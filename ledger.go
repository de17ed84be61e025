package reseller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/plugin"
	"github.com/xraph/reseller/types"
	"github.com/xraph/reseller/wallet"
)

// Posting is the outcome of a credit or debit.
type Posting struct {
	Wallet      *wallet.Wallet      `json:"wallet"`
	Transaction *wallet.Transaction `json:"transaction"`
	// Replayed is set when the reference was already posted and the
	// original transaction is returned instead of a new one.
	Replayed bool `json:"replayed"`
}

// ledgerEngine owns wallet balances and the transaction log. Every posting
// is a read of the current wallet followed by a version-checked write of the
// transaction and the new balance, retried on conflict.
type ledgerEngine struct {
	store    wallet.Store
	plugins  *plugin.Registry
	logger   *slog.Logger
	now      func() time.Time
	currency string
	retries  int
}

func (l *ledgerEngine) credit(ctx context.Context, resellerID id.ResellerID, amount types.Money, description, reference string) (*Posting, error) {
	return l.post(ctx, wallet.TxnCredit, resellerID, amount, description, reference)
}

func (l *ledgerEngine) debit(ctx context.Context, resellerID id.ResellerID, amount types.Money, description, reference string) (*Posting, error) {
	return l.post(ctx, wallet.TxnDebit, resellerID, amount, description, reference)
}

// checkAmount normalizes amount to the wallet currency and rejects
// non-positive values.
func (l *ledgerEngine) checkAmount(field string, amount types.Money) (types.Money, error) {
	amount = types.New(amount.Amount, amount.Currency)
	if amount.Currency == "" {
		amount.Currency = l.currency
	}
	if amount.Currency != l.currency {
		return amount, invalid(field, "currency %q does not match wallet currency %q", amount.Currency, l.currency)
	}
	if !amount.IsPositive() {
		return amount, invalid(field, "must be greater than zero")
	}
	return amount, nil
}

func (l *ledgerEngine) post(ctx context.Context, typ wallet.TxnType, resellerID id.ResellerID, amount types.Money, description, reference string) (*Posting, error) {
	if err := requireID("reseller_id", resellerID, id.PrefixReseller); err != nil {
		return nil, err
	}
	amount, err := l.checkAmount("amount", amount)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= l.retries; attempt++ {
		current, err := l.store.GetWalletByReseller(ctx, resellerID)
		switch {
		case err == nil:
		case IsNotFound(err) && typ == wallet.TxnCredit:
			current = wallet.Empty(resellerID, l.currency, l.now())
		case IsNotFound(err):
			return nil, ErrWalletNotFound
		default:
			return nil, persistence("get wallet", err)
		}

		if reference != "" && current.Version > 0 {
			prior, err := l.store.FindTransactionByReference(ctx, current.ID, reference)
			switch {
			case err == nil:
				return l.replay(current, prior, typ, amount)
			case !IsNotFound(err):
				return nil, persistence("find reference", err)
			}
		}

		if typ == wallet.TxnDebit && amount.GreaterThan(current.Balance) {
			l.plugins.EmitInsufficientFunds(ctx, resellerID, amount, current.Balance)
			return nil, fmt.Errorf("%w: requested %s, available %s", ErrInsufficientFunds, amount, current.Balance)
		}

		now := l.now()
		txn := &wallet.Transaction{
			ID:            id.NewTransactionID(),
			WalletID:      current.ID,
			ResellerID:    resellerID,
			Type:          typ,
			Amount:        amount,
			BalanceBefore: current.Balance,
			Description:   description,
			Reference:     reference,
			CreatedAt:     now,
		}
		next := current.Apply(txn)
		txn.BalanceAfter = next.Balance

		err = l.store.PostTransaction(ctx, next, txn, current.Version)
		switch {
		case err == nil:
			l.logger.Debug("wallet transaction posted",
				"reseller_id", resellerID.String(),
				"wallet_id", next.ID.String(),
				"type", string(typ),
				"amount", amount.Amount.String(),
				"balance", next.Balance.Amount.String(),
			)
			if typ == wallet.TxnCredit {
				l.plugins.EmitWalletCredited(ctx, next, txn)
			} else {
				l.plugins.EmitWalletDebited(ctx, next, txn)
			}
			return &Posting{Wallet: next, Transaction: txn}, nil
		case errors.Is(err, ErrVersionConflict), errors.Is(err, ErrDuplicateReference):
			// Lost a race; re-read. A duplicate reference replays next pass.
			l.logger.Debug("wallet write conflict, retrying",
				"reseller_id", resellerID.String(),
				"attempt", attempt,
			)
			continue
		default:
			return nil, persistence("post transaction", err)
		}
	}

	return nil, fmt.Errorf("%w: wallet of %s", ErrTransactionFailed, resellerID)
}

// replay returns a previously posted transaction for the same reference.
// A reference reused for a different type or amount is rejected.
func (l *ledgerEngine) replay(w *wallet.Wallet, prior *wallet.Transaction, typ wallet.TxnType, amount types.Money) (*Posting, error) {
	if prior.Type != typ || !prior.Amount.Equal(amount) {
		return nil, invalid("reference", "already used by a %s of %s", prior.Type, prior.Amount)
	}
	l.logger.Info("wallet transaction replayed",
		"wallet_id", w.ID.String(),
		"transaction_id", prior.ID.String(),
		"reference", prior.Reference,
	)
	return &Posting{Wallet: w, Transaction: prior, Replayed: true}, nil
}

func (l *ledgerEngine) getWallet(ctx context.Context, resellerID id.ResellerID) (*wallet.Wallet, error) {
	if err := requireID("reseller_id", resellerID, id.PrefixReseller); err != nil {
		return nil, err
	}
	w, err := l.store.GetWalletByReseller(ctx, resellerID)
	if IsNotFound(err) {
		return nil, ErrWalletNotFound
	}
	return w, persistence("get wallet", err)
}

func (l *ledgerEngine) transactions(ctx context.Context, walletID id.WalletID, opts wallet.ListOpts) ([]*wallet.Transaction, error) {
	if err := requireID("wallet_id", walletID, id.PrefixWallet); err != nil {
		return nil, err
	}
	if _, err := l.store.GetWallet(ctx, walletID); err != nil {
		if IsNotFound(err) {
			return nil, ErrWalletNotFound
		}
		return nil, persistence("get wallet", err)
	}
	txns, err := l.store.ListTransactions(ctx, walletID, opts)
	return txns, persistence("list transactions", err)
}
