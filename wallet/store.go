package wallet

import (
	"context"

	"github.com/xraph/reseller/id"
)

// Store persists wallets and their transactions.
//
// Post is the only write path once a wallet exists: it must insert txn and
// replace the wallet row with next as one atomic unit, and only when the
// stored version still equals expectedVersion. A stale version yields
// reseller.ErrVersionConflict; a reference already used on the wallet
// yields reseller.ErrDuplicateReference. With expectedVersion 0 the wallet
// row is created by the same unit and a wallet already present for the
// reseller is reported as a version conflict.
type Store interface {
	GetWallet(ctx context.Context, walletID id.WalletID) (*Wallet, error)
	GetWalletByReseller(ctx context.Context, resellerID id.ResellerID) (*Wallet, error)
	PostTransaction(ctx context.Context, next *Wallet, txn *Transaction, expectedVersion int64) error
	ListTransactions(ctx context.Context, walletID id.WalletID, opts ListOpts) ([]*Transaction, error)
	FindTransactionByReference(ctx context.Context, walletID id.WalletID, reference string) (*Transaction, error)
}

// ListOpts filters a transaction listing. Results are newest first.
type ListOpts struct {
	Type   TxnType
	Limit  int
	Offset int
}
