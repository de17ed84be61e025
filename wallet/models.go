// Package wallet defines the prepaid wallet and its append-only transaction log.
package wallet

import (
	"time"

	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/types"
)

// TxnType is the direction of a wallet transaction.
type TxnType string

const (
	TxnCredit TxnType = "CREDIT"
	TxnDebit  TxnType = "DEBIT"
)

// Wallet is the prepaid balance account of a single reseller.
// Balance always equals CreditTotal minus DebitTotal.
type Wallet struct {
	types.Entity
	ID                id.WalletID   `json:"id"`
	ResellerID        id.ResellerID `json:"reseller_id"`
	Balance           types.Money   `json:"balance"`
	CreditTotal       types.Money   `json:"credit_total"`
	DebitTotal        types.Money   `json:"debit_total"`
	LastTransactionAt *time.Time    `json:"last_transaction_at,omitempty"`
	Version           int64         `json:"version"`
}

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID            id.TransactionID `json:"id"`
	WalletID      id.WalletID      `json:"wallet_id"`
	ResellerID    id.ResellerID    `json:"reseller_id"`
	Type          TxnType          `json:"type"`
	Amount        types.Money      `json:"amount"`
	BalanceBefore types.Money      `json:"balance_before"`
	BalanceAfter  types.Money      `json:"balance_after"`
	Description   string           `json:"description"`
	Reference     string           `json:"reference,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Empty returns a zero-balance wallet for a reseller. It is not persisted.
func Empty(resellerID id.ResellerID, currency string, now time.Time) *Wallet {
	return &Wallet{
		Entity:      types.NewEntity(now),
		ID:          id.NewWalletID(),
		ResellerID:  resellerID,
		Balance:     types.Zero(currency),
		CreditTotal: types.Zero(currency),
		DebitTotal:  types.Zero(currency),
	}
}

// Apply returns the wallet state after txn is posted, with the version bumped.
// The receiver is not modified.
func (w *Wallet) Apply(txn *Transaction) *Wallet {
	next := *w
	switch txn.Type {
	case TxnCredit:
		next.Balance = w.Balance.Add(txn.Amount)
		next.CreditTotal = w.CreditTotal.Add(txn.Amount)
	case TxnDebit:
		next.Balance = w.Balance.Subtract(txn.Amount)
		next.DebitTotal = w.DebitTotal.Add(txn.Amount)
	}
	at := txn.CreatedAt
	next.LastTransactionAt = &at
	next.UpdatedAt = txn.CreatedAt
	next.Version = w.Version + 1
	return &next
}
