package postgres

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/xraph/grove"

	"github.com/xraph/reseller/account"
	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/numberlimit"
	"github.com/xraph/reseller/types"
	"github.com/xraph/reseller/validity"
	"github.com/xraph/reseller/wallet"
)

// ==================== Reseller models ====================

type resellerModel struct {
	grove.BaseModel `grove:"table:reseller_accounts"`

	ID              string     `grove:"id,pk"`
	Name            string     `grove:"name"`
	Email           string     `grove:"email"`
	Phone           string     `grove:"phone"`
	Status          bool       `grove:"status"`
	ApprovalDate    *time.Time `grove:"approval_date"`
	ApprovedBy      string     `grove:"approved_by"`
	RejectionReason string     `grove:"rejection_reason"`
	SuspendedAt     *time.Time `grove:"suspended_at"`
	SuspendedBy     string     `grove:"suspended_by"`
	SuspendedReason string     `grove:"suspended_reason"`
	GracePeriodDays int        `grove:"grace_period_days"`
	Version         int64      `grove:"version"`
	CreatedAt       time.Time  `grove:"created_at"`
	UpdatedAt       time.Time  `grove:"updated_at"`
}

func toResellerModel(r *account.Reseller) *resellerModel {
	return &resellerModel{
		ID:              r.ID.String(),
		Name:            r.Name,
		Email:           r.Email,
		Phone:           r.Phone,
		Status:          r.Status,
		ApprovalDate:    r.ApprovalDate,
		ApprovedBy:      r.ApprovedBy.String(),
		RejectionReason: r.RejectionReason,
		SuspendedAt:     r.SuspendedAt,
		SuspendedBy:     r.SuspendedBy.String(),
		SuspendedReason: r.SuspendedReason,
		GracePeriodDays: r.GracePeriodDays,
		Version:         r.Version,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func fromResellerModel(m *resellerModel) (*account.Reseller, error) {
	resellerID, err := id.ParseResellerID(m.ID)
	if err != nil {
		return nil, err
	}
	approvedBy, err := optionalID(m.ApprovedBy, id.PrefixUser)
	if err != nil {
		return nil, err
	}
	suspendedBy, err := optionalID(m.SuspendedBy, id.PrefixUser)
	if err != nil {
		return nil, err
	}

	return &account.Reseller{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:              resellerID,
		Name:            m.Name,
		Email:           m.Email,
		Phone:           m.Phone,
		Status:          m.Status,
		ApprovalDate:    utcPtr(m.ApprovalDate),
		ApprovedBy:      approvedBy,
		RejectionReason: m.RejectionReason,
		SuspendedAt:     utcPtr(m.SuspendedAt),
		SuspendedBy:     suspendedBy,
		SuspendedReason: m.SuspendedReason,
		GracePeriodDays: m.GracePeriodDays,
		Version:         m.Version,
	}, nil
}

// ==================== Wallet models ====================

type walletModel struct {
	grove.BaseModel `grove:"table:reseller_wallets"`

	ID                string          `grove:"id,pk"`
	ResellerID        string          `grove:"reseller_id"`
	Currency          string          `grove:"currency"`
	Balance           decimal.Decimal `grove:"balance,type:numeric"`
	CreditTotal       decimal.Decimal `grove:"credit_total,type:numeric"`
	DebitTotal        decimal.Decimal `grove:"debit_total,type:numeric"`
	LastTransactionAt *time.Time      `grove:"last_transaction_at"`
	Version           int64           `grove:"version"`
	CreatedAt         time.Time       `grove:"created_at"`
	UpdatedAt         time.Time       `grove:"updated_at"`
}

func fromWalletModel(m *walletModel) (*wallet.Wallet, error) {
	walletID, err := id.ParseWalletID(m.ID)
	if err != nil {
		return nil, err
	}
	resellerID, err := id.ParseResellerID(m.ResellerID)
	if err != nil {
		return nil, err
	}

	return &wallet.Wallet{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                walletID,
		ResellerID:        resellerID,
		Balance:           types.New(m.Balance, m.Currency),
		CreditTotal:       types.New(m.CreditTotal, m.Currency),
		DebitTotal:        types.New(m.DebitTotal, m.Currency),
		LastTransactionAt: utcPtr(m.LastTransactionAt),
		Version:           m.Version,
	}, nil
}

type transactionModel struct {
	grove.BaseModel `grove:"table:reseller_wallet_transactions"`

	ID            string          `grove:"id,pk"`
	WalletID      string          `grove:"wallet_id"`
	ResellerID    string          `grove:"reseller_id"`
	Type          string          `grove:"type"`
	Currency      string          `grove:"currency"`
	Amount        decimal.Decimal `grove:"amount,type:numeric"`
	BalanceBefore decimal.Decimal `grove:"balance_before,type:numeric"`
	BalanceAfter  decimal.Decimal `grove:"balance_after,type:numeric"`
	Description   string          `grove:"description"`
	Reference     string          `grove:"reference"`
	CreatedAt     time.Time       `grove:"created_at"`
}

func fromTransactionModel(m *transactionModel) (*wallet.Transaction, error) {
	txnID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, err
	}
	walletID, err := id.ParseWalletID(m.WalletID)
	if err != nil {
		return nil, err
	}
	resellerID, err := id.ParseResellerID(m.ResellerID)
	if err != nil {
		return nil, err
	}

	return &wallet.Transaction{
		ID:            txnID,
		WalletID:      walletID,
		ResellerID:    resellerID,
		Type:          wallet.TxnType(m.Type),
		Amount:        types.New(m.Amount, m.Currency),
		BalanceBefore: types.New(m.BalanceBefore, m.Currency),
		BalanceAfter:  types.New(m.BalanceAfter, m.Currency),
		Description:   m.Description,
		Reference:     m.Reference,
		CreatedAt:     m.CreatedAt.UTC(),
	}, nil
}

// ==================== Validity models ====================

type validityModel struct {
	grove.BaseModel `grove:"table:reseller_validity"`

	ID                 string              `grove:"id,pk"`
	ResellerID         string              `grove:"reseller_id"`
	StartDate          time.Time           `grove:"start_date"`
	EndDate            time.Time           `grove:"end_date"`
	Days               int                 `grove:"days"`
	LastWalletID       string              `grove:"last_wallet_id"`
	LastRechargeAmount decimal.NullDecimal `grove:"last_recharge_amount,type:numeric"`
	Currency           string              `grove:"currency"`
	Status             string              `grove:"status"`
	Version            int64               `grove:"version"`
	CreatedAt          time.Time           `grove:"created_at"`
	UpdatedAt          time.Time           `grove:"updated_at"`
}

func fromValidityModel(m *validityModel) (*validity.Record, error) {
	recID, err := id.ParseValidityID(m.ID)
	if err != nil {
		return nil, err
	}
	resellerID, err := id.ParseResellerID(m.ResellerID)
	if err != nil {
		return nil, err
	}
	walletID, err := optionalID(m.LastWalletID, id.PrefixWallet)
	if err != nil {
		return nil, err
	}

	return &validity.Record{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                 recID,
		ResellerID:         resellerID,
		StartDate:          m.StartDate.UTC(),
		EndDate:            m.EndDate.UTC(),
		Days:               m.Days,
		LastWalletID:       walletID,
		LastRechargeAmount: moneyPtr(m.LastRechargeAmount, m.Currency),
		Status:             validity.Status(m.Status),
		Version:            m.Version,
	}, nil
}

type historyModel struct {
	grove.BaseModel `grove:"table:reseller_validity_history"`

	ID             string              `grove:"id,pk"`
	RecordID       string              `grove:"record_id"`
	ResellerID     string              `grove:"reseller_id"`
	WalletID       string              `grove:"wallet_id"`
	RechargeAmount decimal.NullDecimal `grove:"recharge_amount,type:numeric"`
	Currency       string              `grove:"currency"`
	PreviousStart  *time.Time          `grove:"previous_start"`
	PreviousEnd    *time.Time          `grove:"previous_end"`
	NewStart       time.Time           `grove:"new_start"`
	NewEnd         time.Time           `grove:"new_end"`
	Days           int                 `grove:"days"`
	Status         string              `grove:"status"`
	Action         string              `grove:"action"`
	CreatedAt      time.Time           `grove:"created_at"`
}

func fromHistoryModel(m *historyModel) (*validity.History, error) {
	histID, err := id.ParseHistoryID(m.ID)
	if err != nil {
		return nil, err
	}
	recID, err := id.ParseValidityID(m.RecordID)
	if err != nil {
		return nil, err
	}
	resellerID, err := id.ParseResellerID(m.ResellerID)
	if err != nil {
		return nil, err
	}
	walletID, err := optionalID(m.WalletID, id.PrefixWallet)
	if err != nil {
		return nil, err
	}

	return &validity.History{
		ID:             histID,
		RecordID:       recID,
		ResellerID:     resellerID,
		WalletID:       walletID,
		RechargeAmount: moneyPtr(m.RechargeAmount, m.Currency),
		PreviousStart:  utcPtr(m.PreviousStart),
		PreviousEnd:    utcPtr(m.PreviousEnd),
		NewStart:       m.NewStart.UTC(),
		NewEnd:         m.NewEnd.UTC(),
		Days:           m.Days,
		Status:         validity.Status(m.Status),
		Action:         validity.Action(m.Action),
		CreatedAt:      m.CreatedAt.UTC(),
	}, nil
}

// ==================== Number limit models ====================

type limitModel struct {
	grove.BaseModel `grove:"table:reseller_number_limits"`

	ID                string    `grove:"id,pk"`
	ResellerID        string    `grove:"reseller_id"`
	MaxVirtualNumbers int       `grove:"max_virtual_numbers"`
	CreatedAt         time.Time `grove:"created_at"`
	UpdatedAt         time.Time `grove:"updated_at"`
}

func toLimitModel(l *numberlimit.Limit) *limitModel {
	return &limitModel{
		ID:                l.ID.String(),
		ResellerID:        l.ResellerID.String(),
		MaxVirtualNumbers: l.MaxVirtualNumbers,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}
}

func fromLimitModel(m *limitModel) (*numberlimit.Limit, error) {
	limitID, err := id.ParseNumberLimitID(m.ID)
	if err != nil {
		return nil, err
	}
	resellerID, err := id.ParseResellerID(m.ResellerID)
	if err != nil {
		return nil, err
	}

	return &numberlimit.Limit{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                limitID,
		ResellerID:        resellerID,
		MaxVirtualNumbers: m.MaxVirtualNumbers,
	}, nil
}

// ==================== Helpers ====================

// optionalID parses an ID column that may hold the empty string.
func optionalID(s string, prefix id.Prefix) (id.ID, error) {
	if s == "" {
		return id.Nil, nil
	}
	return id.ParseWithPrefix(s, prefix)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func moneyPtr(d decimal.NullDecimal, currency string) *types.Money {
	if !d.Valid {
		return nil
	}
	m := types.New(d.Decimal, currency)
	return &m
}

func nullDecimal(m *types.Money) decimal.NullDecimal {
	if m == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(m.Amount)
}

// currencyOf returns the currency of the first non-nil amount.
func currencyOf(amounts ...*types.Money) string {
	for _, m := range amounts {
		if m != nil {
			return m.Currency
		}
	}
	return types.DefaultCurrency
}
