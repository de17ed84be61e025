package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xraph/grove"
	"go.mongodb.org/mongo-driver/v2/bson"

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

	ID              string     `grove:"id,pk"             bson:"_id"`
	Name            string     `grove:"name"              bson:"name"`
	Email           string     `grove:"email"             bson:"email"`
	Phone           string     `grove:"phone"             bson:"phone"`
	Status          bool       `grove:"status"            bson:"status"`
	ApprovalDate    *time.Time `grove:"approval_date"     bson:"approval_date,omitempty"`
	ApprovedBy      string     `grove:"approved_by"       bson:"approved_by"`
	RejectionReason string     `grove:"rejection_reason"  bson:"rejection_reason"`
	SuspendedAt     *time.Time `grove:"suspended_at"      bson:"suspended_at,omitempty"`
	SuspendedBy     string     `grove:"suspended_by"      bson:"suspended_by"`
	SuspendedReason string     `grove:"suspended_reason"  bson:"suspended_reason"`
	GracePeriodDays int        `grove:"grace_period_days" bson:"grace_period_days"`
	Version         int64      `grove:"version"           bson:"version"`
	CreatedAt       time.Time  `grove:"created_at"        bson:"created_at"`
	UpdatedAt       time.Time  `grove:"updated_at"        bson:"updated_at"`
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
		return nil, fmt.Errorf("parse reseller id: %w", err)
	}
	approvedBy, err := optionalID(m.ApprovedBy, id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("parse approved_by: %w", err)
	}
	suspendedBy, err := optionalID(m.SuspendedBy, id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("parse suspended_by: %w", err)
	}

	return &account.Reseller{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
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

	ID                string          `grove:"id,pk"               bson:"_id"`
	ResellerID        string          `grove:"reseller_id"         bson:"reseller_id"`
	Currency          string          `grove:"currency"            bson:"currency"`
	Balance           bson.Decimal128 `grove:"balance"             bson:"balance"`
	CreditTotal       bson.Decimal128 `grove:"credit_total"        bson:"credit_total"`
	DebitTotal        bson.Decimal128 `grove:"debit_total"         bson:"debit_total"`
	LastTransactionAt *time.Time      `grove:"last_transaction_at" bson:"last_transaction_at,omitempty"`
	Version           int64           `grove:"version"             bson:"version"`
	CreatedAt         time.Time       `grove:"created_at"          bson:"created_at"`
	UpdatedAt         time.Time       `grove:"updated_at"          bson:"updated_at"`
}

func toWalletModel(w *wallet.Wallet) (*walletModel, error) {
	balance, err := toDecimal128(w.Balance.Amount)
	if err != nil {
		return nil, err
	}
	credits, err := toDecimal128(w.CreditTotal.Amount)
	if err != nil {
		return nil, err
	}
	debits, err := toDecimal128(w.DebitTotal.Amount)
	if err != nil {
		return nil, err
	}

	return &walletModel{
		ID:                w.ID.String(),
		ResellerID:        w.ResellerID.String(),
		Currency:          w.Balance.Currency,
		Balance:           balance,
		CreditTotal:       credits,
		DebitTotal:        debits,
		LastTransactionAt: w.LastTransactionAt,
		Version:           w.Version,
		CreatedAt:         w.CreatedAt,
		UpdatedAt:         w.UpdatedAt,
	}, nil
}

func fromWalletModel(m *walletModel) (*wallet.Wallet, error) {
	walletID, err := id.ParseWalletID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse wallet id: %w", err)
	}
	resellerID, err := id.ParseResellerID(m.ResellerID)
	if err != nil {
		return nil, fmt.Errorf("parse reseller id: %w", err)
	}
	balance, err := fromDecimal128(m.Balance, m.Currency)
	if err != nil {
		return nil, err
	}
	credits, err := fromDecimal128(m.CreditTotal, m.Currency)
	if err != nil {
		return nil, err
	}
	debits, err := fromDecimal128(m.DebitTotal, m.Currency)
	if err != nil {
		return nil, err
	}

	return &wallet.Wallet{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:                walletID,
		ResellerID:        resellerID,
		Balance:           balance,
		CreditTotal:       credits,
		DebitTotal:        debits,
		LastTransactionAt: utcPtr(m.LastTransactionAt),
		Version:           m.Version,
	}, nil
}

type transactionModel struct {
	grove.BaseModel `grove:"table:reseller_wallet_transactions"`

	ID            string          `grove:"id,pk"          bson:"_id"`
	WalletID      string          `grove:"wallet_id"      bson:"wallet_id"`
	ResellerID    string          `grove:"reseller_id"    bson:"reseller_id"`
	Type          string          `grove:"type"           bson:"type"`
	Currency      string          `grove:"currency"       bson:"currency"`
	Amount        bson.Decimal128 `grove:"amount"         bson:"amount"`
	BalanceBefore bson.Decimal128 `grove:"balance_before" bson:"balance_before"`
	BalanceAfter  bson.Decimal128 `grove:"balance_after"  bson:"balance_after"`
	Description   string          `grove:"description"    bson:"description"`
	Reference     string          `grove:"reference"      bson:"reference"`
	CreatedAt     time.Time       `grove:"created_at"     bson:"created_at"`
}

func toTransactionModel(t *wallet.Transaction) (*transactionModel, error) {
	amount, err := toDecimal128(t.Amount.Amount)
	if err != nil {
		return nil, err
	}
	before, err := toDecimal128(t.BalanceBefore.Amount)
	if err != nil {
		return nil, err
	}
	after, err := toDecimal128(t.BalanceAfter.Amount)
	if err != nil {
		return nil, err
	}

	return &transactionModel{
		ID:            t.ID.String(),
		WalletID:      t.WalletID.String(),
		ResellerID:    t.ResellerID.String(),
		Type:          string(t.Type),
		Currency:      t.Amount.Currency,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   t.Description,
		Reference:     t.Reference,
		CreatedAt:     t.CreatedAt,
	}, nil
}

func fromTransactionModel(m *transactionModel) (*wallet.Transaction, error) {
	txnID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse transaction id: %w", err)
	}
	walletID, err := id.ParseWalletID(m.WalletID)
	if err != nil {
		return nil, fmt.Errorf("parse wallet id: %w", err)
	}
	resellerID, err := id.ParseResellerID(m.ResellerID)
	if err != nil {
		return nil, fmt.Errorf("parse reseller id: %w", err)
	}
	amount, err := fromDecimal128(m.Amount, m.Currency)
	if err != nil {
		return nil, err
	}
	before, err := fromDecimal128(m.BalanceBefore, m.Currency)
	if err != nil {
		return nil, err
	}
	after, err := fromDecimal128(m.BalanceAfter, m.Currency)
	if err != nil {
		return nil, err
	}

	return &wallet.Transaction{
		ID:            txnID,
		WalletID:      walletID,
		ResellerID:    resellerID,
		Type:          wallet.TxnType(m.Type),
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   m.Description,
		Reference:     m.Reference,
		CreatedAt:     m.CreatedAt.UTC(),
	}, nil
}

// ==================== Validity models ====================

type validityModel struct {
	grove.BaseModel `grove:"table:reseller_validity"`

	ID                 string           `grove:"id,pk"                bson:"_id"`
	ResellerID         string           `grove:"reseller_id"          bson:"reseller_id"`
	StartDate          time.Time        `grove:"start_date"           bson:"start_date"`
	EndDate            time.Time        `grove:"end_date"             bson:"end_date"`
	Days               int              `grove:"days"                 bson:"days"`
	LastWalletID       string           `grove:"last_wallet_id"       bson:"last_wallet_id"`
	LastRechargeAmount *bson.Decimal128 `grove:"last_recharge_amount" bson:"last_recharge_amount,omitempty"`
	Currency           string           `grove:"currency"             bson:"currency"`
	Status             string           `grove:"status"               bson:"status"`
	Version            int64            `grove:"version"              bson:"version"`
	CreatedAt          time.Time        `grove:"created_at"           bson:"created_at"`
	UpdatedAt          time.Time        `grove:"updated_at"           bson:"updated_at"`
}

func toValidityModel(r *validity.Record) (*validityModel, error) {
	amount, err := toOptionalDecimal128(r.LastRechargeAmount)
	if err != nil {
		return nil, err
	}

	return &validityModel{
		ID:                 r.ID.String(),
		ResellerID:         r.ResellerID.String(),
		StartDate:          r.StartDate,
		EndDate:            r.EndDate,
		Days:               r.Days,
		LastWalletID:       r.LastWalletID.String(),
		LastRechargeAmount: amount,
		Currency:           currencyOf(r.LastRechargeAmount),
		Status:             string(r.Status),
		Version:            r.Version,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}, nil
}

func fromValidityModel(m *validityModel) (*validity.Record, error) {
	recID, err := id.ParseValidityID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse validity id: %w", err)
	}
	resellerID, err := id.ParseResellerID(m.ResellerID)
	if err != nil {
		return nil, fmt.Errorf("parse reseller id: %w", err)
	}
	walletID, err := optionalID(m.LastWalletID, id.PrefixWallet)
	if err != nil {
		return nil, fmt.Errorf("parse last_wallet_id: %w", err)
	}
	amount, err := fromOptionalDecimal128(m.LastRechargeAmount, m.Currency)
	if err != nil {
		return nil, err
	}

	return &validity.Record{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:                 recID,
		ResellerID:         resellerID,
		StartDate:          m.StartDate.UTC(),
		EndDate:            m.EndDate.UTC(),
		Days:               m.Days,
		LastWalletID:       walletID,
		LastRechargeAmount: amount,
		Status:             validity.Status(m.Status),
		Version:            m.Version,
	}, nil
}

type historyModel struct {
	grove.BaseModel `grove:"table:reseller_validity_history"`

	ID             string           `grove:"id,pk"           bson:"_id"`
	RecordID       string           `grove:"record_id"       bson:"record_id"`
	ResellerID     string           `grove:"reseller_id"     bson:"reseller_id"`
	WalletID       string           `grove:"wallet_id"       bson:"wallet_id"`
	RechargeAmount *bson.Decimal128 `grove:"recharge_amount" bson:"recharge_amount,omitempty"`
	Currency       string           `grove:"currency"        bson:"currency"`
	PreviousStart  *time.Time       `grove:"previous_start"  bson:"previous_start,omitempty"`
	PreviousEnd    *time.Time       `grove:"previous_end"    bson:"previous_end,omitempty"`
	NewStart       time.Time        `grove:"new_start"       bson:"new_start"`
	NewEnd         time.Time        `grove:"new_end"         bson:"new_end"`
	Days           int              `grove:"days"            bson:"days"`
	Status         string           `grove:"status"          bson:"status"`
	Action         string           `grove:"action"          bson:"action"`
	CreatedAt      time.Time        `grove:"created_at"      bson:"created_at"`
}

func toHistoryModel(h *validity.History) (*historyModel, error) {
	amount, err := toOptionalDecimal128(h.RechargeAmount)
	if err != nil {
		return nil, err
	}

	return &historyModel{
		ID:             h.ID.String(),
		RecordID:       h.RecordID.String(),
		ResellerID:     h.ResellerID.String(),
		WalletID:       h.WalletID.String(),
		RechargeAmount: amount,
		Currency:       currencyOf(h.RechargeAmount),
		PreviousStart:  h.PreviousStart,
		PreviousEnd:    h.PreviousEnd,
		NewStart:       h.NewStart,
		NewEnd:         h.NewEnd,
		Days:           h.Days,
		Status:         string(h.Status),
		Action:         string(h.Action),
		CreatedAt:      h.CreatedAt,
	}, nil
}

func fromHistoryModel(m *historyModel) (*validity.History, error) {
	histID, err := id.ParseHistoryID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse history id: %w", err)
	}
	recID, err := id.ParseValidityID(m.RecordID)
	if err != nil {
		return nil, fmt.Errorf("parse record id: %w", err)
	}
	resellerID, err := id.ParseResellerID(m.ResellerID)
	if err != nil {
		return nil, fmt.Errorf("parse reseller id: %w", err)
	}
	walletID, err := optionalID(m.WalletID, id.PrefixWallet)
	if err != nil {
		return nil, fmt.Errorf("parse wallet id: %w", err)
	}
	amount, err := fromOptionalDecimal128(m.RechargeAmount, m.Currency)
	if err != nil {
		return nil, err
	}

	return &validity.History{
		ID:             histID,
		RecordID:       recID,
		ResellerID:     resellerID,
		WalletID:       walletID,
		RechargeAmount: amount,
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

	ID                string    `grove:"id,pk"               bson:"_id"`
	ResellerID        string    `grove:"reseller_id"         bson:"reseller_id"`
	MaxVirtualNumbers int       `grove:"max_virtual_numbers" bson:"max_virtual_numbers"`
	CreatedAt         time.Time `grove:"created_at"          bson:"created_at"`
	UpdatedAt         time.Time `grove:"updated_at"          bson:"updated_at"`
}

func fromLimitModel(m *limitModel) (*numberlimit.Limit, error) {
	limitID, err := id.ParseNumberLimitID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse number limit id: %w", err)
	}
	resellerID, err := id.ParseResellerID(m.ResellerID)
	if err != nil {
		return nil, fmt.Errorf("parse reseller id: %w", err)
	}

	return &numberlimit.Limit{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:                limitID,
		ResellerID:        resellerID,
		MaxVirtualNumbers: m.MaxVirtualNumbers,
	}, nil
}

// ==================== Helpers ====================

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

func currencyOf(m *types.Money) string {
	if m == nil {
		return types.DefaultCurrency
	}
	return m.Currency
}

// toDecimal128 converts through the decimal string form, which keeps every
// digit up to Decimal128's 34-digit precision.
func toDecimal128(d decimal.Decimal) (bson.Decimal128, error) {
	v, err := bson.ParseDecimal128(d.String())
	if err != nil {
		return bson.Decimal128{}, fmt.Errorf("encode amount %s: %w", d.String(), err)
	}
	return v, nil
}

func fromDecimal128(v bson.Decimal128, currency string) (types.Money, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return types.Money{}, fmt.Errorf("decode amount %s: %w", v.String(), err)
	}
	return types.New(d, currency), nil
}

func toOptionalDecimal128(m *types.Money) (*bson.Decimal128, error) {
	if m == nil {
		return nil, nil
	}
	v, err := toDecimal128(m.Amount)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func fromOptionalDecimal128(v *bson.Decimal128, currency string) (*types.Money, error) {
	if v == nil {
		return nil, nil
	}
	m, err := fromDecimal128(*v, currency)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
