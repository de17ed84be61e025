package reseller_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/reseller"
	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/types"
	"github.com/xraph/reseller/validity"
	"github.com/xraph/reseller/wallet"
)

func TestRechargeAndDebit(t *testing.T) {
	rec := &recorder{}
	f := newFixture(t, reseller.WithPlugin(rec))
	ctx := context.Background()
	r := f.approved(t, reseller.ApproveInput{})

	res, err := f.eng.Recharge(ctx, f.admin, r.ID, reseller.RechargeInput{Amount: types.INR(500)})
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, wallet.TxnCredit, res.Transaction.Type)
	assert.Equal(t, "Wallet recharge", res.Transaction.Description)
	assertMoney(t, "0", res.Transaction.BalanceBefore)
	assertMoney(t, "500", res.Transaction.BalanceAfter)

	p, err := f.eng.Debit(ctx, f.admin, r.ID, reseller.DebitInput{Amount: types.MustParse("199.99", "inr")})
	require.NoError(t, err)
	assertMoney(t, "500", p.Transaction.BalanceBefore)
	assertMoney(t, "300.01", p.Transaction.BalanceAfter)

	w := f.walletOf(t, r.ID)
	assertMoney(t, "300.01", w.Balance)
	assertMoney(t, "500", w.CreditTotal)
	assertMoney(t, "199.99", w.DebitTotal)
	assert.True(t, w.Balance.Equal(w.CreditTotal.Subtract(w.DebitTotal)))
	assert.Equal(t, int64(2), w.Version)
	require.NotNil(t, w.LastTransactionAt)

	txns, err := f.eng.ListTransactions(ctx, w.ID, wallet.ListOpts{})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, wallet.TxnDebit, txns[0].Type, "newest first")
	assert.Equal(t, wallet.TxnCredit, txns[1].Type)

	credits, err := f.eng.ListTransactions(ctx, w.ID, wallet.ListOpts{Type: wallet.TxnCredit})
	require.NoError(t, err)
	require.Len(t, credits, 1)

	assert.Equal(t, []string{"approved", "credited", "debited"}, rec.Events())
}

func TestDebitBySystemActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.approved(t, reseller.ApproveInput{WalletBalance: types.INR(100)})

	p, err := f.eng.Debit(ctx, reseller.System(id.NewUserID()), r.ID, reseller.DebitInput{
		Amount:      types.INR(40),
		Description: "Virtual number rental",
	})
	require.NoError(t, err)
	assert.Equal(t, "Virtual number rental", p.Transaction.Description)
	assertMoney(t, "60", p.Wallet.Balance)
}

func TestDebitInsufficientFunds(t *testing.T) {
	rec := &recorder{}
	f := newFixture(t, reseller.WithPlugin(rec))
	ctx := context.Background()
	r := f.approved(t, reseller.ApproveInput{WalletBalance: types.INR(300)})

	_, err := f.eng.Debit(ctx, f.admin, r.ID, reseller.DebitInput{Amount: types.INR(301)})
	require.ErrorIs(t, err, reseller.ErrInsufficientFunds)
	assert.Equal(t, reseller.KindInsufficientFunds, reseller.KindOf(err))

	w := f.walletOf(t, r.ID)
	assertMoney(t, "300", w.Balance)
	assert.Equal(t, int64(1), w.Version)
	assert.Contains(t, rec.Events(), "insufficient_funds")

	// The exact balance can be spent.
	p, err := f.eng.Debit(ctx, f.admin, r.ID, reseller.DebitInput{Amount: types.INR(300)})
	require.NoError(t, err)
	assert.True(t, p.Wallet.Balance.IsZero())
}

func TestDebitWithoutWallet(t *testing.T) {
	f := newFixture(t)
	r := f.approved(t, reseller.ApproveInput{})

	_, err := f.eng.Debit(context.Background(), f.admin, r.ID, reseller.DebitInput{Amount: types.INR(1)})
	require.ErrorIs(t, err, reseller.ErrWalletNotFound)
	assert.Equal(t, reseller.KindNotFound, reseller.KindOf(err))
}

func TestDebitUnknownReseller(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.Debit(context.Background(), f.admin, id.NewResellerID(), reseller.DebitInput{Amount: types.INR(1)})
	require.ErrorIs(t, err, reseller.ErrResellerNotFound)
}

func TestLedgerRejectsBadAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.approved(t, reseller.ApproveInput{WalletBalance: types.INR(100)})

	tests := []struct {
		name   string
		amount types.Money
	}{
		{"zero", types.Zero("inr")},
		{"negative", types.INR(-5)},
		{"other currency", types.USD(5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.eng.Recharge(ctx, f.admin, r.ID, reseller.RechargeInput{Amount: tt.amount})
			var ve reseller.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "amount", ve.Field)

			_, err = f.eng.Debit(ctx, f.admin, r.ID, reseller.DebitInput{Amount: tt.amount})
			require.ErrorIs(t, err, reseller.ErrInvalidInput)
		})
	}

	// Currency codes compare case-insensitively.
	upper, err := f.eng.Debit(ctx, f.admin, r.ID, reseller.DebitInput{
		Amount: types.Money{Amount: types.INR(1).Amount, Currency: "INR"},
	})
	require.NoError(t, err)
	assert.Equal(t, "inr", upper.Transaction.Amount.Currency)

	// A missing currency defaults to the wallet currency.
	res, err := f.eng.Recharge(ctx, f.admin, r.ID, reseller.RechargeInput{Amount: types.MustParse("1", "")})
	require.NoError(t, err)
	assert.Equal(t, "inr", res.Transaction.Amount.Currency)

	assertMoney(t, "100", f.walletOf(t, r.ID).Balance)
}

func TestRechargeRequiresApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.register(t)

	_, err := f.eng.Recharge(ctx, f.admin, r.ID, reseller.RechargeInput{Amount: types.INR(100)})
	require.ErrorIs(t, err, reseller.ErrNotApproved)
	assert.Equal(t, reseller.KindStateConflict, reseller.KindOf(err))

	_, err = f.eng.GetWallet(ctx, r.ID)
	require.ErrorIs(t, err, reseller.ErrWalletNotFound)

	_, err = f.eng.Recharge(ctx, f.admin, id.NewResellerID(), reseller.RechargeInput{Amount: types.INR(100)})
	require.ErrorIs(t, err, reseller.ErrResellerNotFound)
}

func TestRechargeAllowedWhileSuspended(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.approved(t, reseller.ApproveInput{WalletBalance: types.INR(100)})

	_, err := f.eng.Suspend(ctx, f.admin, r.ID, "chargeback under review")
	require.NoError(t, err)

	res, err := f.eng.Recharge(ctx, f.admin, r.ID, reseller.RechargeInput{Amount: types.INR(50)})
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	require.NotNil(t, res.Validity)
	assert.Equal(t, validity.StatusSuspended, res.Validity.Status, "a recharge does not lift the suspension")
	assertMoney(t, "150", res.Wallet.Balance)

	back, err := f.eng.Reactivate(ctx, f.admin, r.ID)
	require.NoError(t, err)
	require.NotNil(t, back.Validity)
	assert.Equal(t, validity.StatusActive, back.Validity.Status)

	hist, err := f.eng.ListValidityHistory(ctx, r.ID, validity.ListOpts{Limit: 1})
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, validity.ActionReactivated, hist[0].Action)
}

func TestFirstRechargeWhileSuspendedOpensSuspendedWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.approved(t, reseller.ApproveInput{})

	_, err := f.eng.Suspend(ctx, f.admin, r.ID, "chargeback under review")
	require.NoError(t, err)

	res, err := f.eng.Recharge(ctx, f.admin, r.ID, reseller.RechargeInput{Amount: types.INR(100)})
	require.NoError(t, err)
	require.NotNil(t, res.Validity)
	assert.Equal(t, validity.StatusSuspended, res.Validity.Status)
}

func TestRechargeReferenceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.approved(t, reseller.ApproveInput{WalletBalance: types.INR(100)})

	in := reseller.RechargeInput{Amount: types.INR(250), Reference: "PAY-2025-0001"}
	first, err := f.eng.Recharge(ctx, f.admin, r.ID, in)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := f.eng.Recharge(ctx, f.admin, r.ID, in)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Transaction.ID, second.Transaction.ID)

	w := f.walletOf(t, r.ID)
	assertMoney(t, "350", w.Balance)

	txns, err := f.eng.ListTransactions(ctx, w.ID, wallet.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, txns, 2)

	// Same reference, different amount.
	_, err = f.eng.Recharge(ctx, f.admin, r.ID, reseller.RechargeInput{Amount: types.INR(999), Reference: "PAY-2025-0001"})
	var ve reseller.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "reference", ve.Field)

	// Same reference used for a debit.
	_, err = f.eng.Debit(ctx, f.admin, r.ID, reseller.DebitInput{Amount: types.INR(250), Reference: "PAY-2025-0001"})
	require.ErrorIs(t, err, reseller.ErrInvalidInput)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	f := newFixture(t, reseller.WithMaxWriteRetries(1000))
	ctx := context.Background()
	r := f.approved(t, reseller.ApproveInput{WalletBalance: types.INR(100)})

	const workers = 20
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		succeeded    int
		insufficient int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.eng.Debit(ctx, reseller.System(id.NewUserID()), r.ID, reseller.DebitInput{Amount: types.INR(10)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, reseller.ErrInsufficientFunds):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, workers-10, insufficient)

	w := f.walletOf(t, r.ID)
	assert.True(t, w.Balance.IsZero())
	assertMoney(t, "100", w.DebitTotal)
	assert.Equal(t, int64(11), w.Version)
}

func TestConcurrentRechargesAllPost(t *testing.T) {
	f := newFixture(t, reseller.WithMaxWriteRetries(1000))
	ctx := context.Background()
	r := f.approved(t, reseller.ApproveInput{})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.eng.Recharge(ctx, f.admin, r.ID, reseller.RechargeInput{Amount: types.INR(10)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	w := f.walletOf(t, r.ID)
	assertMoney(t, "100", w.Balance)
	assertMoney(t, "100", w.CreditTotal)
}
