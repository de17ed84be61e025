package reseller_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/reseller"
	"github.com/xraph/reseller/account"
	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/numberlimit"
	"github.com/xraph/reseller/store/memory"
	"github.com/xraph/reseller/types"
	"github.com/xraph/reseller/validity"
)

// faultyStore fails selected writes after the approval has committed.
type faultyStore struct {
	*memory.Store
	limitErr  error
	windowErr error
}

func (s *faultyStore) UpsertLimit(ctx context.Context, l *numberlimit.Limit) error {
	if s.limitErr != nil {
		return s.limitErr
	}
	return s.Store.UpsertLimit(ctx, l)
}

func (s *faultyStore) SaveWindow(ctx context.Context, rec *validity.Record, hist *validity.History, expected int64) error {
	if s.windowErr != nil {
		return s.windowErr
	}
	return s.Store.SaveWindow(ctx, rec, hist, expected)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	r := f.register(t)

	assert.True(t, r.ID.HasPrefix(id.PrefixReseller))
	assert.Equal(t, "ops@acme.example", r.Email)
	assert.Equal(t, account.StatePending, r.State())
	assert.False(t, r.Status)
	assert.Equal(t, int64(1), r.Version)
	assert.Equal(t, epoch, r.CreatedAt)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    reseller.RegisterInput
		field string
	}{
		{"blank name", reseller.RegisterInput{Name: "  ", Email: "a@b.example"}, "name"},
		{"bad email", reseller.RegisterInput{Name: "Acme", Email: "nobody"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.eng.Register(ctx, f.admin, tt.in)
			var ve reseller.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	list, err := f.eng.ListResellers(ctx, account.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestApproveWithSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.register(t)
	limit := 50

	res, err := f.eng.Approve(ctx, f.admin, r.ID, reseller.ApproveInput{
		WalletBalance:   types.INR(1000),
		GracePeriodDays: 7,
		NumberLimit:     &limit,
	})
	require.NoError(t, err)
	require.Empty(t, res.Warnings)

	assert.Equal(t, account.StateApproved, res.Reseller.State())
	assert.True(t, res.Reseller.Status)
	assert.Equal(t, f.admin.ID, res.Reseller.ApprovedBy)
	require.NotNil(t, res.Reseller.ApprovalDate)
	assert.Equal(t, epoch, *res.Reseller.ApprovalDate)
	assert.Equal(t, 7, res.Reseller.GracePeriodDays)
	assert.Equal(t, int64(2), res.Reseller.Version)

	require.NotNil(t, res.Wallet)
	assertMoney(t, "1000", res.Wallet.Balance)
	assert.Equal(t, "Initial balance on approval", res.Transaction.Description)

	require.NotNil(t, res.Validity)
	assert.Equal(t, 365, res.Validity.Days)
	hist, err := f.eng.ListValidityHistory(ctx, r.ID, validity.ListOpts{})
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, validity.ActionApproval, hist[0].Action)

	require.NotNil(t, res.NumberLimit)
	got, err := f.eng.GetNumberLimit(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, got.MaxVirtualNumbers)
}

func TestApproveWithoutBalanceSkipsWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.register(t)

	res, err := f.eng.Approve(ctx, f.admin, r.ID, reseller.ApproveInput{})
	require.NoError(t, err)
	assert.Nil(t, res.Wallet)
	assert.Nil(t, res.Validity)
	assert.Nil(t, res.NumberLimit)

	_, err = f.eng.GetWallet(ctx, r.ID)
	require.ErrorIs(t, err, reseller.ErrWalletNotFound)
	_, err = f.eng.GetNumberLimit(ctx, r.ID)
	require.ErrorIs(t, err, reseller.ErrNumberLimitNotFound)
}

func TestApproveWithDateOnly(t *testing.T) {
	f := newFixture(t)
	r := f.register(t)

	res, err := f.eng.Approve(context.Background(), f.admin, r.ID, reseller.ApproveInput{
		ValidityDate: date(2025, time.July, 1),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Validity)
	assert.Nil(t, res.Validity.LastRechargeAmount)
	assert.Equal(t, 31, res.Validity.Days)
}

func TestApproveValidationPrecedesWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.register(t)
	negative := -1

	inputs := []reseller.ApproveInput{
		{GracePeriodDays: -1},
		{NumberLimit: &negative},
		{WalletBalance: types.INR(-10)},
		{WalletBalance: types.USD(10)},
		{ValidityDate: date(2025, time.January, 1)},
	}
	for _, in := range inputs {
		_, err := f.eng.Approve(ctx, f.admin, r.ID, in)
		require.ErrorIs(t, err, reseller.ErrInvalidInput)
	}

	got, err := f.eng.GetReseller(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, account.StatePending, got.State())
	assert.Equal(t, int64(1), got.Version)
}

func TestApproveTwice(t *testing.T) {
	f := newFixture(t)
	r := f.approved(t, reseller.ApproveInput{})

	_, err := f.eng.Approve(context.Background(), f.admin, r.ID, reseller.ApproveInput{})
	require.ErrorIs(t, err, reseller.ErrAlreadyApproved)
	assert.Equal(t, reseller.KindStateConflict, reseller.KindOf(err))
}

func TestApproveUnknownReseller(t *testing.T) {
	f := newFixture(t)

	_, err := f.eng.Approve(context.Background(), f.admin, id.NewResellerID(), reseller.ApproveInput{})
	require.ErrorIs(t, err, reseller.ErrResellerNotFound)
	assert.Equal(t, reseller.KindNotFound, reseller.KindOf(err))
}

func TestApprovePartialFailure(t *testing.T) {
	rec := &recorder{}
	s := &faultyStore{Store: memory.New(), limitErr: errors.New("connection reset")}
	f := newFixtureWithStore(t, s, reseller.WithPlugin(rec))
	ctx := context.Background()
	r := f.register(t)
	limit := 10

	res, err := f.eng.Approve(ctx, f.admin, r.ID, reseller.ApproveInput{
		WalletBalance: types.INR(200),
		NumberLimit:   &limit,
	})
	require.NoError(t, err, "the approval itself is authoritative")
	require.Len(t, res.Warnings, 1)
	assert.ErrorIs(t, res.Warnings[0], reseller.ErrPersistence)
	assert.Equal(t, reseller.KindPersistence, reseller.KindOf(res.Warnings[0]))
	require.Error(t, reseller.Warning(res.Warnings))

	// The other sub-steps still ran.
	assert.NotNil(t, res.Wallet)
	assert.NotNil(t, res.Validity)
	assert.Nil(t, res.NumberLimit)

	got, err := f.eng.GetReseller(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, account.StateApproved, got.State())
	assert.Contains(t, rec.Events(), "approval_partial")
}

func TestRechargeWindowFailureIsWarning(t *testing.T) {
	s := &faultyStore{Store: memory.New()}
	f := newFixtureWithStore(t, s)
	ctx := context.Background()
	r := f.approved(t, reseller.ApproveInput{})

	s.windowErr = errors.New("disk full")
	res, err := f.eng.Recharge(ctx, f.admin, r.ID, reseller.RechargeInput{Amount: types.INR(100)})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Nil(t, res.Validity)
	assertMoney(t, "100", f.walletOf(t, r.ID).Balance)
}

func TestRejectAndReapprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.register(t)

	_, err := f.eng.Reject(ctx, f.admin, r.ID, "too short")
	require.ErrorIs(t, err, reseller.ErrInvalidInput)

	rejected, err := f.eng.Reject(ctx, f.admin, r.ID, "  incomplete KYC documents  ")
	require.NoError(t, err)
	assert.Equal(t, account.StateRejected, rejected.State())
	assert.Equal(t, "incomplete KYC documents", rejected.RejectionReason)

	_, err = f.eng.Reject(ctx, f.admin, r.ID, "incomplete KYC documents")
	require.ErrorIs(t, err, reseller.ErrNotPending)

	res, err := f.eng.Approve(ctx, f.admin, r.ID, reseller.ApproveInput{})
	require.NoError(t, err)
	assert.Equal(t, account.StateApproved, res.Reseller.State())
	assert.Empty(t, res.Reseller.RejectionReason)

	_, err = f.eng.Reject(ctx, f.admin, r.ID, "incomplete KYC documents")
	require.ErrorIs(t, err, reseller.ErrNotPending)
}

func TestSuspendReactivateTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.register(t)
	const reason = "fraudulent traffic detected"

	_, err := f.eng.Suspend(ctx, f.admin, pending.ID, reason)
	require.ErrorIs(t, err, reseller.ErrNotApproved)

	_, err = f.eng.Reactivate(ctx, f.admin, pending.ID)
	require.ErrorIs(t, err, reseller.ErrNotSuspended)

	r := f.approved(t, reseller.ApproveInput{})
	res, err := f.eng.Suspend(ctx, f.admin, r.ID, reason)
	require.NoError(t, err)
	assert.Equal(t, account.StateSuspended, res.Reseller.State())
	assert.False(t, res.Reseller.Status)
	assert.Equal(t, f.admin.ID, res.Reseller.SuspendedBy)
	assert.Equal(t, reason, res.Reseller.SuspendedReason)

	_, err = f.eng.Suspend(ctx, f.admin, r.ID, reason)
	require.ErrorIs(t, err, reseller.ErrAlreadySuspended)

	_, err = f.eng.Approve(ctx, f.admin, r.ID, reseller.ApproveInput{})
	require.ErrorIs(t, err, reseller.ErrAlreadyApproved)

	_, err = f.eng.SetActive(ctx, f.admin, r.ID, true)
	require.ErrorIs(t, err, reseller.ErrSuspendedToggle)

	res, err = f.eng.Reactivate(ctx, f.admin, r.ID)
	require.NoError(t, err)
	assert.Equal(t, account.StateApproved, res.Reseller.State())
	assert.True(t, res.Reseller.Status)
	assert.Nil(t, res.Reseller.SuspendedAt)
	assert.True(t, res.Reseller.SuspendedBy.IsNil())
	assert.Empty(t, res.Reseller.SuspendedReason)

	_, err = f.eng.Reactivate(ctx, f.admin, r.ID)
	require.ErrorIs(t, err, reseller.ErrNotSuspended)
}

func TestSetActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.approved(t, reseller.ApproveInput{})

	off, err := f.eng.SetActive(ctx, f.admin, r.ID, false)
	require.NoError(t, err)
	assert.False(t, off.Status)
	assert.Equal(t, account.StateApproved, off.State(), "the flag does not change the lifecycle state")

	on, err := f.eng.SetActive(ctx, f.admin, r.ID, true)
	require.NoError(t, err)
	assert.True(t, on.Status)
	assert.Equal(t, off.Version+1, on.Version)
}

func TestSetActiveRequiresApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.register(t)
	rejected := f.register(t)
	_, err := f.eng.Reject(ctx, f.admin, rejected.ID, "documents are unreadable")
	require.NoError(t, err)

	tests := []struct {
		name  string
		id    id.ResellerID
		state account.State
	}{
		{"pending", pending.ID, account.StatePending},
		{"rejected", rejected.ID, account.StateRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, active := range []bool{true, false} {
				_, err := f.eng.SetActive(ctx, f.admin, tt.id, active)
				require.ErrorIs(t, err, reseller.ErrNotApproved)
			}

			got, err := f.eng.GetReseller(ctx, tt.id)
			require.NoError(t, err)
			assert.False(t, got.Status)
			assert.Equal(t, tt.state, got.State())
		})
	}
}

func TestListResellersByState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.register(t)
	f.approved(t, reseller.ApproveInput{})
	f.approved(t, reseller.ApproveInput{})

	all, err := f.eng.ListResellers(ctx, account.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	approved, err := f.eng.ListResellers(ctx, account.ListOpts{State: account.StateApproved})
	require.NoError(t, err)
	assert.Len(t, approved, 2)

	page, err := f.eng.ListResellers(ctx, account.ListOpts{Limit: 1, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestConcurrentApprovalsOneWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.register(t)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.eng.Approve(ctx, f.admin, r.ID, reseller.ApproveInput{})
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, reseller.ErrAlreadyApproved)
	}
	assert.Equal(t, 1, wins)

	got, err := f.eng.GetReseller(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
}

func TestNumberLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.approved(t, reseller.ApproveInput{})

	first, err := f.eng.SetNumberLimit(ctx, f.admin, r.ID, 25)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	second, err := f.eng.SetNumberLimit(ctx, f.admin, r.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "upsert keeps the record")

	got, err := f.eng.GetNumberLimit(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.MaxVirtualNumbers)
	assert.Equal(t, epoch, got.CreatedAt)

	_, err = f.eng.SetNumberLimit(ctx, f.admin, r.ID, -1)
	require.ErrorIs(t, err, reseller.ErrInvalidInput)

	_, err = f.eng.SetNumberLimit(ctx, f.admin, id.NewResellerID(), 5)
	require.ErrorIs(t, err, reseller.ErrResellerNotFound)
}
