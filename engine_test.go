package reseller_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/reseller"
	"github.com/xraph/reseller/account"
	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/store"
	"github.com/xraph/reseller/store/memory"
	"github.com/xraph/reseller/types"
	"github.com/xraph/reseller/validity"
	"github.com/xraph/reseller/wallet"
)

var epoch = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	eng   *reseller.Engine
	st    store.Store
	clock *fakeClock
	admin reseller.Actor
}

func newFixture(t *testing.T, opts ...reseller.Option) *fixture {
	t.Helper()
	return newFixtureWithStore(t, memory.New(), opts...)
}

func newFixtureWithStore(t *testing.T, s store.Store, opts ...reseller.Option) *fixture {
	t.Helper()
	f := &fixture{
		st:    s,
		clock: &fakeClock{t: epoch},
		admin: reseller.Admin(id.NewUserID()),
	}
	base := []reseller.Option{
		reseller.WithLogger(slog.New(slog.DiscardHandler)),
		reseller.WithClock(f.clock.Now),
		reseller.WithSweepConfig(0, 10),
	}
	f.eng = reseller.New(s, append(base, opts...)...)
	return f
}

func (f *fixture) register(t *testing.T) *account.Reseller {
	t.Helper()
	r, err := f.eng.Register(context.Background(), f.admin, reseller.RegisterInput{
		Name:  "Acme Telecom",
		Email: "Ops@Acme.example",
		Phone: "+91 98765 43210",
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) approved(t *testing.T, in reseller.ApproveInput) *account.Reseller {
	t.Helper()
	r := f.register(t)
	res, err := f.eng.Approve(context.Background(), f.admin, r.ID, in)
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	return res.Reseller
}

func (f *fixture) walletOf(t *testing.T, resellerID id.ResellerID) *wallet.Wallet {
	t.Helper()
	w, err := f.eng.GetWallet(context.Background(), resellerID)
	require.NoError(t, err)
	return w
}

func assertMoney(t *testing.T, want string, got types.Money) {
	t.Helper()
	assert.True(t, types.MustParse(want, got.Currency).Equal(got), "want %s, got %s", want, got.Amount)
}

// recorder captures hook invocations by name.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) OnResellerApproved(context.Context, *account.Reseller) error {
	r.add("approved")
	return nil
}

func (r *recorder) OnApprovalPartial(context.Context, *account.Reseller, []error) error {
	r.add("approval_partial")
	return nil
}

func (r *recorder) OnWalletCredited(context.Context, *wallet.Wallet, *wallet.Transaction) error {
	r.add("credited")
	return nil
}

func (r *recorder) OnWalletDebited(context.Context, *wallet.Wallet, *wallet.Transaction) error {
	r.add("debited")
	return nil
}

func (r *recorder) OnInsufficientFunds(context.Context, id.ResellerID, types.Money, types.Money) error {
	r.add("insufficient_funds")
	return nil
}

func (r *recorder) OnValidityExpired(context.Context, *validity.Record) error {
	r.add("expired")
	return nil
}

func (r *recorder) OnSweepCompleted(context.Context, int, time.Duration) error {
	r.add("sweep")
	return nil
}

func TestEngineStartStop(t *testing.T) {
	f := newFixture(t, reseller.WithSweepConfig(time.Millisecond, 10))
	require.NoError(t, f.eng.Start(context.Background()))
	require.NoError(t, f.eng.Stop())
	// Stop is idempotent.
	require.NoError(t, f.eng.Stop())
}

func TestEngineCurrencyNormalized(t *testing.T) {
	f := newFixture(t, reseller.WithCurrency("USD"))
	assert.Equal(t, "usd", f.eng.Currency())
}

func TestEngineForbidden(t *testing.T) {
	f := newFixture(t)
	r := f.register(t)
	ctx := context.Background()
	system := reseller.System(id.NewUserID())

	_, err := f.eng.Approve(ctx, system, r.ID, reseller.ApproveInput{})
	require.ErrorIs(t, err, reseller.ErrForbidden)
	assert.Equal(t, reseller.KindForbidden, reseller.KindOf(err))

	_, err = f.eng.Recharge(ctx, system, r.ID, reseller.RechargeInput{Amount: types.INR(10)})
	require.ErrorIs(t, err, reseller.ErrForbidden)

	_, err = f.eng.SetNumberLimit(ctx, reseller.Actor{ID: id.NewUserID()}, r.ID, 5)
	require.ErrorIs(t, err, reseller.ErrForbidden)
}

func TestEngineRejectsMalformedActor(t *testing.T) {
	f := newFixture(t)
	r := f.register(t)

	bad := reseller.Actor{ID: id.NewResellerID(), Roles: []reseller.Role{reseller.RoleAdmin}}
	_, err := f.eng.Approve(context.Background(), bad, r.ID, reseller.ApproveInput{})
	require.ErrorIs(t, err, reseller.ErrInvalidInput)
	assert.Equal(t, reseller.KindValidation, reseller.KindOf(err))
}

func TestEngineRejectsWrongIDPrefix(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.eng.GetReseller(ctx, id.NewWalletID())
	require.ErrorIs(t, err, reseller.ErrInvalidInput)

	_, err = f.eng.ListTransactions(ctx, id.NewResellerID(), wallet.ListOpts{})
	require.ErrorIs(t, err, reseller.ErrInvalidInput)

	_, err = reseller.ValidateID("reseller_id", "not-an-id", id.PrefixReseller)
	var ve reseller.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "reseller_id", ve.Field)
}

func TestSweepExpired(t *testing.T) {
	rec := &recorder{}
	f := newFixture(t, reseller.WithPlugin(rec))
	ctx := context.Background()

	r := f.approved(t, reseller.ApproveInput{WalletBalance: types.INR(500)})
	other := f.approved(t, reseller.ApproveInput{WalletBalance: types.INR(500)})

	f.clock.Advance(100 * validity.Day)
	_, err := f.eng.Recharge(ctx, f.admin, other.ID, reseller.RechargeInput{Amount: types.INR(100)})
	require.NoError(t, err)

	// Only the first window has ended.
	f.clock.Advance(300 * validity.Day)
	n, err := f.eng.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.eng.GetValidity(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, validity.StatusExpired, got.Status)

	still, err := f.eng.GetValidity(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, validity.StatusActive, still.Status)

	hist, err := f.eng.ListValidityHistory(ctx, r.ID, validity.ListOpts{Action: validity.ActionExpired})
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, validity.StatusExpired, hist[0].Status)

	n, err = f.eng.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Contains(t, rec.Events(), "expired")
	assert.Contains(t, rec.Events(), "sweep")
}

func TestSweepExpiredBatches(t *testing.T) {
	f := newFixture(t, reseller.WithSweepConfig(0, 2))
	ctx := context.Background()

	for range 5 {
		f.approved(t, reseller.ApproveInput{WalletBalance: types.INR(50)})
	}
	f.clock.Advance(400 * validity.Day)

	n, err := f.eng.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
