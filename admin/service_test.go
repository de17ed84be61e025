package admin_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/reseller"
	"github.com/xraph/reseller/admin"
	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/store/memory"
)

func newService(t *testing.T) (*admin.Service, reseller.Actor) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	eng := reseller.New(memory.New(), reseller.WithLogger(logger), reseller.WithSweepConfig(0, 10))
	return admin.New(eng, admin.WithLogger(logger)), reseller.Admin(id.NewUserID())
}

func registered(t *testing.T, svc *admin.Service, actor reseller.Actor) string {
	t.Helper()
	res := svc.Register(context.Background(), actor, admin.RegisterRequest{
		Name:  "Acme Telecom",
		Email: "ops@acme.example",
	})
	r, ok := res.Get()
	require.True(t, ok, res.Message())
	return r.ID.String()
}

func TestServiceOnboardingFlow(t *testing.T) {
	svc, actor := newService(t)
	ctx := context.Background()
	rid := registered(t, svc, actor)
	limit := 20

	approval := svc.Approve(ctx, actor, rid, admin.ApproveRequest{
		WalletBalance:   "1000.50",
		GracePeriodDays: 3,
		NumberLimit:     &limit,
	})
	res, ok := approval.Get()
	require.True(t, ok, approval.Message())
	assert.Empty(t, approval.Warnings())
	assert.Equal(t, "1000.5", res.Wallet.Balance.Amount.String())
	assert.Equal(t, 20, res.NumberLimit.MaxVirtualNumbers)

	recharge := svc.Recharge(ctx, actor, rid, admin.RechargeRequest{Amount: "99.50", Reference: "PAY-1"})
	require.True(t, recharge.Success(), recharge.Message())

	debit := svc.Debit(ctx, reseller.System(id.NewUserID()), rid, admin.DebitRequest{Amount: "100"})
	posting, ok := debit.Get()
	require.True(t, ok, debit.Message())
	assert.Equal(t, "1000", posting.Wallet.Balance.Amount.String())

	w, ok := svc.GetWallet(ctx, rid).Get()
	require.True(t, ok)

	txns, ok := svc.ListTransactions(ctx, w.ID.String(), admin.ListTransactionsRequest{Type: "CREDIT"}).Get()
	require.True(t, ok)
	assert.Len(t, txns, 2)

	hist, ok := svc.ListValidityHistory(ctx, rid, admin.ListHistoryRequest{}).Get()
	require.True(t, ok)
	assert.Len(t, hist, 2)

	end := time.Now().AddDate(2, 0, 0)
	rec, ok := svc.UpdateValidity(ctx, actor, rid, admin.ValidityRequest{EndDate: end}).Get()
	require.True(t, ok)
	assert.Equal(t, end.UTC().Year(), rec.EndDate.Year())

	v, ok := svc.GetValidity(ctx, rid).Get()
	require.True(t, ok)
	assert.Equal(t, rec.EndDate, v.EndDate)

	l, ok := svc.GetNumberLimit(ctx, rid).Get()
	require.True(t, ok)
	assert.Equal(t, 20, l.MaxVirtualNumbers)
}

func TestServiceLifecycle(t *testing.T) {
	svc, actor := newService(t)
	ctx := context.Background()
	rid := registered(t, svc, actor)

	rejected := svc.Reject(ctx, actor, rid, admin.ReasonRequest{Reason: "missing GST certificate"})
	require.True(t, rejected.Success(), rejected.Message())

	require.True(t, svc.Approve(ctx, actor, rid, admin.ApproveRequest{}).Success())

	suspended := svc.Suspend(ctx, actor, rid, admin.ReasonRequest{Reason: "abuse complaints received"})
	require.True(t, suspended.Success(), suspended.Message())

	toggle := svc.SetActive(ctx, actor, rid, admin.StatusRequest{Active: new(bool)})
	assert.False(t, toggle.Success())
	assert.Equal(t, reseller.KindStateConflict, toggle.Kind())

	require.True(t, svc.Reactivate(ctx, actor, rid).Success())

	off := false
	r, ok := svc.SetActive(ctx, actor, rid, admin.StatusRequest{Active: &off}).Get()
	require.True(t, ok)
	assert.False(t, r.Status)

	got, ok := svc.GetReseller(ctx, rid).Get()
	require.True(t, ok)
	assert.Equal(t, r.Version, got.Version)

	list, ok := svc.ListResellers(ctx, admin.ListResellersRequest{State: "approved"}).Get()
	require.True(t, ok)
	assert.Len(t, list, 1)
}

func TestServiceValidation(t *testing.T) {
	svc, actor := newService(t)
	ctx := context.Background()
	rid := registered(t, svc, actor)

	tests := []struct {
		name   string
		result interface {
			Success() bool
			Kind() reseller.Kind
			Message() string
		}
		field string
	}{
		{"email", svc.Register(ctx, actor, admin.RegisterRequest{Name: "Acme", Email: "nope"}), "email"},
		{"missing name", svc.Register(ctx, actor, admin.RegisterRequest{Email: "a@b.example"}), "name"},
		{"malformed id", svc.GetReseller(ctx, "rsl_garbage"), "reseller_id"},
		{"wrong prefix", svc.GetReseller(ctx, id.NewWalletID().String()), "reseller_id"},
		{"wallet id", svc.ListTransactions(ctx, rid, admin.ListTransactionsRequest{}), "wallet_id"},
		{"short reason", svc.Reject(ctx, actor, rid, admin.ReasonRequest{Reason: "bad"}), "reason"},
		{"amount", svc.Recharge(ctx, actor, rid, admin.RechargeRequest{Amount: "ten"}), "amount"},
		{"missing amount", svc.Debit(ctx, actor, rid, admin.DebitRequest{}), "amount"},
		{"limit", svc.SetNumberLimit(ctx, actor, rid, admin.NumberLimitRequest{}), "max_virtual_numbers"},
		{"state", svc.ListResellers(ctx, admin.ListResellersRequest{State: "deleted"}), "state"},
		{"grace", svc.Approve(ctx, actor, rid, admin.ApproveRequest{GracePeriodDays: -2}), "grace_period_days"},
		{"active", svc.SetActive(ctx, actor, rid, admin.StatusRequest{}), "active"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.result.Success())
			assert.Equal(t, reseller.KindValidation, tt.result.Kind())
			assert.Contains(t, tt.result.Message(), tt.field)
		})
	}

	// Nothing above reached the store.
	r, ok := svc.GetReseller(ctx, rid).Get()
	require.True(t, ok)
	assert.Equal(t, int64(1), r.Version)
}

func TestServiceForbidden(t *testing.T) {
	svc, actor := newService(t)
	ctx := context.Background()
	rid := registered(t, svc, actor)

	res := svc.Approve(ctx, reseller.System(id.NewUserID()), rid, admin.ApproveRequest{})
	assert.False(t, res.Success())
	assert.Equal(t, reseller.KindForbidden, res.Kind())
}

func TestServiceNotFound(t *testing.T) {
	svc, _ := newService(t)

	res := svc.GetWallet(context.Background(), id.NewResellerID().String())
	w, ok := res.Get()
	assert.False(t, ok)
	assert.Nil(t, w)
	assert.Equal(t, reseller.KindNotFound, res.Kind())
}

func TestServiceRecoversPanics(t *testing.T) {
	svc := admin.New(nil, admin.WithLogger(slog.New(slog.DiscardHandler)))

	res := svc.GetReseller(context.Background(), id.NewResellerID().String())
	assert.False(t, res.Success())
	assert.Equal(t, reseller.KindUnknown, res.Kind())
	assert.Equal(t, "get reseller: internal error", res.Message())
}

func TestResultJSON(t *testing.T) {
	ok, err := json.Marshal(admin.OK(map[string]int{"n": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"n":1}}`, string(ok))

	failed, err := json.Marshal(admin.Fail[int](reseller.ErrResellerNotFound))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"message":"reseller: not found: reseller","kind":"not_found"}`, string(failed))

	partial := admin.OK("done", nil, errors.New("validity window: timeout"))
	assert.True(t, partial.Success())
	assert.Equal(t, []string{"validity window: timeout"}, partial.Warnings())
	assert.Equal(t, "completed with warnings", partial.Message())
}
