package audithook_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/reseller"
	audithook "github.com/xraph/reseller/audit_hook"
	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/store/memory"
	"github.com/xraph/reseller/types"
)

type sink struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (s *sink) Record(_ context.Context, evt *audithook.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

func (s *sink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.Action
	}
	return out
}

func (s *sink) find(action string) *audithook.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.Action == action {
			return e
		}
	}
	return nil
}

func engineWith(t *testing.T, ext *audithook.Extension) *reseller.Engine {
	t.Helper()
	return reseller.New(memory.New(),
		reseller.WithLogger(slog.New(slog.DiscardHandler)),
		reseller.WithSweepConfig(0, 10),
		reseller.WithPlugin(ext),
	)
}

func TestAuditTrailFollowsEngine(t *testing.T) {
	s := &sink{}
	eng := engineWith(t, audithook.New(s))
	ctx := context.Background()
	admin := reseller.Admin(id.NewUserID())

	r, err := eng.Register(ctx, admin, reseller.RegisterInput{Name: "Acme", Email: "ops@acme.example"})
	require.NoError(t, err)
	_, err = eng.Approve(ctx, admin, r.ID, reseller.ApproveInput{WalletBalance: types.INR(100)})
	require.NoError(t, err)
	_, err = eng.Debit(ctx, admin, r.ID, reseller.DebitInput{Amount: types.INR(500)})
	require.ErrorIs(t, err, reseller.ErrInsufficientFunds)

	assert.Equal(t, []string{
		audithook.ActionResellerRegistered,
		audithook.ActionResellerApproved,
		audithook.ActionWalletCredited,
		audithook.ActionValidityChanged,
		audithook.ActionInsufficientFunds,
	}, s.actions())

	credited := s.find(audithook.ActionWalletCredited)
	require.NotNil(t, credited)
	assert.Equal(t, audithook.ResourceWallet, credited.Resource)
	assert.Equal(t, audithook.CategoryBilling, credited.Category)
	assert.Equal(t, r.ID.String(), credited.Metadata["reseller_id"])

	denied := s.find(audithook.ActionInsufficientFunds)
	require.NotNil(t, denied)
	assert.Equal(t, audithook.OutcomeFailure, denied.Outcome)
	assert.Equal(t, r.ID.String(), denied.ResourceID)
}

func TestAuditActionFilters(t *testing.T) {
	s := &sink{}
	eng := engineWith(t, audithook.New(s, audithook.WithDisabledActions(audithook.ActionResellerRegistered)))
	ctx := context.Background()
	admin := reseller.Admin(id.NewUserID())

	r, err := eng.Register(ctx, admin, reseller.RegisterInput{Name: "Acme", Email: "ops@acme.example"})
	require.NoError(t, err)
	_, err = eng.Reject(ctx, admin, r.ID, "documents are unreadable")
	require.NoError(t, err)

	assert.Equal(t, []string{audithook.ActionResellerRejected}, s.actions())
	assert.Equal(t, "documents are unreadable", s.find(audithook.ActionResellerRejected).Metadata["reason"])

	only := &sink{}
	eng = engineWith(t, audithook.New(only, audithook.WithEnabledActions(audithook.ActionNumberLimitChanged)))
	r, err = eng.Register(ctx, admin, reseller.RegisterInput{Name: "Acme", Email: "ops@acme.example"})
	require.NoError(t, err)
	_, err = eng.SetNumberLimit(ctx, admin, r.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{audithook.ActionNumberLimitChanged}, only.actions())
}

func TestAuditRecorderFailureIsSwallowed(t *testing.T) {
	rec := audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	})
	eng := engineWith(t, audithook.New(rec, audithook.WithLogger(slog.New(slog.DiscardHandler))))

	_, err := eng.Register(context.Background(), reseller.Admin(id.NewUserID()), reseller.RegisterInput{
		Name:  "Acme",
		Email: "ops@acme.example",
	})
	require.NoError(t, err)
}
