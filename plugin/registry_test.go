package plugin_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/reseller/account"
	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/plugin"
)

type approvals struct {
	name  string
	calls atomic.Int32
	fn    func() error
}

func (p *approvals) Name() string { return p.name }

func (p *approvals) OnResellerApproved(context.Context, *account.Reseller) error {
	p.calls.Add(1)
	if p.fn != nil {
		return p.fn()
	}
	return nil
}

type nameOnly struct{}

func (nameOnly) Name() string { return "name-only" }

func newRegistry() *plugin.Registry {
	return plugin.NewRegistry().WithLogger(slog.New(slog.DiscardHandler))
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	r := newRegistry()
	require.NoError(t, r.Register(&approvals{name: "a"}))
	require.Error(t, r.Register(&approvals{name: "a"}))
	require.NoError(t, r.Register(nameOnly{}))

	assert.Equal(t, 2, r.Count())
	assert.NotNil(t, r.Get("name-only"))
	assert.Nil(t, r.Get("missing"))
	assert.Len(t, r.List(), 2)
}

func TestRegistryDispatchesOnlyToImplementers(t *testing.T) {
	r := newRegistry()
	first := &approvals{name: "first"}
	second := &approvals{name: "second"}
	require.NoError(t, r.Register(first))
	require.NoError(t, r.Register(nameOnly{}))
	require.NoError(t, r.Register(second))

	r.EmitResellerApproved(context.Background(), &account.Reseller{ID: id.NewResellerID()})
	r.EmitResellerRejected(context.Background(), &account.Reseller{ID: id.NewResellerID()}, "reason")

	assert.Equal(t, int32(1), first.calls.Load())
	assert.Equal(t, int32(1), second.calls.Load())
}

func TestRegistryIsolatesHookFailures(t *testing.T) {
	r := newRegistry().WithTimeout(20 * time.Millisecond)
	failing := &approvals{name: "failing", fn: func() error { return errors.New("boom") }}
	panicking := &approvals{name: "panicking", fn: func() error { panic("kaboom") }}
	slow := &approvals{name: "slow", fn: func() error {
		time.Sleep(200 * time.Millisecond)
		return nil
	}}
	healthy := &approvals{name: "healthy"}
	for _, p := range []*approvals{failing, panicking, slow, healthy} {
		require.NoError(t, r.Register(p))
	}

	start := time.Now()
	r.EmitResellerApproved(context.Background(), &account.Reseller{ID: id.NewResellerID()})

	assert.Less(t, time.Since(start), 150*time.Millisecond, "a slow hook must not block emission")
	assert.Equal(t, int32(1), healthy.calls.Load())
	assert.Equal(t, int32(1), panicking.calls.Load())
}
