package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/reseller/account"
	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/numberlimit"
	"github.com/xraph/reseller/types"
	"github.com/xraph/reseller/validity"
	"github.com/xraph/reseller/wallet"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are discovered once at registration and cached per
// interface, so emitting an event never reflects.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                []OnInit
	onShutdown            []OnShutdown
	onResellerRegistered  []OnResellerRegistered
	onResellerApproved    []OnResellerApproved
	onResellerRejected    []OnResellerRejected
	onResellerSuspended   []OnResellerSuspended
	onResellerReactivated []OnResellerReactivated
	onStatusChanged       []OnStatusChanged
	onApprovalPartial     []OnApprovalPartial
	onWalletCredited      []OnWalletCredited
	onWalletDebited       []OnWalletDebited
	onInsufficientFunds   []OnInsufficientFunds
	onValidityChanged     []OnValidityChanged
	onValidityExpired     []OnValidityExpired
	onSweepCompleted      []OnSweepCompleted
	onNumberLimitChanged  []OnNumberLimitChanged
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnResellerRegistered); ok {
		r.onResellerRegistered = append(r.onResellerRegistered, v)
	}
	if v, ok := p.(OnResellerApproved); ok {
		r.onResellerApproved = append(r.onResellerApproved, v)
	}
	if v, ok := p.(OnResellerRejected); ok {
		r.onResellerRejected = append(r.onResellerRejected, v)
	}
	if v, ok := p.(OnResellerSuspended); ok {
		r.onResellerSuspended = append(r.onResellerSuspended, v)
	}
	if v, ok := p.(OnResellerReactivated); ok {
		r.onResellerReactivated = append(r.onResellerReactivated, v)
	}
	if v, ok := p.(OnStatusChanged); ok {
		r.onStatusChanged = append(r.onStatusChanged, v)
	}
	if v, ok := p.(OnApprovalPartial); ok {
		r.onApprovalPartial = append(r.onApprovalPartial, v)
	}
	if v, ok := p.(OnWalletCredited); ok {
		r.onWalletCredited = append(r.onWalletCredited, v)
	}
	if v, ok := p.(OnWalletDebited); ok {
		r.onWalletDebited = append(r.onWalletDebited, v)
	}
	if v, ok := p.(OnInsufficientFunds); ok {
		r.onInsufficientFunds = append(r.onInsufficientFunds, v)
	}
	if v, ok := p.(OnValidityChanged); ok {
		r.onValidityChanged = append(r.onValidityChanged, v)
	}
	if v, ok := p.(OnValidityExpired); ok {
		r.onValidityExpired = append(r.onValidityExpired, v)
	}
	if v, ok := p.(OnSweepCompleted); ok {
		r.onSweepCompleted = append(r.onSweepCompleted, v)
	}
	if v, ok := p.(OnNumberLimitChanged); ok {
		r.onNumberLimitChanged = append(r.onNumberLimitChanged, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnResellerRegistered", reflect.TypeFor[OnResellerRegistered]()},
	{"OnResellerApproved", reflect.TypeFor[OnResellerApproved]()},
	{"OnResellerRejected", reflect.TypeFor[OnResellerRejected]()},
	{"OnResellerSuspended", reflect.TypeFor[OnResellerSuspended]()},
	{"OnResellerReactivated", reflect.TypeFor[OnResellerReactivated]()},
	{"OnStatusChanged", reflect.TypeFor[OnStatusChanged]()},
	{"OnApprovalPartial", reflect.TypeFor[OnApprovalPartial]()},
	{"OnWalletCredited", reflect.TypeFor[OnWalletCredited]()},
	{"OnWalletDebited", reflect.TypeFor[OnWalletDebited]()},
	{"OnInsufficientFunds", reflect.TypeFor[OnInsufficientFunds]()},
	{"OnValidityChanged", reflect.TypeFor[OnValidityChanged]()},
	{"OnValidityExpired", reflect.TypeFor[OnValidityExpired]()},
	{"OnSweepCompleted", reflect.TypeFor[OnSweepCompleted]()},
	{"OnNumberLimitChanged", reflect.TypeFor[OnNumberLimitChanged]()},
}

// implementedInterfaces lists the hook interfaces p satisfies, for logging.
func implementedInterfaces(p Plugin) []string {
	var names []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// dispatch runs fn for every cached implementation of a hook. Failures and
// timeouts are logged and never propagate to the caller.
func dispatch[T Plugin](ctx context.Context, r *Registry, hook string, list func(*Registry) []T, fn func(T) error) {
	r.mu.RLock()
	plugins := list(r)
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return fn(p)
		}); err != nil {
			r.logger.Warn("plugin hook failed",
				"hook", hook,
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	dispatch(ctx, r, "OnInit", func(r *Registry) []OnInit { return r.onInit },
		func(p OnInit) error { return p.OnInit(ctx, engine) })
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	dispatch(ctx, r, "OnShutdown", func(r *Registry) []OnShutdown { return r.onShutdown },
		func(p OnShutdown) error { return p.OnShutdown(ctx) })
}

// EmitResellerRegistered emits a reseller registered event.
func (r *Registry) EmitResellerRegistered(ctx context.Context, res *account.Reseller) {
	dispatch(ctx, r, "OnResellerRegistered", func(r *Registry) []OnResellerRegistered { return r.onResellerRegistered },
		func(p OnResellerRegistered) error { return p.OnResellerRegistered(ctx, res) })
}

// EmitResellerApproved emits a reseller approved event.
func (r *Registry) EmitResellerApproved(ctx context.Context, res *account.Reseller) {
	dispatch(ctx, r, "OnResellerApproved", func(r *Registry) []OnResellerApproved { return r.onResellerApproved },
		func(p OnResellerApproved) error { return p.OnResellerApproved(ctx, res) })
}

// EmitResellerRejected emits a reseller rejected event.
func (r *Registry) EmitResellerRejected(ctx context.Context, res *account.Reseller, reason string) {
	dispatch(ctx, r, "OnResellerRejected", func(r *Registry) []OnResellerRejected { return r.onResellerRejected },
		func(p OnResellerRejected) error { return p.OnResellerRejected(ctx, res, reason) })
}

// EmitResellerSuspended emits a reseller suspended event.
func (r *Registry) EmitResellerSuspended(ctx context.Context, res *account.Reseller) {
	dispatch(ctx, r, "OnResellerSuspended", func(r *Registry) []OnResellerSuspended { return r.onResellerSuspended },
		func(p OnResellerSuspended) error { return p.OnResellerSuspended(ctx, res) })
}

// EmitResellerReactivated emits a reseller reactivated event.
func (r *Registry) EmitResellerReactivated(ctx context.Context, res *account.Reseller) {
	dispatch(ctx, r, "OnResellerReactivated", func(r *Registry) []OnResellerReactivated { return r.onResellerReactivated },
		func(p OnResellerReactivated) error { return p.OnResellerReactivated(ctx, res) })
}

// EmitStatusChanged emits an active flag change.
func (r *Registry) EmitStatusChanged(ctx context.Context, res *account.Reseller, active bool) {
	dispatch(ctx, r, "OnStatusChanged", func(r *Registry) []OnStatusChanged { return r.onStatusChanged },
		func(p OnStatusChanged) error { return p.OnStatusChanged(ctx, res, active) })
}

// EmitApprovalPartial emits the warnings of a partially applied approval.
func (r *Registry) EmitApprovalPartial(ctx context.Context, res *account.Reseller, warnings []error) {
	dispatch(ctx, r, "OnApprovalPartial", func(r *Registry) []OnApprovalPartial { return r.onApprovalPartial },
		func(p OnApprovalPartial) error { return p.OnApprovalPartial(ctx, res, warnings) })
}

// EmitWalletCredited emits a posted credit.
func (r *Registry) EmitWalletCredited(ctx context.Context, w *wallet.Wallet, txn *wallet.Transaction) {
	dispatch(ctx, r, "OnWalletCredited", func(r *Registry) []OnWalletCredited { return r.onWalletCredited },
		func(p OnWalletCredited) error { return p.OnWalletCredited(ctx, w, txn) })
}

// EmitWalletDebited emits a posted debit.
func (r *Registry) EmitWalletDebited(ctx context.Context, w *wallet.Wallet, txn *wallet.Transaction) {
	dispatch(ctx, r, "OnWalletDebited", func(r *Registry) []OnWalletDebited { return r.onWalletDebited },
		func(p OnWalletDebited) error { return p.OnWalletDebited(ctx, w, txn) })
}

// EmitInsufficientFunds emits a refused debit.
func (r *Registry) EmitInsufficientFunds(ctx context.Context, resellerID id.ResellerID, requested, available types.Money) {
	dispatch(ctx, r, "OnInsufficientFunds", func(r *Registry) []OnInsufficientFunds { return r.onInsufficientFunds },
		func(p OnInsufficientFunds) error { return p.OnInsufficientFunds(ctx, resellerID, requested, available) })
}

// EmitValidityChanged emits a committed window change.
func (r *Registry) EmitValidityChanged(ctx context.Context, rec *validity.Record, hist *validity.History) {
	dispatch(ctx, r, "OnValidityChanged", func(r *Registry) []OnValidityChanged { return r.onValidityChanged },
		func(p OnValidityChanged) error { return p.OnValidityChanged(ctx, rec, hist) })
}

// EmitValidityExpired emits a window expired by the sweeper.
func (r *Registry) EmitValidityExpired(ctx context.Context, rec *validity.Record) {
	dispatch(ctx, r, "OnValidityExpired", func(r *Registry) []OnValidityExpired { return r.onValidityExpired },
		func(p OnValidityExpired) error { return p.OnValidityExpired(ctx, rec) })
}

// EmitSweepCompleted emits the outcome of one sweep pass.
func (r *Registry) EmitSweepCompleted(ctx context.Context, expired int, elapsed time.Duration) {
	dispatch(ctx, r, "OnSweepCompleted", func(r *Registry) []OnSweepCompleted { return r.onSweepCompleted },
		func(p OnSweepCompleted) error { return p.OnSweepCompleted(ctx, expired, elapsed) })
}

// EmitNumberLimitChanged emits an upserted number limit.
func (r *Registry) EmitNumberLimitChanged(ctx context.Context, l *numberlimit.Limit) {
	dispatch(ctx, r, "OnNumberLimitChanged", func(r *Registry) []OnNumberLimitChanged { return r.onNumberLimitChanged },
		func(p OnNumberLimitChanged) error { return p.OnNumberLimitChanged(ctx, l) })
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never block the lifecycle pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("plugin panic: %s: %v", pluginName, rec)
			}
		}()
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
