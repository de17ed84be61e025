// Package reseller is the back-office core of a virtual-number reselling
// business: the prepaid wallet ledger, the reseller validity tracker and
// the reseller lifecycle state machine that drives both.
//
// Like its sibling Forge extensions it is a library, not a service. The
// outer tier (HTTP handlers, dashboards, jobs) calls Engine operations, or
// the admin package for a uniform result envelope.
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/reseller"
//	    "github.com/xraph/reseller/store/memory"
//	)
//
//	eng := reseller.New(memory.New(),
//	    reseller.WithCurrency("inr"),
//	    reseller.WithDefaultValidityDays(365),
//	)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
//	admin := reseller.Admin(operatorID)
//	r, _ := eng.Register(ctx, admin, reseller.RegisterInput{Name: "Acme", Email: "ops@acme.test"})
//	res, _ := eng.Approve(ctx, admin, r.ID, reseller.ApproveInput{
//	    WalletBalance: reseller.INR(1000),
//	})
//	if len(res.Warnings) > 0 {
//	    // approved, but a secondary step did not apply
//	}
//
// # Lifecycle
//
// A reseller is pending, approved, rejected or suspended:
//
//	pending   -> approved | rejected
//	rejected  -> approved
//	approved  -> suspended
//	suspended -> approved (Reactivate)
//
// The lifecycle write of each transition is authoritative. Secondary steps
// (wallet credit, validity window, number limit) run afterwards and their
// failures come back as warnings instead of undoing the transition.
//
// # Wallet ledger
//
// Each reseller has one wallet, created on first credit. Every credit or
// debit appends an immutable transaction and updates the balance in one
// atomic store write guarded by the wallet version, so the balance always
// equals the credits minus the debits. Amounts are decimal and keep full
// precision; display rounds to two places.
//
// # Validity
//
// A recharge without an explicit date resets the window to now plus the
// default length. An explicit date keeps the current start and ends the
// window at the close of that day. Every change appends one history entry
// in the same atomic write as the record upsert.
//
// # TypeID
//
// All entities use TypeID identifiers:
//
//	rsl_01h2xcejqtf2nbrexx3vqjhp41   // Reseller ID
//	wlt_01h2xcejqtf2nbrexx3vqjhp41   // Wallet ID
//	wtx_01h455vb4pex5vsknk084sn02q   // Wallet transaction ID
//
// ValidateID is the single guard every operation applies to raw identifiers.
package reseller
