package reseller_test

import (
	"context"
	"log"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/reseller"
	"github.com/xraph/reseller/id"
	"github.com/xraph/reseller/store/memory"
	"github.com/xraph/reseller/types"
)

// TestDocumentationExamples verifies that the examples in the package
// documentation compile and run.
func TestDocumentationExamples(t *testing.T) {
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		eng := reseller.New(store,
			reseller.WithLogger(slog.New(slog.DiscardHandler)),
			reseller.WithCurrency("inr"),
			reseller.WithDefaultValidityDays(365),
			reseller.WithSweepConfig(time.Hour, 100),
		)

		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		admin := reseller.Admin(id.NewUserID())

		r, err := eng.Register(ctx, admin, reseller.RegisterInput{
			Name:  "Acme",
			Email: "ops@acme.test",
		})
		if err != nil {
			t.Fatal(err)
		}

		res, err := eng.Approve(ctx, admin, r.ID, reseller.ApproveInput{
			WalletBalance: reseller.INR(1000),
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Warnings) > 0 {
			t.Fatalf("approved with warnings: %v", reseller.Warning(res.Warnings))
		}

		// Provisioning debits with a system actor.
		p, err := eng.Debit(ctx, reseller.System(id.NewUserID()), r.ID, reseller.DebitInput{
			Amount:      reseller.INR(49),
			Description: "Virtual number rental",
			Reference:   "rental-2025-06",
		})
		if err != nil {
			t.Fatal(err)
		}

		log.Printf("Balance after rental: %s\n", p.Wallet.Balance.String())
	})

	t.Run("MoneyExamples", func(t *testing.T) {
		// Constructors
		_ = types.INR(4900)   // ₹4900.00
		_ = types.USD(99)     // $99.00
		_ = types.Zero("inr") // ₹0.00

		// Arithmetic keeps full precision
		m1 := types.MustParse("0.1", "inr")
		m2 := types.MustParse("0.2", "inr")
		if !m1.Add(m2).Equal(types.MustParse("0.3", "inr")) {
			t.Fatal("decimal addition lost precision")
		}

		// Formatting
		_ = m1.String()      // "₹0.10"
		_ = m1.FormatMajor() // "0.10"
	})
}
