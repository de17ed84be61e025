package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/reseller/id"
)

var constructors = []struct {
	name    string
	newFn   func() id.ID
	parseFn func(string) (id.ID, error)
	prefix  string
}{
	{"ResellerID", id.NewResellerID, id.ParseResellerID, "rsl_"},
	{"UserID", id.NewUserID, id.ParseUserID, "usr_"},
	{"WalletID", id.NewWalletID, id.ParseWalletID, "wlt_"},
	{"TransactionID", id.NewTransactionID, id.ParseTransactionID, "wtx_"},
	{"ValidityID", id.NewValidityID, id.ParseValidityID, "vld_"},
	{"HistoryID", id.NewHistoryID, id.ParseHistoryID, "vhst_"},
	{"NumberLimitID", id.NewNumberLimitID, id.ParseNumberLimitID, "nlim_"},
}

func TestConstructors(t *testing.T) {
	for _, tt := range constructors {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, tt := range constructors {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	for i, tt := range constructors {
		other := constructors[(i+1)%len(constructors)]
		t.Run(tt.name, func(t *testing.T) {
			input := other.newFn().String()
			if _, err := tt.parseFn(input); err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", input)
			}
		})
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	inputs := []string{
		"",
		"rsl",
		"rsl_",
		"rsl_not-a-suffix",
		"RSL_01h2xcejqtf2nbrexx3vqjhp41",
		"123",
		"R1",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			if _, err := id.ParseResellerID(in); err == nil {
				t.Errorf("expected error for %q", in)
			}
		})
	}
}

func TestHasPrefix(t *testing.T) {
	r := id.NewResellerID()
	if !r.HasPrefix(id.PrefixReseller) {
		t.Error("expected reseller prefix")
	}
	if r.HasPrefix(id.PrefixWallet) {
		t.Error("unexpected wallet prefix")
	}
	if id.Nil.HasPrefix(id.PrefixReseller) {
		t.Error("nil ID must not report a prefix")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", i.Prefix())
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewWalletID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var restored id.ID
	if unmarshalErr := restored.UnmarshalText(data); unmarshalErr != nil {
		t.Fatalf("UnmarshalText failed: %v", unmarshalErr)
	}
	if restored.String() != original.String() {
		t.Errorf("mismatch: %q != %q", restored.String(), original.String())
	}

	var nilID id.ID
	data, err = nilID.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText(nil) failed: %v", err)
	}
	var restored2 id.ID
	if err := restored2.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText(nil) failed: %v", err)
	}
	if !restored2.IsNil() {
		t.Error("expected nil after round-trip of nil ID")
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewTransactionID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if scanErr := scanned.Scan(val); scanErr != nil {
		t.Fatalf("Scan failed: %v", scanErr)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	var nilID id.ID
	val, err = nilID.Value()
	if err != nil {
		t.Fatalf("Value(nil) failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil value for nil ID, got %v", val)
	}

	var scanned2 id.ID
	if err := scanned2.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !scanned2.IsNil() {
		t.Error("expected nil after scan of nil")
	}
}

func TestUniqueness(t *testing.T) {
	a := id.NewTransactionID()
	b := id.NewTransactionID()
	if a.String() == b.String() {
		t.Errorf("two consecutive NewTransactionID() calls returned the same ID: %q", a.String())
	}
}
