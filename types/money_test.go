package types

import (
	"encoding/json"
	"testing"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   string
		currency string
		display  string
	}{
		{"INR", INR(1000), "1000", "inr", "₹1000.00"},
		{"USD", USD(49), "49", "usd", "$49.00"},
		{"EUR", EUR(199), "199", "eur", "€199.00"},
		{"Parsed", MustParse("1500.5", "INR"), "1500.5", "inr", "₹1500.50"},
		{"Zero INR", Zero("INR"), "0", "inr", "₹0.00"},
		{"Unknown currency", MustParse("7", "xyz"), "7", "xyz", "XYZ 7.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount.String() != tt.amount {
				t.Errorf("Amount: got %s, want %s", tt.money.Amount.String(), tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestMoneyParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "abc", "1,000", "12.3.4"} {
		if _, err := Parse(in, "inr"); err == nil {
			t.Errorf("Parse(%q): expected error", in)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return INR(100).Add(INR(200)) }, INR(300)},
		{"Subtract", func() Money { return INR(500).Subtract(INR(200)) }, INR(300)},
		{"Negate", func() Money { return INR(100).Negate() }, INR(-100)},
		{"Abs negative", func() Money { return INR(-100).Abs() }, INR(100)},
		{"Fractional", func() Money {
			return MustParse("0.1", "inr").Add(MustParse("0.2", "inr"))
		}, MustParse("0.3", "inr")},
		{"Sum", func() Money { return Sum("inr", INR(1000), INR(500), INR(-300)) }, INR(1200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMoneyCurrencyMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for currency mismatch")
		}
	}()

	_ = INR(100).Add(USD(100))
}

func TestMoneyComparison(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Money
		less    bool
		greater bool
		equal   bool
	}{
		{"Equal", INR(100), INR(100), false, false, true},
		{"Trailing zeros", MustParse("100.00", "inr"), INR(100), false, false, true},
		{"Less", INR(50), INR(100), true, false, false},
		{"Greater", INR(200), INR(100), false, true, false},
		{"Zero equal", INR(0), Zero("inr"), false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.LessThan(tt.b); got != tt.less {
				t.Errorf("LessThan: got %v, want %v", got, tt.less)
			}
			if got := tt.a.GreaterThan(tt.b); got != tt.greater {
				t.Errorf("GreaterThan: got %v, want %v", got, tt.greater)
			}
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal: got %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestMoneyPredicates(t *testing.T) {
	tests := []struct {
		name       string
		money      Money
		isZero     bool
		isPositive bool
		isNegative bool
	}{
		{"Zero", INR(0), true, false, false},
		{"Positive", INR(100), false, true, false},
		{"Negative", INR(-100), false, false, true},
		{"Tiny positive", MustParse("0.0001", "inr"), false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.money.IsZero(); got != tt.isZero {
				t.Errorf("IsZero: got %v, want %v", got, tt.isZero)
			}
			if got := tt.money.IsPositive(); got != tt.isPositive {
				t.Errorf("IsPositive: got %v, want %v", got, tt.isPositive)
			}
			if got := tt.money.IsNegative(); got != tt.isNegative {
				t.Errorf("IsNegative: got %v, want %v", got, tt.isNegative)
			}
		})
	}
}

func TestMoneyFormatMajor(t *testing.T) {
	tests := []struct {
		money    Money
		expected string
	}{
		{INR(49), "49.00"},
		{MustParse("0.01", "inr"), "0.01"},
		{MustParse("49.995", "inr"), "50.00"},
		{MustParse("1500.5", "inr"), "1500.50"},
		{INR(-49), "-49.00"},
		{MustParse("100", "jpy"), "100"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.money.FormatMajor(); got != tt.expected {
				t.Errorf("FormatMajor: got %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestMoneyJSONKeepsPrecision(t *testing.T) {
	original := MustParse("1234.5678", "inr")

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal into map failed: %v", err)
	}
	if decoded["amount"] != "1234.5678" {
		t.Errorf("amount: got %s, want 1234.5678", decoded["amount"])
	}
	if decoded["display"] != "₹1234.57" {
		t.Errorf("display: got %s, want ₹1234.57", decoded["display"])
	}

	var restored Money
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !restored.Equal(original) {
		t.Errorf("round-trip: got %v, want %v", restored, original)
	}
}
