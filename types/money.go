// Package types provides common types used across the reseller back office.
package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is the wallet currency used when none is configured.
const DefaultCurrency = "inr"

// Money represents a monetary value in major currency units.
// Amounts keep full decimal precision; formatting rounds for display only.
//
// Examples:
//   - INR(1000) = ₹1000.00
//   - MustParse("49.995", "usd") = $50.00 when displayed, 49.995 when stored
type Money struct {
	Amount   decimal.Decimal `json:"amount"`   // Major units, arbitrary precision
	Currency string          `json:"currency"` // ISO 4217 lowercase: "inr", "usd", "eur"
}

// New creates a Money value from a decimal amount.
func New(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: strings.ToLower(currency)}
}

// Parse parses a decimal string such as "1500.50" into Money.
func Parse(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", amount, err)
	}
	return New(d, currency), nil
}

// MustParse is like Parse but panics on error. Use for literals.
func MustParse(amount, currency string) Money {
	m, err := Parse(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Common currency constructors, whole major units.

// INR creates a Money value in Indian Rupees.
func INR(rupees int64) Money { return New(decimal.NewFromInt(rupees), "inr") }

// USD creates a Money value in US Dollars.
func USD(dollars int64) Money { return New(decimal.NewFromInt(dollars), "usd") }

// EUR creates a Money value in Euros.
func EUR(euros int64) Money { return New(decimal.NewFromInt(euros), "eur") }

// Zero returns a zero Money value in the specified currency.
func Zero(currency string) Money { return New(decimal.Zero, currency) }

// Arithmetic operations

// Add adds two Money values. Panics if currencies don't match.
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}
}

// Subtract subtracts another Money value. Panics if currencies don't match.
func (m Money) Subtract(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}
}

// Negate returns the negative of the Money value.
func (m Money) Negate() Money {
	return Money{Amount: m.Amount.Neg(), Currency: m.Currency}
}

// Abs returns the absolute value.
func (m Money) Abs() Money {
	return Money{Amount: m.Amount.Abs(), Currency: m.Currency}
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount.IsZero() }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount.IsPositive() }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount.IsNegative() }

// Equal returns true if both values carry the same amount and currency.
// Trailing zeros are insignificant: 10 equals 10.00.
func (m Money) Equal(other Money) bool {
	return m.Amount.Equal(other.Amount) && m.Currency == other.Currency
}

// LessThan returns true if this Money is less than other. Panics if currencies don't match.
func (m Money) LessThan(other Money) bool {
	m.assertSameCurrency(other)
	return m.Amount.LessThan(other.Amount)
}

// GreaterThan returns true if this Money is greater than other. Panics if currencies don't match.
func (m Money) GreaterThan(other Money) bool {
	m.assertSameCurrency(other)
	return m.Amount.GreaterThan(other.Amount)
}

// Formatting methods

// FormatMajor returns the amount rounded to two decimals without a symbol.
// Zero-decimal currencies (JPY) render as whole numbers.
func (m Money) FormatMajor() string {
	return m.Amount.StringFixed(int32(currencyDecimals(m.Currency))) //nolint:gosec // bounded small int
}

// String returns a human-readable string with currency symbol.
// Examples: "₹1000.00", "$49.00", "€199.00"
func (m Money) String() string {
	return currencySymbol(m.Currency) + m.FormatMajor()
}

// MarshalJSON implements json.Marshaler. The amount is emitted as a
// decimal string so no precision is lost in transit.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount.String(),
		Currency: m.Currency,
		Display:  m.String(),
	})
}

// UnmarshalJSON implements json.Unmarshaler. The display field is ignored.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("money: unmarshal: %w", err)
	}
	*m = New(raw.Amount, raw.Currency)
	return nil
}

// Helper functions

// assertSameCurrency panics if currencies don't match.
func (m Money) assertSameCurrency(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
}

// currencySymbol returns the symbol for a currency code.
func currencySymbol(currency string) string {
	symbols := map[string]string{
		"inr": "₹",
		"usd": "$",
		"eur": "€",
		"gbp": "£",
		"jpy": "¥",
		"aed": "AED ",
	}
	if sym, ok := symbols[strings.ToLower(currency)]; ok {
		return sym
	}
	return strings.ToUpper(currency) + " "
}

// currencyDecimals returns the number of display decimals for a currency.
func currencyDecimals(currency string) int {
	switch strings.ToLower(currency) {
	case "jpy", "krw", "vnd", "clp":
		return 0
	default:
		return 2
	}
}

// Sum calculates the sum of multiple Money values. All must have the same currency.
func Sum(currency string, values ...Money) Money {
	result := Zero(currency)
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}
