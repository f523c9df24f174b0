package beanledger

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Amount represents a monetary value attached to a posting: a decimal number
// and a currency code. Arithmetic is exact decimal arithmetic.
type Amount struct {
	Value    decimal.Decimal
	Currency string
}

// A builds an Amount from any numeric type, mostly for tests and constructors.
func A[T float32 | float64 | int | int32 | int64 | decimal.Decimal](value T, currency string) Amount {
	return Amount{Value: newDecimal(value), Currency: currency}
}

func newDecimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case decimal.Decimal:
		return n
	case float32:
		return decimal.NewFromFloat32(n)
	case float64:
		return decimal.NewFromFloat(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int32:
		return decimal.NewFromInt32(n)
	case int64:
		return decimal.NewFromInt(n)
	default:
		panic(fmt.Sprintf("unsupported decimal source %T", v))
	}
}

// ParseAmount parses a decimal number and currency, e.g. ("-10.50", "USD").
func ParseAmount(number, currency string) (Amount, error) {
	v, err := decimal.NewFromString(number)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", number, err)
	}
	return Amount{Value: v, Currency: currency}, nil
}

// String returns the canonical ledger representation, e.g. "-10.50 USD".
func (a Amount) String() string { return a.Value.String() + " " + a.Currency }

// Display renders the amount with its currency's conventional formatting
// (symbol, grouping, minor units) for human-facing output.
func (a Amount) Display() string {
	cur := money.GetCurrency(a.Currency)
	if cur == nil {
		return a.String()
	}
	minor := a.Value.Shift(int32(cur.Fraction))
	return money.New(minor.IntPart(), a.Currency).Display()
}

func (a Amount) IsZero() bool { return a.Value.IsZero() }

func (a Amount) Neg() Amount { return Amount{Value: a.Value.Neg(), Currency: a.Currency} }

func (a Amount) Equal(b Amount) bool {
	return a.Currency == b.Currency && a.Value.Equal(b.Value)
}

// ValidateCurrency reports an error when the code is not a known ISO-4217
// currency or a plausible commodity code (uppercase letters and digits).
func ValidateCurrency(code string) error {
	if code == "" {
		return fmt.Errorf("currency code is missing")
	}
	if money.GetCurrency(code) != nil {
		return nil
	}
	// Commodity codes (e.g. "VACHR", "GOOG") are legal in the ledger format.
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '.' && r != '_' && r != '-' {
			return fmt.Errorf("invalid currency code %q", code)
		}
	}
	return nil
}
