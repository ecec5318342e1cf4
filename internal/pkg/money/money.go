package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrArithmetic is returned when an operation would divide by zero or leave the storage range.
var ErrArithmetic = errors.New("Arithmetic error")

const (
	// MaxScale is the number of fractional digits a stored amount may carry (numeric(24,6)).
	MaxScale = 6
	// MaxIntegerDigits bounds the integer part of any stored amount.
	MaxIntegerDigits = 18
	// CurrencyScale is the number of fractional digits used when formatting currency.
	CurrencyScale = 2
)

var upperBound = decimal.New(1, MaxIntegerDigits)

// Amount is an exact decimal used for quantities, unit prices and totals.
type Amount struct {
	value decimal.Decimal
}

// Zero is the additive identity.
var Zero = Amount{value: decimal.Zero}

// Parse reads a decimal string such as "50.00" or "12.5".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Zero, fmt.Errorf("%w: invalid decimal %q", ErrArithmetic, s)
	}
	return checked(d)
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromScaled builds an amount from an integer and a decimal scale: FromScaled(5000, 2) is 50.00.
func FromScaled(unscaled int64, scale int32) (Amount, error) {
	if scale < 0 {
		return Zero, fmt.Errorf("%w: negative scale %d", ErrArithmetic, scale)
	}
	return checked(decimal.New(unscaled, -scale))
}

// FromInt builds a whole amount.
func FromInt(v int64) Amount {
	return Amount{value: decimal.NewFromInt(v)}
}

func checked(d decimal.Decimal) (Amount, error) {
	if d.Abs().GreaterThanOrEqual(upperBound) {
		return Zero, fmt.Errorf("%w: %s overflows %d integer digits", ErrArithmetic, d.String(), MaxIntegerDigits)
	}
	if Scale(d) > MaxScale {
		return Zero, fmt.Errorf("%w: %s has more than %d fractional digits", ErrArithmetic, d.String(), MaxScale)
	}
	return Amount{value: d}, nil
}

// Scale returns the number of significant fractional digits of d (trailing zeros ignored).
func Scale(d decimal.Decimal) int32 {
	exp := d.Exponent()
	if exp >= 0 {
		return 0
	}
	// Normalise away trailing zeros: 50.00 has scale 0, 12.50 has scale 1.
	s := d.String()
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	frac := strings.TrimRight(s[i+1:], "0")
	return int32(len(frac))
}

// Add returns a + b.
func (a Amount) Add(b Amount) (Amount, error) {
	return checked(a.value.Add(b.value))
}

// Mul returns a × b, exact.
func (a Amount) Mul(b Amount) (Amount, error) {
	return checked(a.value.Mul(b.value))
}

// Div returns a ÷ b rounded to MaxScale digits.
func (a Amount) Div(b Amount) (Amount, error) {
	if b.value.IsZero() {
		return Zero, fmt.Errorf("%w: division by zero", ErrArithmetic)
	}
	return checked(a.value.DivRound(b.value, MaxScale))
}

func (a Amount) Cmp(b Amount) int          { return a.value.Cmp(b.value) }
func (a Amount) Equal(b Amount) bool       { return a.value.Equal(b.value) }
func (a Amount) GreaterThan(b Amount) bool { return a.value.GreaterThan(b.value) }
func (a Amount) LessThan(b Amount) bool    { return a.value.LessThan(b.value) }
func (a Amount) IsPositive() bool          { return a.value.IsPositive() }
func (a Amount) IsZero() bool              { return a.value.IsZero() }
func (a Amount) FractionDigits() int32     { return Scale(a.value) }

// StringFixed formats with exactly places fractional digits.
func (a Amount) StringFixed(places int32) string {
	return a.value.StringFixed(places)
}

// Currency formats with two fractional digits, e.g. "5000.00".
func (a Amount) Currency() string {
	return a.value.StringFixed(CurrencyScale)
}

// String returns the exact representation without trailing zero padding.
func (a Amount) String() string {
	return a.value.String()
}

// MarshalJSON writes the exact value as a JSON string, e.g. "5000".
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.value.String() + `"`), nil
}

// UnmarshalJSON accepts both "12.5" and 12.5.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*a = Zero
		return nil
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Scan implements sql.Scanner for numeric columns.
func (a *Amount) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	a.value = d
	return nil
}

// Value implements driver.Valuer; the amount is written as its exact string.
func (a Amount) Value() (driver.Value, error) {
	return a.value.String(), nil
}
