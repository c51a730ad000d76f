// Package money implements the fixed-precision amount type used for balances
// and transaction amounts.
//
// A Money value is a non-negative count of minor units (cents) with two
// decimal places. Negative or unrepresentable values cannot be constructed;
// signed arithmetic goes through Delta.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eaglebank/ledger/shared/errs"
)

// Scale is the number of fractional decimal digits.
const Scale = 2

// MaxMinor is the largest representable value in minor units (99 999 999.99).
const MaxMinor int64 = 9_999_999_999

var maxDecimal = decimal.New(MaxMinor, -Scale)

// Money is a non-negative amount in minor units.
type Money struct {
	minor int64
}

// Zero is 0.00.
var Zero = Money{}

// Delta is a signed change in minor units, applied to a balance by the store.
type Delta int64

// FromMinor builds a Money from minor units.
func FromMinor(minor int64) (Money, error) {
	if minor < 0 {
		return Money{}, errs.Newf(errs.InvalidAmount, "must not be negative: %d", minor)
	}
	if minor > MaxMinor {
		return Money{}, errs.Newf(errs.InvalidAmount, "exceeds maximum %s", maxDecimal.StringFixed(Scale))
	}
	return Money{minor: minor}, nil
}

// MustFromMinor is FromMinor for constants and tests. It panics on error.
func MustFromMinor(minor int64) Money {
	m, err := FromMinor(minor)
	if err != nil {
		panic(err)
	}
	return m
}

// Parse reads a decimal string such as "150", "150.5" or "150.50".
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, errs.New(errs.InvalidAmount, "amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, errs.Newf(errs.InvalidAmount, "malformed amount %q", s)
	}
	return FromDecimal(d)
}

// MustParse is Parse for constants and tests. It panics on error.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal converts d, rejecting negatives, more than Scale fractional
// digits, and values above MaxMinor.
func FromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, errs.Newf(errs.InvalidAmount, "must not be negative: %s", d.String())
	}
	scaled := d.Shift(Scale)
	if !scaled.Equal(scaled.Truncate(0)) {
		return Money{}, errs.Newf(errs.InvalidAmount, "more than %d decimal places: %s", Scale, d.String())
	}
	if scaled.GreaterThan(decimal.NewFromInt(MaxMinor)) {
		return Money{}, errs.Newf(errs.InvalidAmount, "exceeds maximum %s", maxDecimal.StringFixed(Scale))
	}
	return Money{minor: scaled.IntPart()}, nil
}

// Positive rejects zero amounts. Transaction amounts must pass it.
func Positive(m Money) error {
	if !m.IsPositive() {
		return errs.New(errs.InvalidAmount, "must be positive")
	}
	return nil
}

// Minor returns the value in minor units.
func (m Money) Minor() int64 { return m.minor }

// Decimal returns the value as a decimal.Decimal.
func (m Money) Decimal() decimal.Decimal { return decimal.New(m.minor, -Scale) }

func (m Money) IsZero() bool     { return m.minor == 0 }
func (m Money) IsPositive() bool { return m.minor > 0 }

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(o Money) int {
	switch {
	case m.minor < o.minor:
		return -1
	case m.minor > o.minor:
		return 1
	}
	return 0
}

func (m Money) Equal(o Money) bool    { return m.minor == o.minor }
func (m Money) LessThan(o Money) bool { return m.minor < o.minor }

// Covers reports whether m is at least amount.
func (m Money) Covers(amount Money) bool { return m.minor >= amount.minor }

// Add returns m+o. Results above MaxMinor are rejected.
func (m Money) Add(o Money) (Money, error) {
	if o.minor > MaxMinor-m.minor {
		return Money{}, errs.Newf(errs.InvalidAmount, "exceeds maximum %s", maxDecimal.StringFixed(Scale))
	}
	return Money{minor: m.minor + o.minor}, nil
}

// Sub returns m-o. A negative result is rejected with InsufficientFunds.
func (m Money) Sub(o Money) (Money, error) {
	if o.minor > m.minor {
		return Money{}, errs.Newf(errs.InsufficientFunds, "%s does not cover %s", m, o)
	}
	return Money{minor: m.minor - o.minor}, nil
}

// Credit is the delta that adds m to a balance.
func (m Money) Credit() Delta { return Delta(m.minor) }

// Debit is the delta that removes m from a balance.
func (m Money) Debit() Delta { return Delta(-m.minor) }

// String formats the change with an explicit sign, e.g. "+5.00" or "-0.50".
func (d Delta) String() string {
	s := decimal.New(int64(d), -Scale).StringFixed(Scale)
	if d >= 0 {
		return "+" + s
	}
	return s
}

// String formats with exactly two decimal places, e.g. "150.00".
func (m Money) String() string { return m.Decimal().StringFixed(Scale) }

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts a JSON string ("50.00") or number (50.5).
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return errs.New(errs.InvalidAmount, "amount is required")
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errs.Newf(errs.InvalidAmount, "malformed amount %s", raw)
		}
		raw = s
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value stores Money as BIGINT minor units.
func (m Money) Value() (driver.Value, error) {
	return m.minor, nil
}

// Scan reads BIGINT minor units.
func (m *Money) Scan(src any) error {
	var minor int64
	switch v := src.(type) {
	case int64:
		minor = v
	case int32:
		minor = int64(v)
	case int:
		minor = int64(v)
	case []byte:
		if _, err := fmt.Sscan(string(v), &minor); err != nil {
			return fmt.Errorf("scan money from %q: %w", v, err)
		}
	default:
		return fmt.Errorf("scan money: unsupported type %T", src)
	}
	parsed, err := FromMinor(minor)
	if err != nil {
		return fmt.Errorf("scan money: %w", err)
	}
	*m = parsed
	return nil
}

// Apply returns balance+delta, or an error when the result leaves [0, MaxMinor].
func Apply(balance Money, delta Delta) (Money, error) {
	next := balance.minor + int64(delta)
	if next < 0 {
		return Money{}, errs.Newf(errs.InsufficientFunds, "%s does not cover %s", balance, Money{minor: -int64(delta)})
	}
	if next > MaxMinor || (delta > 0 && next < balance.minor) {
		return Money{}, errs.Newf(errs.InvalidAmount, "exceeds maximum %s", maxDecimal.StringFixed(Scale))
	}
	return Money{minor: next}, nil
}
