package money

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/shoppingcart/pkg/enums"
	pkgerrors "github.com/angelmondragon/shoppingcart/pkg/errors"
)

// ErrAmountOverflow is returned when a result does not fit in int64 minor units.
var ErrAmountOverflow = pkgerrors.New(pkgerrors.CodeInvalidArgument, "amount exceeds the representable range")

var (
	minAmount = decimal.NewFromInt(math.MinInt64)
	maxAmount = decimal.NewFromInt(math.MaxInt64)
)

// Money is an exact monetary amount expressed in integer minor units (cents).
// The zero value is not a valid Money: it carries no currency.
type Money struct {
	amount   int64
	currency enums.Currency
}

// New builds a Money for the given minor-unit amount and currency.
func New(amount int64, currency enums.Currency) (Money, error) {
	if !currency.IsValid() {
		return Money{}, pkgerrors.New(pkgerrors.CodeInvalidArgument, fmt.Sprintf("invalid currency %q", currency))
	}
	return Money{amount: amount, currency: currency}, nil
}

// MustNew is like New but panics on an invalid currency. Intended for fixtures and constants.
func MustNew(amount int64, currency enums.Currency) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Parse builds a Money from a decimal string of minor units and a currency code.
func Parse(amount, currency string) (Money, error) {
	cur, err := enums.ParseCurrency(currency)
	if err != nil {
		return Money{}, pkgerrors.Wrap(pkgerrors.CodeInvalidArgument, err, "invalid currency")
	}
	value, err := strconv.ParseInt(strings.TrimSpace(amount), 10, 64)
	if err != nil {
		return Money{}, pkgerrors.Wrap(pkgerrors.CodeInvalidArgument, err, fmt.Sprintf("invalid amount %q", amount))
	}
	return Money{amount: value, currency: cur}, nil
}

// Amount returns the amount in minor units.
func (m Money) Amount() int64 {
	return m.amount
}

// Currency returns the ISO 4217 code.
func (m Money) Currency() enums.Currency {
	return m.currency
}

// IsValid reports whether m carries a recognised currency.
func (m Money) IsValid() bool {
	return m.currency.IsValid()
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.amount == 0
}

// Equals reports whether both amount and currency match.
func (m Money) Equals(other Money) bool {
	return m.amount == other.amount && m.currency == other.currency
}

// SameCurrency reports whether m and other share a currency.
func (m Money) SameCurrency(other Money) bool {
	return m.currency == other.currency
}

// Add returns m + other. Both operands must share a currency.
func (m Money) Add(other Money) (Money, error) {
	if !m.SameCurrency(other) {
		return Money{}, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("currency mismatch: %s and %s", m.currency, other.currency))
	}
	a, b := m.amount, other.amount
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return Money{}, ErrAmountOverflow
	}
	return Money{amount: a + b, currency: m.currency}, nil
}

// Multiply returns m scaled by factor, rounded half away from zero to whole minor units.
// Results outside the int64 range saturate at the nearest bound; use MultiplyChecked
// where that must be rejected.
func (m Money) Multiply(factor decimal.Decimal) Money {
	scaled := decimal.NewFromInt(m.amount).Mul(factor).Round(0)
	switch {
	case scaled.GreaterThan(maxAmount):
		return Money{amount: math.MaxInt64, currency: m.currency}
	case scaled.LessThan(minAmount):
		return Money{amount: math.MinInt64, currency: m.currency}
	}
	return Money{amount: scaled.IntPart(), currency: m.currency}
}

// MultiplyChecked is Multiply that fails with ErrAmountOverflow instead of saturating.
func (m Money) MultiplyChecked(factor decimal.Decimal) (Money, error) {
	scaled := decimal.NewFromInt(m.amount).Mul(factor).Round(0)
	if scaled.GreaterThan(maxAmount) || scaled.LessThan(minAmount) {
		return Money{}, ErrAmountOverflow
	}
	return Money{amount: scaled.IntPart(), currency: m.currency}, nil
}

// Zero returns a zero amount in the same currency.
func (m Money) Zero() Money {
	return Money{currency: m.currency}
}

// String renders the amount and currency, e.g. "1000 USD".
func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.amount, m.currency)
}

type wireMoney struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON encodes m as {"amount":"<minor units>","currency":"<code>"}.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMoney{
		Amount:   strconv.FormatInt(m.amount, 10),
		Currency: string(m.currency),
	})
}

// UnmarshalJSON accepts the amount either as a decimal string or a JSON integer.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   json.Number `json:"amount"`
		Currency string      `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInvalidArgument, err, "invalid money payload")
	}
	parsed, err := Parse(raw.Amount.String(), raw.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value stores m as its JSON text.
func (m Money) Value() (driver.Value, error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("money: invalid currency %q", m.currency)
	}
	raw, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (m *Money) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = Money{}
		return nil
	case string:
		return m.UnmarshalJSON([]byte(v))
	case []byte:
		return m.UnmarshalJSON(v)
	default:
		return fmt.Errorf("money: unsupported scan type %T", value)
	}
}
