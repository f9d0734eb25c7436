package cart

import (
	"encoding/json"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/shoppingcart/pkg/errors"
)

// Validation failures raised by line item construction and mutation. All carry
// pkgerrors.CodeInvalidArgument.
var (
	ErrInvalidIdentifier = pkgerrors.New(pkgerrors.CodeInvalidArgument, "please supply a valid identifier")
	ErrInvalidName       = pkgerrors.New(pkgerrors.CodeInvalidArgument, "please supply a valid name")
	ErrInvalidPrice      = pkgerrors.New(pkgerrors.CodeInvalidArgument, "please supply a valid price")
	ErrInvalidQuantity   = pkgerrors.New(pkgerrors.CodeInvalidArgument, "please supply a valid quantity")
)

// normalizeID accepts integer or string identifiers and folds integers into int64.
// Empty values ("", "0", 0) are rejected.
func normalizeID(v any) (any, error) {
	switch id := v.(type) {
	case string:
		if id == "" || id == "0" {
			return nil, ErrInvalidIdentifier
		}
		return id, nil
	case int:
		return nonZeroID(int64(id))
	case int8:
		return nonZeroID(int64(id))
	case int16:
		return nonZeroID(int64(id))
	case int32:
		return nonZeroID(int64(id))
	case int64:
		return nonZeroID(id)
	case uint:
		return unsignedID(uint64(id))
	case uint8:
		return unsignedID(uint64(id))
	case uint16:
		return unsignedID(uint64(id))
	case uint32:
		return unsignedID(uint64(id))
	case uint64:
		return unsignedID(id)
	case float64:
		// JSON decoding into any yields float64 for every number.
		if id != math.Trunc(id) || math.Abs(id) > math.MaxInt64 {
			return nil, ErrInvalidIdentifier
		}
		return nonZeroID(int64(id))
	case json.Number:
		n, err := id.Int64()
		if err != nil {
			return nil, ErrInvalidIdentifier
		}
		return nonZeroID(n)
	default:
		return nil, ErrInvalidIdentifier
	}
}

func nonZeroID(id int64) (any, error) {
	if id == 0 {
		return nil, ErrInvalidIdentifier
	}
	return id, nil
}

func unsignedID(id uint64) (any, error) {
	if id > math.MaxInt64 {
		return nil, ErrInvalidIdentifier
	}
	return nonZeroID(int64(id))
}

// parseQuantity accepts any numeric value, including numeric strings, and rejects empty,
// zero and negative quantities.
func parseQuantity(v any) (decimal.Decimal, error) {
	qty, err := toDecimal(v)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !qty.IsPositive() {
		return decimal.Decimal{}, ErrInvalidQuantity
	}
	return qty, nil
}

// toDecimal converts a numeric value of any supported type. Sign is not checked.
func toDecimal(v any) (decimal.Decimal, error) {
	var qty decimal.Decimal
	switch q := v.(type) {
	case nil:
		return decimal.Decimal{}, ErrInvalidQuantity
	case decimal.Decimal:
		qty = q
	case int:
		qty = decimal.NewFromInt(int64(q))
	case int8:
		qty = decimal.NewFromInt(int64(q))
	case int16:
		qty = decimal.NewFromInt(int64(q))
	case int32:
		qty = decimal.NewFromInt(int64(q))
	case int64:
		qty = decimal.NewFromInt(q)
	case uint:
		qty = decimalFromUint(uint64(q))
	case uint8:
		qty = decimalFromUint(uint64(q))
	case uint16:
		qty = decimalFromUint(uint64(q))
	case uint32:
		qty = decimalFromUint(uint64(q))
	case uint64:
		qty = decimalFromUint(q)
	case float32:
		if math.IsNaN(float64(q)) || math.IsInf(float64(q), 0) {
			return decimal.Decimal{}, ErrInvalidQuantity
		}
		qty = decimal.NewFromFloat32(q)
	case float64:
		if math.IsNaN(q) || math.IsInf(q, 0) {
			return decimal.Decimal{}, ErrInvalidQuantity
		}
		qty = decimal.NewFromFloat(q)
	case json.Number:
		parsed, err := decimal.NewFromString(q.String())
		if err != nil {
			return decimal.Decimal{}, ErrInvalidQuantity
		}
		qty = parsed
	case string:
		trimmed := strings.TrimSpace(q)
		if trimmed == "" {
			return decimal.Decimal{}, ErrInvalidQuantity
		}
		parsed, err := decimal.NewFromString(trimmed)
		if err != nil {
			return decimal.Decimal{}, ErrInvalidQuantity
		}
		qty = parsed
	default:
		return decimal.Decimal{}, ErrInvalidQuantity
	}
	return qty, nil
}

func decimalFromUint(n uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0)
}
