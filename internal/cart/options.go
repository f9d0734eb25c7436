package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/shoppingcart/pkg/errors"
)

// Option is a single key/value customisation of a line item (size, color, ...).
type Option struct {
	Key   string
	Value any
}

// Options is an ordered, immutable bag of scalar values. The zero value is an empty bag.
// Insertion order is kept for display and serialization; row ids ignore it.
type Options struct {
	keys   []string
	values map[string]any
}

// NewOptions builds a bag from ordered pairs. A repeated key keeps its first position and
// takes the last value.
func NewOptions(pairs ...Option) (Options, error) {
	opts := Options{values: make(map[string]any, len(pairs))}
	for _, pair := range pairs {
		value, err := normalizeOptionValue(pair.Value)
		if err != nil {
			return Options{}, pkgerrors.Wrap(pkgerrors.CodeInvalidArgument, err, fmt.Sprintf("invalid value for option %q", pair.Key))
		}
		if _, exists := opts.values[pair.Key]; !exists {
			opts.keys = append(opts.keys, pair.Key)
		}
		opts.values[pair.Key] = value
	}
	return opts, nil
}

// MustOptions is like NewOptions but panics on invalid values.
func MustOptions(pairs ...Option) Options {
	opts, err := NewOptions(pairs...)
	if err != nil {
		panic(err)
	}
	return opts
}

// OptionsFromMap builds a bag from a Go map. Keys are inserted in ascending order since
// maps carry no order of their own.
func OptionsFromMap(values map[string]any) (Options, error) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]Option, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, Option{Key: k, Value: values[k]})
	}
	return NewOptions(pairs...)
}

// All exports the pairs in insertion order.
func (o Options) All() []Option {
	out := make([]Option, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, Option{Key: k, Value: o.values[k]})
	}
	return out
}

// ToMap exports the bag for serialization.
func (o Options) ToMap() map[string]any {
	out := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		out[k] = o.values[k]
	}
	return out
}

// Keys returns the keys in insertion order.
func (o Options) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Get returns the value stored under key.
func (o Options) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Has reports whether key is present.
func (o Options) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Len returns the number of options.
func (o Options) Len() int {
	return len(o.keys)
}

// With returns a copy of o with key set to value.
func (o Options) With(key string, value any) (Options, error) {
	return NewOptions(append(o.All(), Option{Key: key, Value: value})...)
}

func (o Options) sorted() []Option {
	pairs := o.All()
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Key < pairs[j].Key
	})
	return pairs
}

// MarshalJSON writes the options as a JSON object in insertion order.
func (o Options) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := marshalOptionValue(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping document order. An empty JSON array is
// accepted as an empty bag.
func (o *Options) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("[]")) {
		*o = Options{}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInvalidArgument, err, "invalid options payload")
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return pkgerrors.New(pkgerrors.CodeInvalidArgument, "options must be a JSON object")
	}

	var pairs []Option
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInvalidArgument, err, "invalid options payload")
		}
		key, _ := keyTok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInvalidArgument, err, fmt.Sprintf("invalid value for option %q", key))
		}
		pairs = append(pairs, Option{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInvalidArgument, err, "invalid options payload")
	}

	parsed, err := NewOptions(pairs...)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// normalizeOptionValue folds every accepted scalar into string, bool, int64, uint64,
// float64 or nil.
func normalizeOptionValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, int64, uint64:
		return val, nil
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case uint:
		return uint64(val), nil
	case uint8:
		return uint64(val), nil
	case uint16:
		return uint64(val), nil
	case uint32:
		return uint64(val), nil
	case float32:
		return normalizeFloat(float64(val))
	case float64:
		return normalizeFloat(val)
	case json.Number:
		// Integer literals stay integers; a fraction or exponent marks a float.
		if !strings.ContainsAny(val.String(), ".eE") {
			if i, err := val.Int64(); err == nil {
				return i, nil
			}
			if u, err := strconv.ParseUint(val.String(), 10, 64); err == nil {
				return u, nil
			}
		}
		f, err := val.Float64()
		if err != nil {
			return nil, err
		}
		return normalizeFloat(f)
	default:
		return nil, fmt.Errorf("unsupported option type %T", v)
	}
}

func normalizeFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("option value %v is not a finite number", f)
	}
	return f, nil
}

// marshalOptionValue keeps the number kind through a JSON round trip: an integral
// float64 is written as "1.0" so it decodes back to a float and hashes the same.
func marshalOptionValue(v any) ([]byte, error) {
	out, err := marshalNoEscape(v)
	if err != nil {
		return nil, err
	}
	if _, isFloat := v.(float64); isFloat && !bytes.ContainsAny(out, ".eE") {
		out = append(out, '.', '0')
	}
	return out, nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
