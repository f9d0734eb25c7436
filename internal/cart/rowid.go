package cart

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var integerKeyRe = regexp.MustCompile(`^(0|-?[1-9][0-9]*)$`)

// GenerateRowID derives the deduplication key of a line item: the MD5 hex digest of the
// identifier followed by the canonical serialization of the key-sorted options. The
// serialization is length-prefixed and matches the legacy PHP cart, so row ids computed
// by either implementation agree. id is normalized the same way New does, so any Go
// integer type hashes like its int64 value.
func GenerateRowID(id any, options Options) string {
	if normalized, err := normalizeID(id); err == nil {
		id = normalized
	}
	var b strings.Builder
	b.WriteString(identifierString(id))
	writeOptionArray(&b, options.sorted())

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func identifierString(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

func writeOptionArray(b *strings.Builder, pairs []Option) {
	b.WriteString("a:")
	b.WriteString(strconv.Itoa(len(pairs)))
	b.WriteString(":{")
	for _, pair := range pairs {
		writeArrayKey(b, pair.Key)
		writeScalar(b, pair.Value)
	}
	b.WriteString("}")
}

// writeArrayKey mirrors PHP array keys: decimal integer strings become integer keys.
func writeArrayKey(b *strings.Builder, key string) {
	if integerKeyRe.MatchString(key) {
		if n, err := strconv.ParseInt(key, 10, 64); err == nil {
			writeInt(b, n)
			return
		}
	}
	writeString(b, key)
}

func writeScalar(b *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		b.WriteString("N;")
	case bool:
		if val {
			b.WriteString("b:1;")
		} else {
			b.WriteString("b:0;")
		}
	case int64:
		writeInt(b, val)
	case uint64:
		b.WriteString("i:")
		b.WriteString(strconv.FormatUint(val, 10))
		b.WriteString(";")
	case float64:
		b.WriteString("d:")
		b.WriteString(formatFloat(val))
		b.WriteString(";")
	case string:
		writeString(b, val)
	}
}

func writeInt(b *strings.Builder, n int64) {
	b.WriteString("i:")
	b.WriteString(strconv.FormatInt(n, 10))
	b.WriteString(";")
}

func writeString(b *strings.Builder, s string) {
	b.WriteString("s:")
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteString(`:"`)
	b.WriteString(s)
	b.WriteString(`";`)
}

// formatFloat renders the shortest round-trip form, switching to PHP's "1.0E+25" style
// outside the plain-notation range.
func formatFloat(f float64) string {
	if f == 0 {
		if math.Signbit(f) {
			return "-0"
		}
		return "0"
	}
	exp := int(math.Floor(math.Log10(math.Abs(f)))) + 1
	if exp < -3 || exp > 15 {
		mantissa, power, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
		if !strings.Contains(mantissa, ".") {
			mantissa += ".0"
		}
		n, _ := strconv.Atoi(power)
		sign := "+"
		if n < 0 {
			sign = "-"
			n = -n
		}
		return mantissa + "E" + sign + strconv.Itoa(n)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
