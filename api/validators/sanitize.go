package validators

import (
	"net/url"
	"strings"
	"unicode"

	pkgerrors "github.com/angelmondragon/shoppingcart/pkg/errors"
)

// PathIdentifier decodes and trims a path segment used as a storage key.
// Over-long values are rejected rather than truncated so two identifiers
// never collapse onto the same stored cart.
func PathIdentifier(raw string, maxLen int) (string, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "identifier is not a valid path segment")
	}
	value := strings.TrimSpace(decoded)
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "identifier is required")
	}
	if maxLen > 0 && len(value) > maxLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "identifier is too long")
	}
	if strings.IndexFunc(value, unicode.IsControl) >= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "identifier contains control characters")
	}
	return value, nil
}
