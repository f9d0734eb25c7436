package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/shoppingcart/pkg/errors"
)

type payload struct {
	Name string `json:"name" validate:"required,max=5"`
	Qty  int    `json:"qty" validate:"gte=0"`
}

func newRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	var dest payload
	require.NoError(t, DecodeJSONBody(newRequest(`{"name":"mug","qty":2}`), &dest))
	assert.Equal(t, payload{Name: "mug", Qty: 2}, dest)
}

func TestDecodeJSONBodyRejections(t *testing.T) {
	cases := map[string]string{
		"empty":    ``,
		"unknown":  `{"name":"mug","color":"red"}`,
		"trailing": `{"name":"mug"}{"name":"cup"}`,
		"syntax":   `{"name":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var dest payload
			err := DecodeJSONBody(newRequest(body), &dest)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	var dest payload
	err := DecodeJSONBody(newRequest(`{"name":"teapots","qty":-1}`), &dest)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be at most 5", details["name"])
	assert.Equal(t, "must be greater than or equal to 0", details["qty"])
}

func TestPathIdentifier(t *testing.T) {
	got, err := PathIdentifier("%20user%2042%20", 20)
	require.NoError(t, err)
	assert.Equal(t, "user 42", got)

	for _, raw := range []string{"   ", "%zz", "abcdefghijk", "a%00b"} {
		_, err := PathIdentifier(raw, 10)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "expected %q to be rejected", raw)
	}
}
