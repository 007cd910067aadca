package flickr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignDeterministic(t *testing.T) {
	params := map[string]string{
		"method":             "flickr.test.login",
		"format":             "json",
		"oauth_consumer_key": "key",
		"oauth_nonce":        "fixed-nonce",
		"oauth_timestamp":    "1700000000",
	}

	first := Sign("GET", DefaultRestURL, params, "secret", "tokensecret")
	second := Sign("GET", DefaultRestURL, params, "secret", "tokensecret")

	assert.Equal(t, first, second, "same inputs must produce the same signature")
	assert.NotEmpty(t, first)
}

func TestSignInputSensitivity(t *testing.T) {
	base := map[string]string{"a": "1", "b": "2"}

	ref := Sign("GET", DefaultRestURL, base, "secret", "toksec")

	tests := []struct {
		name   string
		method string
		params map[string]string
		secret string
		tokSec string
	}{
		{"different method", "POST", base, "secret", "toksec"},
		{"different param value", "GET", map[string]string{"a": "1", "b": "3"}, "secret", "toksec"},
		{"extra param", "GET", map[string]string{"a": "1", "b": "2", "c": "3"}, "secret", "toksec"},
		{"different consumer secret", "GET", base, "other", "toksec"},
		{"different token secret", "GET", base, "secret", "other"},
		{"empty token secret", "GET", base, "secret", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sign(tt.method, DefaultRestURL, tt.params, tt.secret, tt.tokSec)
			assert.NotEqual(t, ref, got)
		})
	}
}

func TestSignParamOrderIrrelevant(t *testing.T) {
	// Maps have no order, but build two maps with different insertion
	// sequences to document that sorting makes the result canonical.
	a := map[string]string{}
	a["z"] = "last"
	a["a"] = "first"
	a["m"] = "middle"

	b := map[string]string{}
	b["m"] = "middle"
	b["z"] = "last"
	b["a"] = "first"

	assert.Equal(t,
		Sign("GET", DefaultRestURL, a, "s", ""),
		Sign("GET", DefaultRestURL, b, "s", ""),
	)
}

func TestPercentEncode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"with space", "with%20space"},
		{"tilde~ok", "tilde~ok"},
		{"slash/and&amp", "slash%2Fand%26amp"},
		{"https://www.flickr.com/services/rest/", "https%3A%2F%2Fwww.flickr.com%2Fservices%2Frest%2F"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, percentEncode(tt.in))
		})
	}
}

func TestAuthParams(t *testing.T) {
	c := NewClient("", Credentials{APIKey: "key"}, &Token{Token: "tok", Secret: "sec"}, nil, testLogger(t))

	p := c.authParams()

	require.Equal(t, "key", p["oauth_consumer_key"])
	require.Equal(t, "HMAC-SHA1", p["oauth_signature_method"])
	require.Equal(t, "1.0", p["oauth_version"])
	require.Equal(t, "tok", p["oauth_token"])
	assert.NotEmpty(t, p["oauth_nonce"])
	assert.NotEmpty(t, p["oauth_timestamp"])

	// Fresh nonce every call.
	assert.NotEqual(t, p["oauth_nonce"], c.authParams()["oauth_nonce"])
}

func TestAuthParamsWithoutToken(t *testing.T) {
	c := NewClient("", Credentials{APIKey: "key"}, nil, nil, testLogger(t))

	p := c.authParams()

	_, hasToken := p["oauth_token"]
	assert.False(t, hasToken, "no oauth_token param before authorization")
}

func TestSignatureBaseUsesUppercaseMethod(t *testing.T) {
	lower := Sign("get", DefaultRestURL, map[string]string{"a": "1"}, "s", "")
	upper := Sign("GET", DefaultRestURL, map[string]string{"a": "1"}, "s", "")

	assert.Equal(t, upper, lower)
	assert.False(t, strings.ContainsAny(lower, " \n"))
}
