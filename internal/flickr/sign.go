package flickr

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // HMAC-SHA1 is what the OAuth 1.0a protocol mandates
	"encoding/base64"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// percentEncode applies RFC 3986 percent-encoding as required by the
// OAuth 1.0a signature base string. url.QueryEscape is close but encodes
// spaces as '+' and escapes '~', both of which the server rejects.
func percentEncode(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	escaped = strings.ReplaceAll(escaped, "%7E", "~")

	return escaped
}

// Sign computes the OAuth 1.0a HMAC-SHA1 signature for a request.
// Parameters are sorted lexicographically by key, joined into a normalized
// string, and combined with the method and URL into the signature base
// string. The signing key is urlencode(consumerSecret)&urlencode(tokenSecret);
// tokenSecret is empty before the access-token exchange completes.
//
// Sign is deterministic for identical inputs and performs no I/O. Malformed
// inputs still produce a syntactically valid signature; the server rejects
// it and the rejection surfaces as an APIError one layer up.
func Sign(method, rawurl string, params map[string]string, consumerSecret, tokenSecret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	base := strings.ToUpper(method) +
		"&" + percentEncode(rawurl) +
		"&" + percentEncode(strings.Join(pairs, "&"))

	key := percentEncode(consumerSecret) + "&" + percentEncode(tokenSecret)

	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// nonce returns a fresh per-request nonce.
func nonce() string {
	return uuid.NewString()
}

// authParams returns the oauth_* protocol parameters for one request,
// minus the signature. The caller merges these with the operation
// parameters, signs the combined set, and attaches oauth_signature.
func (c *Client) authParams() map[string]string {
	p := map[string]string{
		"oauth_consumer_key":     c.creds.APIKey,
		"oauth_nonce":            nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(c.now().Unix(), 10),
		"oauth_version":          "1.0",
	}

	if c.token != nil && c.token.Token != "" {
		p["oauth_token"] = c.token.Token
	}

	return p
}
