package flickr

import (
	"context"
	"fmt"
	"net/url"
)

// OAuth handshake endpoints.
const (
	requestTokenURL = "https://www.flickr.com/services/oauth/request_token" //nolint:gosec // endpoint URL, not a credential
	accessTokenURL  = "https://www.flickr.com/services/oauth/access_token"  //nolint:gosec // endpoint URL, not a credential
	authorizeURL    = "https://www.flickr.com/services/oauth/authorize"
)

// RequestToken performs step one of the OOB authorization handshake and
// installs the temporary token on the client so the access-token exchange
// can be signed with its secret.
func (c *Client) RequestToken(ctx context.Context) (*Token, error) {
	body, err := c.get(ctx, requestTokenURL, map[string]string{
		"oauth_callback": "oob",
	})
	if err != nil {
		return nil, fmt.Errorf("flickr: request token: %w", err)
	}

	token, err := parseTokenResponse(string(body))
	if err != nil {
		return nil, fmt.Errorf("flickr: request token: %w", err)
	}

	c.token = token

	return token, nil
}

// AuthorizeURL returns the browser URL the user must visit to approve the
// request token. Read-only permission is all the archive needs.
func (c *Client) AuthorizeURL() string {
	tok := ""
	if c.token != nil {
		tok = c.token.Token
	}

	return authorizeURL + "?oauth_token=" + url.QueryEscape(tok) + "&perms=read"
}

// AccessToken exchanges the approved request token plus the user-supplied
// verification code for the long-lived session token, and installs it.
func (c *Client) AccessToken(ctx context.Context, verifier string) (*Token, error) {
	body, err := c.get(ctx, accessTokenURL, map[string]string{
		"oauth_verifier": verifier,
	})
	if err != nil {
		return nil, fmt.Errorf("flickr: access token: %w", err)
	}

	token, err := parseTokenResponse(string(body))
	if err != nil {
		return nil, fmt.Errorf("flickr: access token: %w", err)
	}

	c.token = token

	return token, nil
}

// parseTokenResponse decodes the form-encoded token pair the handshake
// endpoints return on success.
func parseTokenResponse(body string) (*Token, error) {
	values, err := url.ParseQuery(body)
	if err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}

	tok := values.Get("oauth_token")
	secret := values.Get("oauth_token_secret")

	if tok == "" || secret == "" {
		return nil, fmt.Errorf("token response missing fields: %s", truncate(body, 120))
	}

	return &Token{Token: tok, Secret: secret}, nil
}
