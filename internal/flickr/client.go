package flickr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// API endpoints and request pacing constants.
const (
	DefaultRestURL = "https://www.flickr.com/services/rest/"

	// defaultPageDelay is the courtesy pause between consecutive page
	// requests. Not a hard rate-limit guarantee, just throttling.
	defaultPageDelay = 100 * time.Millisecond

	userAgent = "flickrarc/0.1"
)

// Credentials holds the static application credentials. Distinct from the
// per-session Token obtained through the authorization handshake.
type Credentials struct {
	APIKey    string
	APISecret string
	UserID    string
}

// Token is the session token pair obtained after remote authorization.
type Token struct {
	Token  string `json:"oauth_token"`
	Secret string `json:"oauth_token_secret"`
}

// Client is a signed-request HTTP client for the Flickr REST API. All
// calls are one-legged OAuth 1.0a GETs; responses are JSON envelopes with
// a top-level stat field.
type Client struct {
	restURL    string
	httpClient *http.Client
	creds      Credentials
	token      *Token
	pageDelay  time.Duration
	logger     *slog.Logger

	// now and sleepFunc are injectable for tests — fixed timestamps for
	// signature assertions, no real delays between pages.
	now       func() time.Time
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates a REST client. restURL is typically DefaultRestURL;
// tests point it at an httptest server. token may be nil before
// authorization; signed requests then carry no oauth_token and an empty
// token secret.
func NewClient(restURL string, creds Credentials, token *Token, httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if restURL == "" {
		restURL = DefaultRestURL
	}

	return &Client{
		restURL:    restURL,
		httpClient: httpClient,
		creds:      creds,
		token:      token,
		pageDelay:  defaultPageDelay,
		logger:     logger,
		now:        time.Now,
		sleepFunc:  timeSleep,
	}
}

// HasToken reports whether a session token is loaded.
func (c *Client) HasToken() bool {
	return c.token != nil && c.token.Token != ""
}

// SetToken installs a session token obtained from the authorization
// handshake. Subsequent requests are signed with the token secret.
func (c *Client) SetToken(token *Token) {
	c.token = token
}

// SetPageDelay overrides the pause between consecutive page requests.
// Non-positive values are ignored.
func (c *Client) SetPageDelay(d time.Duration) {
	if d > 0 {
		c.pageDelay = d
	}
}

// UserID returns the account the client is configured for.
func (c *Client) UserID() string {
	return c.creds.UserID
}

// signedValues builds the full query for one request: operation params,
// oauth_* protocol params, and the signature over the combined set and
// the request URL.
func (c *Client) signedValues(method, rawurl string, params map[string]string) url.Values {
	all := make(map[string]string, len(params)+8)
	for k, v := range params {
		all[k] = v
	}

	for k, v := range c.authParams() {
		all[k] = v
	}

	tokenSecret := ""
	if c.token != nil {
		tokenSecret = c.token.Secret
	}

	all["oauth_signature"] = Sign(method, rawurl, all, c.creds.APISecret, tokenSecret)

	values := url.Values{}
	for k, v := range all {
		values.Set(k, v)
	}

	return values
}

// CallMethod issues a signed GET for the named API method and returns the
// raw response body after envelope validation. A non-ok stat becomes an
// *APIError carrying the remote code and message.
func (c *Client) CallMethod(ctx context.Context, method string, params map[string]string) (json.RawMessage, error) {
	all := make(map[string]string, len(params)+3)
	for k, v := range params {
		all[k] = v
	}

	all["method"] = method
	all["format"] = "json"
	all["nojsoncallback"] = "1"

	body, err := c.get(ctx, c.restURL, all)
	if err != nil {
		return nil, fmt.Errorf("flickr: %s: %w", method, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("flickr: %s: decoding envelope: %w", method, err)
	}

	if env.Stat != "ok" {
		return nil, &APIError{
			Method:  method,
			Code:    env.Code,
			Message: env.Message,
			Err:     classifyCode(env.Code),
		}
	}

	return body, nil
}

// get executes one signed GET request and returns the body. HTTP-level
// failures (non-2xx) are reported with the status; the REST envelope is
// not inspected here.
func (c *Client) get(ctx context.Context, rawurl string, params map[string]string) ([]byte, error) {
	values := c.signedValues(http.MethodGet, rawurl, params)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	return body, nil
}

// truncate shortens s for log and error output.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}

// timeSleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Client.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
