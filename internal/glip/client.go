package glip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/keepmind9/glipbot/internal/logger"
	"github.com/keepmind9/glipbot/pkg/constants"
	"github.com/sirupsen/logrus"
)

// REST paths consumed by this binding, relative to the API root
const (
	apiRoot          = "/restapi/v1.0"
	tokenPath        = "/restapi/oauth/token"
	subscriptionPath = "/subscription"

	// ExtensionPathPrefix resolves account users (including the bot itself
	// via the SelfID sentinel)
	ExtensionPathPrefix = "/account/~/extension/"
	// GroupPathPrefix resolves chat groups
	GroupPathPrefix = "/glip/groups/"
	// PersonPathPrefix resolves chat persons
	PersonPathPrefix = "/glip/persons/"
	// PostsPath is the outbound post endpoint
	PostsPath = "/glip/posts"

	// PostsEventFilter subscribes to new-post notifications for the bot's
	// own extension
	PostsEventFilter = "/account/~/extension/~/glip/posts"
)

// tokenRefreshMargin is how long before access-token expiry a refresh is
// attempted
const tokenRefreshMargin = time.Minute

// Platform is the narrow platform surface consumed by the bridge, cache and
// sender. It is satisfied by *Client and by test fakes.
type Platform interface {
	// Login authenticates with the configured application credentials and
	// the given user identity
	Login(ctx context.Context, username, extension, password string) error

	// LoggedIn probes session liveness. It returns false once the session's
	// token can no longer be refreshed.
	LoggedIn() bool

	// Get fetches a JSON entity by path
	Get(ctx context.Context, path string) (json.RawMessage, error)

	// Post sends a JSON body to a path and returns the JSON entity response
	Post(ctx context.Context, path string, body any) (json.RawMessage, error)

	// Subscribe creates an unregistered subscription for push notifications
	Subscribe() Subscription
}

// ClientConfig configures the HTTP platform client
type ClientConfig struct {
	Server    string // platform base URL, e.g. https://platform.ringcentral.com
	AppKey    string
	AppSecret string

	// HTTPClient overrides the default HTTP client (used in tests)
	HTTPClient *http.Client
}

// Client is the HTTP implementation of Platform. It owns the OAuth token
// lifecycle: Login obtains the initial token pair and subsequent calls
// refresh the access token opportunistically. Safe for concurrent use.
type Client struct {
	mu         sync.Mutex
	httpClient *http.Client
	server     string
	appKey     string
	appSecret  string

	accessToken   string
	refreshToken  string
	accessExpiry  time.Time
	refreshExpiry time.Time
	authenticated bool
}

// NewClient creates a platform client. Login must be called before any
// entity call.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.DefaultHTTPTimeout}
	}
	return &Client{
		httpClient: httpClient,
		server:     strings.TrimRight(cfg.Server, "/"),
		appKey:     cfg.AppKey,
		appSecret:  cfg.AppSecret,
	}
}

type tokenResponse struct {
	AccessToken           string `json:"access_token"`
	RefreshToken          string `json:"refresh_token"`
	ExpiresIn             int    `json:"expires_in"`
	RefreshTokenExpiresIn int    `json:"refresh_token_expires_in"`
}

// Login performs the password-grant token exchange
func (c *Client) Login(ctx context.Context, username, extension, password string) error {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)
	if extension != "" {
		form.Set("extension", extension)
	}

	logger.WithFields(logrus.Fields{
		"server":   c.server,
		"username": maskSecret(username),
	}).Info("logging-in-to-platform")

	return c.requestToken(ctx, form)
}

func (c *Client) requestToken(ctx context.Context, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+tokenPath,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.appKey, c.appSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}

	now := time.Now()
	c.mu.Lock()
	c.accessToken = token.AccessToken
	c.refreshToken = token.RefreshToken
	c.accessExpiry = now.Add(time.Duration(token.ExpiresIn) * time.Second)
	c.refreshExpiry = now.Add(time.Duration(token.RefreshTokenExpiresIn) * time.Second)
	c.authenticated = true
	c.mu.Unlock()

	return nil
}

// ensureToken refreshes the access token when it is close to expiry. A
// failed refresh marks the session unauthenticated; the liveness probe
// reports it on the next poll.
func (c *Client) ensureToken(ctx context.Context) error {
	c.mu.Lock()
	if !c.authenticated {
		c.mu.Unlock()
		return ErrSessionExpired
	}
	if time.Until(c.accessExpiry) > tokenRefreshMargin {
		c.mu.Unlock()
		return nil
	}
	refreshToken := c.refreshToken
	refreshExpiry := c.refreshExpiry
	c.mu.Unlock()

	if refreshToken == "" || time.Now().After(refreshExpiry) {
		c.setUnauthenticated()
		return ErrSessionExpired
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	if err := c.requestToken(ctx, form); err != nil {
		logger.WithField("error", err).Warn("token-refresh-failed")
		c.setUnauthenticated()
		return ErrSessionExpired
	}
	return nil
}

func (c *Client) setUnauthenticated() {
	c.mu.Lock()
	c.authenticated = false
	c.mu.Unlock()
}

// LoggedIn probes session liveness, refreshing the access token when needed
func (c *Client) LoggedIn() bool {
	return c.ensureToken(context.Background()) == nil
}

// Get fetches a JSON entity by path (relative to the API root)
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post sends a JSON body to a path and returns the JSON entity response
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, payload)
}

// delete issues a DELETE to a path, discarding the response body
func (c *Client) delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.server+apiRoot+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	c.mu.Lock()
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	c.mu.Unlock()
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

// Subscribe creates an unregistered WebSocket subscription bound to this client
func (c *Client) Subscribe() Subscription {
	return newWSSubscription(c)
}

// maskSecret masks sensitive information for logging
func maskSecret(s string) string {
	if len(s) <= constants.MinSecretLengthForMasking {
		return "***"
	}
	return s[:constants.SecretMaskPrefixLength] + "***" + s[len(s)-constants.SecretMaskSuffixLength:]
}
