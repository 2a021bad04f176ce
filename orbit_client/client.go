package orbit_client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultBaseURL is the API host the official mobile app talks to.
	DefaultBaseURL = "https://api.orbit.network"
	DefaultTimeout = 15 * time.Second

	loginPath   = "/auth/login"
	logoutPath  = "/auth/logout"
	refreshPath = "/auth/refresh"
)

// Config holds the immutable construction parameters of a Client.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	DefaultHeaders map[string]string
}

// Client is the shared authenticated HTTP client for the Orbit API. It owns
// the credential state, attaches the bearer token to outgoing requests, and
// recovers from token expiry by refreshing and retrying once. A single
// Client instance is safe for concurrent use and is meant to be shared by
// all endpoint wrappers.
type Client struct {
	baseURL        string
	timeout        time.Duration
	defaultHeaders map[string]string
	httpClient     *http.Client
	log            *zap.Logger

	mu   sync.RWMutex
	cred Credential

	refreshes singleflight.Group
}

// NewClient creates a Client. A nil httpClient gets a pooled client with the
// configured timeout; a nil log disables logging.
func NewClient(cfg Config, httpClient *http.Client, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = TimeoutClient(cfg.Timeout)
	}
	if log == nil {
		log = zap.NewNop()
	}
	headers := make(map[string]string, len(cfg.DefaultHeaders))
	for k, v := range cfg.DefaultHeaders {
		headers[k] = v
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		timeout:        cfg.Timeout,
		defaultHeaders: headers,
		httpClient:     httpClient,
		log:            log,
	}
}

// RequestOptions carries the optional parts of a request.
type RequestOptions struct {
	Query   url.Values
	Body    interface{}
	Headers map[string]string
}

// Request performs an HTTP call against the configured base URL, attaching
// the current access token when one is present. On a 2xx response it returns
// the raw JSON body. A 401 triggers at most one token refresh followed by a
// single retry of the original request; every other failure is returned as
// a NetworkError, APIError or AuthError.
func (c *Client) Request(ctx context.Context, method, path string, opts *RequestOptions) (json.RawMessage, error) {
	token := c.AccessToken()
	status, body, err := c.send(ctx, method, path, opts, token)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return c.recoverUnauthorized(ctx, method, path, opts, token, body)
	}
	return classify(status, body)
}

// recoverUnauthorized handles the first 401 of a request: refresh the tokens
// (coalesced with any other request doing the same) and re-issue the original
// request once with the new access token. The original 401 body is what the
// caller sees whenever recovery is not possible.
func (c *Client) recoverUnauthorized(ctx context.Context, method, path string, opts *RequestOptions, staleToken string, unauthorizedBody []byte) (json.RawMessage, error) {
	if c.RefreshToken() == "" {
		return nil, &AuthError{Status: http.StatusUnauthorized, Body: unauthorizedBody}
	}

	c.log.Debug("access token rejected, refreshing session",
		zap.String("path", path),
		zap.String("token", maskToken(staleToken)))

	if err := c.refreshIfStale(staleToken); err != nil {
		c.log.Warn("token refresh failed, dropping credentials", zap.Error(err))
		c.ClearCredential()
		return nil, &AuthError{Status: http.StatusUnauthorized, Body: unauthorizedBody, Err: err}
	}

	status, body, err := c.send(ctx, method, path, opts, c.AccessToken())
	if err != nil {
		return nil, err
	}
	// A second 401 is final: the request has had its one retry.
	return classify(status, body)
}

// refreshIfStale rotates the credential at most once per expired access
// token. Concurrent callers share a single in-flight refresh; a caller that
// arrives after the rotation already happened gets a no-op success and
// simply retries with the current token.
func (c *Client) refreshIfStale(staleToken string) error {
	_, err, _ := c.refreshes.Do("refresh", func() (interface{}, error) {
		if current := c.AccessToken(); current != "" && current != staleToken {
			return nil, nil
		}
		return nil, c.refresh()
	})
	return err
}

// refresh exchanges the refresh token for a new token pair. It talks to the
// transport directly rather than going through Request, so a failing refresh
// can never trigger another refresh. The credential is only mutated on
// success; the 401 handler owns clearing it.
//
// The call runs on a detached context: other requests may be waiting on this
// flight, so one caller's cancellation must not abort it.
func (c *Client) refresh() error {
	refreshToken := c.RefreshToken()
	if refreshToken == "" {
		return &RefreshError{Err: errors.New("no refresh token")}
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"refreshToken": refreshToken})
	if err != nil {
		return &RefreshError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, bytes.NewBuffer(payload))
	if err != nil {
		return &RefreshError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range c.defaultHeaders {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RefreshError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &RefreshError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("refresh endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(body)),
		}
	}

	var tokens tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return &RefreshError{Err: fmt.Errorf("decode refresh response: %w", err)}
	}
	if tokens.Token == "" || tokens.RefreshToken == "" {
		return &RefreshError{Err: errors.New("refresh response missing token fields")}
	}

	c.setCredential(tokens.credential())
	c.log.Debug("session refreshed", zap.String("token", maskToken(tokens.Token)))
	return nil
}

// send issues one HTTP round trip and returns the status and body. Transport
// failures come back as NetworkError; HTTP statuses are the caller's problem.
func (c *Client) send(ctx context.Context, method, path string, opts *RequestOptions, token string) (int, []byte, error) {
	req, err := c.newRequest(ctx, method, path, opts, token)
	if err != nil {
		return 0, nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &NetworkError{URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &NetworkError{URL: req.URL.String(), Err: err}
	}
	return resp.StatusCode, body, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, opts *RequestOptions, token string) (*http.Request, error) {
	var payload io.Reader
	if opts != nil && opts.Body != nil {
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		payload = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range c.defaultHeaders {
		req.Header.Set(key, value)
	}
	if opts != nil {
		for key, value := range opts.Headers {
			req.Header.Set(key, value)
		}
		if len(opts.Query) > 0 {
			q := req.URL.Query()
			for key, values := range opts.Query {
				for _, value := range values {
					q.Add(key, value)
				}
			}
			req.URL.RawQuery = q.Encode()
		}
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	return req, nil
}

func classify(status int, body []byte) (json.RawMessage, error) {
	switch {
	case status >= 200 && status < 300:
		return body, nil
	case status == http.StatusUnauthorized:
		return nil, &AuthError{Status: status, Body: body}
	default:
		return nil, &APIError{Status: status, Body: body}
	}
}

// tokenResponse is the shape the Orbit token endpoints answer with.
type tokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func (t tokenResponse) credential() Credential {
	cred := Credential{
		AccessToken:  t.Token,
		RefreshToken: t.RefreshToken,
	}
	if t.ExpiresIn > 0 {
		cred.ExpiresAt = time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return cred
}
