package orbit_client

import (
	"time"
)

// Credential holds the bearer tokens for the current Orbit session.
// Exactly one live Credential exists per client; it is created on login or
// refresh, overwritten on refresh, and cleared on logout or when a refresh
// fails for good.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// SetCredential replaces the stored Credential. Subsequent requests use the
// new access token.
func (c *Client) SetCredential(accessToken, refreshToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cred = Credential{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}
}

func (c *Client) setCredential(cred Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cred = cred
}

// ClearCredential wipes the stored Credential. Idempotent.
func (c *Client) ClearCredential() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cred = Credential{}
}

// AccessToken returns the current access token, or "" if logged out.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cred.AccessToken
}

// RefreshToken returns the current refresh token, or "" if logged out.
func (c *Client) RefreshToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cred.RefreshToken
}

// Authenticated reports whether the client currently holds an access token.
func (c *Client) Authenticated() bool {
	return c.AccessToken() != ""
}

// maskToken shortens a token for logging so secrets never end up in full in
// log output.
func maskToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "***" + token[len(token)-4:]
}
