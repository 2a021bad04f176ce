package orbit_client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Login performs the username/password exchange against the Orbit login
// endpoint and stores the returned token pair. The call itself is
// unauthenticated; any credential already held is replaced on success.
func (c *Client) Login(ctx context.Context, identifier, secret string) error {
	body, err := c.Request(ctx, http.MethodPost, loginPath, &RequestOptions{
		Body: map[string]string{
			"identifier": identifier,
			"password":   secret,
		},
	})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	var tokens tokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if tokens.Token == "" || tokens.RefreshToken == "" {
		return errors.New("login response missing token fields")
	}

	c.setCredential(tokens.credential())
	c.log.Info("logged in", zap.String("token", maskToken(tokens.Token)))
	return nil
}

// Logout tells the remote end to invalidate the session and wipes the local
// credential no matter what the remote call did. The remote side is
// best-effort; the local state is authoritative.
func (c *Client) Logout(ctx context.Context) error {
	defer c.ClearCredential()

	if _, err := c.Request(ctx, http.MethodPost, logoutPath, nil); err != nil {
		c.log.Warn("remote logout failed, clearing local session anyway", zap.Error(err))
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
