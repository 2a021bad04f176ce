package orbit_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// User wraps the account endpoints of the Orbit API
type User struct {
	client *Client
}

// NewUser creates a User wrapper bound to the shared client
func NewUser(client *Client) *User {
	return &User{client: client}
}

type Account struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Phone       string `json:"phone"`
	Verified    bool   `json:"verified"`
	CreatedAt   string `json:"createdAt"`
}

// Me returns the account the current session belongs to
func (u *User) Me(ctx context.Context) (*Account, error) {
	body, err := u.client.Request(ctx, http.MethodGet, "/user/me", nil)
	if err != nil {
		return nil, err
	}
	var account Account
	if err := json.Unmarshal(body, &account); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return &account, nil
}

// UpdateProfile patches the given fields on the current account and returns
// the updated record
func (u *User) UpdateProfile(ctx context.Context, patch map[string]interface{}) (*Account, error) {
	body, err := u.client.Request(ctx, http.MethodPatch, "/user/me", &RequestOptions{Body: patch})
	if err != nil {
		return nil, err
	}
	var account Account
	if err := json.Unmarshal(body, &account); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return &account, nil
}
