package orbit_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Social wraps the feed and public-profile endpoints of the Orbit API
type Social struct {
	client *Client
}

// NewSocial creates a Social wrapper bound to the shared client
func NewSocial(client *Client) *Social {
	return &Social{client: client}
}

type FeedItem struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Kind      string `json:"kind"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

type FeedPage struct {
	Items      []FeedItem `json:"items"`
	NextCursor string     `json:"nextCursor"`
}

type PublicProfile struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	TeamSize    int    `json:"teamSize"`
	JoinedAt    string `json:"joinedAt"`
}

// Feed returns a page of the social feed. An empty cursor starts at the top.
func (s *Social) Feed(ctx context.Context, cursor string) (*FeedPage, error) {
	opts := &RequestOptions{}
	if cursor != "" {
		opts.Query = url.Values{"cursor": {cursor}}
	}
	body, err := s.client.Request(ctx, http.MethodGet, "/social/feed", opts)
	if err != nil {
		return nil, err
	}
	var page FeedPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return &page, nil
}

// Profile looks up another member's public profile by username
func (s *Social) Profile(ctx context.Context, username string) (*PublicProfile, error) {
	body, err := s.client.Request(ctx, http.MethodGet, "/social/profile", &RequestOptions{
		Query: url.Values{"username": {username}},
	})
	if err != nil {
		return nil, err
	}
	var profile PublicProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &profile, nil
}
