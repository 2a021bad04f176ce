package orbit_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Mining wraps the mining-session endpoints of the Orbit API
type Mining struct {
	client *Client
}

// NewMining creates a Mining wrapper bound to the shared client
func NewMining(client *Client) *Mining {
	return &Mining{client: client}
}

type MiningStatus struct {
	Active       bool    `json:"active"`
	HourlyRate   float64 `json:"hourlyRate"`
	SessionEnds  string  `json:"sessionEnds"`
	TotalMined   float64 `json:"totalMined"`
	TeamBonus    float64 `json:"teamBonus"`
	ActiveMiners int     `json:"activeMiners"`
}

// Status returns the state of the current mining session
func (m *Mining) Status(ctx context.Context) (*MiningStatus, error) {
	body, err := m.client.Request(ctx, http.MethodGet, "/mining/status", nil)
	if err != nil {
		return nil, err
	}
	var status MiningStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("decode mining status: %w", err)
	}
	return &status, nil
}

// Start begins a new mining session, mirroring the lightning-bolt tap in the
// mobile app, and returns the session state the server answered with.
func (m *Mining) Start(ctx context.Context) (*MiningStatus, error) {
	body, err := m.client.Request(ctx, http.MethodPost, "/mining/start", nil)
	if err != nil {
		return nil, err
	}
	var status MiningStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("decode mining session: %w", err)
	}
	return &status, nil
}

// Ping keeps the current mining session alive
func (m *Mining) Ping(ctx context.Context) error {
	_, err := m.client.Request(ctx, http.MethodPost, "/mining/ping", nil)
	return err
}
