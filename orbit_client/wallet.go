package orbit_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Wallet wraps the wallet endpoints of the Orbit API. It is a plain
// pass-through over Client.Request and carries no retry or refresh logic.
type Wallet struct {
	client *Client
}

// NewWallet creates a Wallet bound to the shared client
func NewWallet(client *Client) *Wallet {
	return &Wallet{client: client}
}

type Balance struct {
	Amount    float64 `json:"amount"`
	Available float64 `json:"available"`
	Currency  string  `json:"currency"`
	UpdatedAt string  `json:"updatedAt"`
}

type Transaction struct {
	ID        string  `json:"id"`
	Direction string  `json:"direction"`
	Amount    float64 `json:"amount"`
	Memo      string  `json:"memo"`
	Status    string  `json:"status"`
	CreatedAt string  `json:"createdAt"`
}

// Balance fetches the current wallet balance
func (w *Wallet) Balance(ctx context.Context) (*Balance, error) {
	body, err := w.client.Request(ctx, http.MethodGet, "/wallet/balance", nil)
	if err != nil {
		return nil, err
	}
	var balance Balance
	if err := json.Unmarshal(body, &balance); err != nil {
		return nil, fmt.Errorf("decode balance: %w", err)
	}
	return &balance, nil
}

// Transactions lists the most recent wallet transactions, newest first.
// A limit of 0 leaves paging to the server default.
func (w *Wallet) Transactions(ctx context.Context, limit int) ([]Transaction, error) {
	opts := &RequestOptions{}
	if limit > 0 {
		opts.Query = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	body, err := w.client.Request(ctx, http.MethodGet, "/wallet/transactions", opts)
	if err != nil {
		return nil, err
	}
	var transactions []Transaction
	if err := json.Unmarshal(body, &transactions); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return transactions, nil
}

// Transfer sends funds to another Orbit account. The signing happens
// server-side in the mobile platform; this client only submits the intent.
func (w *Wallet) Transfer(ctx context.Context, to string, amount float64, memo string) (*Transaction, error) {
	body, err := w.client.Request(ctx, http.MethodPost, "/wallet/transfer", &RequestOptions{
		Body: map[string]interface{}{
			"to":     to,
			"amount": amount,
			"memo":   memo,
		},
	})
	if err != nil {
		return nil, err
	}
	var transaction Transaction
	if err := json.Unmarshal(body, &transaction); err != nil {
		return nil, fmt.Errorf("decode transfer receipt: %w", err)
	}
	return &transaction, nil
}
