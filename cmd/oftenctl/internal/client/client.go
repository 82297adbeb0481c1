// Package client is a thin HTTP client for the gateway's own surface (§6).
// oftenctl holds no direct store access — every operation, including the
// admin deposit, goes over the wire exactly the way any other caller would
// reach it, matching the "admin key over HTTP, no privileged shortcut"
// contract.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to one gateway instance.
type Client struct {
	baseURL    string
	adminKey   string
	bearer     string
	httpClient *http.Client
}

// New creates a Client targeting baseURL (no trailing slash required).
func New(baseURL, adminKey, bearer string) *Client {
	return &Client{
		baseURL:    trimTrailingSlash(baseURL),
		adminKey:   adminKey,
		bearer:     bearer,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// APIError carries the gateway's error envelope for a non-2xx response.
type APIError struct {
	Status int
	Code   string
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway: %d %s: %s", e.Status, e.Code, e.Detail)
}

// Account mirrors the /getAccount response shape.
type Account struct {
	UID                 string           `json:"uid"`
	Email               string           `json:"email,omitempty"`
	Balances            map[string]int64 `json:"balances"`
	SupportedCurrencies []string         `json:"supportedCurrencies"`
}

// Transaction mirrors one entry of the /getTransactions response.
type Transaction struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Currency      string `json:"currency"`
	Amount        int64  `json:"amount"`
	BalanceBefore int64  `json:"balanceBefore"`
	BalanceAfter  int64  `json:"balanceAfter"`
	Description   string `json:"description"`
	CreatedAt     string `json:"createdAt"`
}

// GetAccount fetches the caller's own account via the bearer token.
func (c *Client) GetAccount(ctx context.Context) (Account, error) {
	var account Account
	err := c.do(ctx, http.MethodGet, "/getAccount", nil, true, &account)
	return account, err
}

// GetTransactions fetches up to limit journal entries for the caller's
// account, newest first.
func (c *Client) GetTransactions(ctx context.Context, limit int) ([]Transaction, error) {
	path := fmt.Sprintf("/getTransactions?limit=%d", limit)
	var body struct {
		Transactions []Transaction `json:"transactions"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, true, &body)
	return body.Transactions, err
}

// Deposit credits accountID with amount of currency using the admin key.
// The returned Account carries only accountID and the deposited currency's
// new balance, which is all /deposit replies with.
func (c *Client) Deposit(ctx context.Context, accountID, currency string, amount int64) (Account, error) {
	req := map[string]interface{}{
		"accountId": accountID,
		"currency":  currency,
		"amount":    amount,
	}
	var body struct {
		Currency string `json:"currency"`
		Balance  int64  `json:"balance"`
	}
	err := c.doAdmin(ctx, http.MethodPost, "/deposit", req, &body)
	return Account{UID: accountID, Balances: map[string]int64{body.Currency: body.Balance}}, err
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, bearer bool, out interface{}) error {
	return c.send(ctx, method, path, body, bearer, false, out)
}

func (c *Client) doAdmin(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	return c.send(ctx, method, path, body, false, true, out)
}

func (c *Client) send(ctx context.Context, method, path string, body interface{}, bearer, admin bool, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	if admin {
		req.Header.Set("X-Admin-Key", c.adminKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var envelope struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(raw, &envelope)
		return &APIError{Status: resp.StatusCode, Code: envelope.Error, Detail: envelope.Detail}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}
