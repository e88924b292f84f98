package api

import (
	"context"
	"net/http"
)

type Wallet struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	Network   string `json:"network"`
	Currency  string `json:"currency"`
	IsDefault bool   `json:"isDefault"`
}

type Balance struct {
	Decimals int    `json:"decimals"`
	Balance  string `json:"balance"`
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
}

type WalletBalances struct {
	WalletID  string    `json:"walletId"`
	IsDefault bool      `json:"isDefault"`
	Network   string    `json:"network"`
	Balances  []Balance `json:"balances"`
}

func (c *Client) Wallets(ctx context.Context) ([]Wallet, error) {
	var wallets []Wallet
	if err := c.do(ctx, http.MethodGet, "/wallets", nil, &wallets); err != nil {
		return nil, err
	}
	return wallets, nil
}

func (c *Client) Balances(ctx context.Context) ([]WalletBalances, error) {
	var balances []WalletBalances
	if err := c.do(ctx, http.MethodGet, "/wallets/balances", nil, &balances); err != nil {
		return nil, err
	}
	return balances, nil
}

func (c *Client) DefaultWallet(ctx context.Context) (*Wallet, error) {
	var wallet Wallet
	if err := c.do(ctx, http.MethodGet, "/wallets/default", nil, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (c *Client) SetDefaultWallet(ctx context.Context, walletID string) error {
	return c.do(ctx, http.MethodPut, "/wallets/default", map[string]string{"walletId": walletID}, nil)
}
