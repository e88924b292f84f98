package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

type Transfer struct {
	ID             string `json:"id"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Status         string `json:"status"`
	Type           string `json:"type"`
	CreatedAt      string `json:"createdAt"`
	FromAddress    string `json:"fromAddress,omitempty"`
	ToAddress      string `json:"toAddress,omitempty"`
	RecipientEmail string `json:"recipientEmail,omitempty"`
}

type EmailTransferRequest struct {
	Email       string `json:"email"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
	// ClientReference ties retries of a failed submission together on the
	// backend side. Filled in automatically when empty.
	ClientReference string `json:"clientReference,omitempty"`
}

type WalletTransferRequest struct {
	ToAddress       string `json:"toAddress"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	Network         string `json:"network"`
	Description     string `json:"description,omitempty"`
	ClientReference string `json:"clientReference,omitempty"`
}

type BankWithdrawalRequest struct {
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	Description     string `json:"description,omitempty"`
	ClientReference string `json:"clientReference,omitempty"`
}

type TransferResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SendToEmail submits an email transfer. Money-movement endpoints are not
// idempotent; callers must never retry automatically.
func (c *Client) SendToEmail(ctx context.Context, req EmailTransferRequest) (*TransferResult, error) {
	if req.ClientReference == "" {
		req.ClientReference = uuid.NewString()
	}
	var result TransferResult
	if err := c.do(ctx, http.MethodPost, "/transfers/send", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SendToWallet submits a transfer to an external wallet address.
func (c *Client) SendToWallet(ctx context.Context, req WalletTransferRequest) (*TransferResult, error) {
	if req.ClientReference == "" {
		req.ClientReference = uuid.NewString()
	}
	var result TransferResult
	if err := c.do(ctx, http.MethodPost, "/transfers/wallet-withdraw", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// WithdrawToBank submits an offramp withdrawal to the user's bank account.
func (c *Client) WithdrawToBank(ctx context.Context, req BankWithdrawalRequest) (*TransferResult, error) {
	if req.ClientReference == "" {
		req.ClientReference = uuid.NewString()
	}
	var result TransferResult
	if err := c.do(ctx, http.MethodPost, "/transfers/offramp", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) TransferHistory(ctx context.Context, page, limit int) ([]Transfer, error) {
	var transfers []Transfer
	path := fmt.Sprintf("/transfers?page=%d&limit=%d", page, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &transfers); err != nil {
		return nil, err
	}
	return transfers, nil
}
