package api

import (
	"context"
	"net/http"
)

type UserProfile struct {
	ID             string `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	OrganizationID string `json:"organizationId"`
	Role           string `json:"role"`
	Status         string `json:"status"`
	WalletAddress  string `json:"walletAddress"`
	WalletID       string `json:"walletId"`
}

type KYCStatus struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Type   string `json:"type"`
}

// AuthResult is the backend's response to a successful OTP authentication.
type AuthResult struct {
	Scheme      string      `json:"scheme"`
	AccessToken string      `json:"accessToken"`
	ExpireAt    string      `json:"expireAt"`
	User        UserProfile `json:"user"`
}

// RequestEmailOTP asks the backend to send a one-time password to the given
// address. The returned exchange sid is held for the authenticate call.
func (c *Client) RequestEmailOTP(ctx context.Context, email string) error {
	var resp struct {
		Email string `json:"email"`
		Sid   string `json:"sid"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/email-otp/request", map[string]string{"email": email}, &resp)
	if err != nil {
		return err
	}
	c.setSid(resp.Sid)
	return nil
}

// AuthenticateEmailOTP exchanges the email/OTP pair (plus the pending sid)
// for an access token. The token is installed on the client on success.
func (c *Client) AuthenticateEmailOTP(ctx context.Context, email, otp string) (*AuthResult, error) {
	req := map[string]string{
		"email": email,
		"otp":   otp,
		"sid":   c.currentSid(),
	}
	var result AuthResult
	if err := c.do(ctx, http.MethodPost, "/auth/email-otp/authenticate", req, &result); err != nil {
		return nil, err
	}
	if result.AccessToken != "" {
		c.SetToken(result.AccessToken)
	}
	return &result, nil
}

// Profile returns the authenticated user's profile.
func (c *Client) Profile(ctx context.Context) (*UserProfile, error) {
	var profile UserProfile
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// KYCStatuses returns the user's KYC records, most recent first.
func (c *Client) KYCStatuses(ctx context.Context) ([]KYCStatus, error) {
	var statuses []KYCStatus
	if err := c.do(ctx, http.MethodGet, "/kycs", nil, &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}
