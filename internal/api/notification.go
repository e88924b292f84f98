package api

import (
	"context"
	"net/http"
)

// ChannelAuth is the backend's signature for a private push channel.
type ChannelAuth struct {
	Auth        string `json:"auth"`
	ChannelData string `json:"channel_data,omitempty"`
}

// AuthorizeChannel asks the backend to sign a private channel subscription
// for the given push connection.
func (c *Client) AuthorizeChannel(ctx context.Context, socketID, channelName string) (*ChannelAuth, error) {
	req := map[string]string{
		"socket_id":    socketID,
		"channel_name": channelName,
	}
	var auth ChannelAuth
	if err := c.do(ctx, http.MethodPost, "/notifications/auth", req, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}
