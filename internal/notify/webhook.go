package notify

import (
	"context"
	"errors"
	"sync"
)

// ErrUnknownChannel is returned when a webhook event targets a channel no one
// subscribed to.
var ErrUnknownChannel = errors.New("notify: no subscription for channel")

// WebhookProvider is the Pusher fallback: events arrive over the local web
// server instead of a websocket. Used when no Pusher credentials are
// configured.
type WebhookProvider struct {
	mu       sync.RWMutex
	handlers map[string]EventHandler
}

func NewWebhookProvider() *WebhookProvider {
	return &WebhookProvider{handlers: make(map[string]EventHandler)}
}

func (w *WebhookProvider) Subscribe(ctx context.Context, channel string, h EventHandler) (Handle, error) {
	w.mu.Lock()
	w.handlers[channel] = h
	w.mu.Unlock()
	return &webhookHandle{provider: w, channel: channel}, nil
}

// Deliver injects one event, as if it had arrived on the channel's realtime
// subscription.
func (w *WebhookProvider) Deliver(channel, event string, payload []byte) error {
	w.mu.RLock()
	h, ok := w.handlers[channel]
	w.mu.RUnlock()
	if !ok {
		return ErrUnknownChannel
	}
	h(event, payload)
	return nil
}

type webhookHandle struct {
	provider *WebhookProvider
	channel  string
}

func (h *webhookHandle) Close() error {
	h.provider.mu.Lock()
	delete(h.provider.handlers, h.channel)
	h.provider.mu.Unlock()
	return nil
}
