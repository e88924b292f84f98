package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pusherProtocol = 7
	writeWait      = 10 * time.Second
)

// Authorizer signs a private-channel subscription for this socket. The
// backend's notification auth endpoint provides the signature.
type Authorizer func(ctx context.Context, socketID, channel string) (string, error)

// frame is the Pusher wire envelope. Data is double-encoded for channel
// events: a JSON string containing JSON.
type frame struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// PusherClient maintains one websocket connection to Pusher and multiplexes
// private channel subscriptions over it. There is no automatic reconnect; a
// dropped connection surfaces in the logs and is resolved by restarting.
type PusherClient struct {
	appKey    string
	cluster   string
	authorize Authorizer

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu       sync.RWMutex
	handlers map[string]EventHandler
	socketID string

	establishOnce sync.Once
	connected     chan struct{}
	done          chan struct{}
}

func NewPusherClient(appKey, cluster string, authorize Authorizer) *PusherClient {
	return &PusherClient{
		appKey:    appKey,
		cluster:   cluster,
		authorize: authorize,
		handlers:  make(map[string]EventHandler),
		connected: make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Connect dials the Pusher websocket endpoint and blocks until the server
// acknowledges the connection with a socket id.
func (p *PusherClient) Connect(ctx context.Context) error {
	url := fmt.Sprintf("wss://ws-%s.pusher.com/app/%s?protocol=%d&client=payout-bot&version=1.0",
		p.cluster, p.appKey, pusherProtocol)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial pusher: %w", err)
	}
	p.conn = conn
	go p.readLoop()

	select {
	case <-p.connected:
		return nil
	case <-p.done:
		return fmt.Errorf("pusher connection closed before establishment")
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	}
}

func (p *PusherClient) readLoop() {
	defer close(p.done)
	for {
		_, msg, err := p.conn.ReadMessage()
		if err != nil {
			log.Printf("notify: pusher read loop ended: %v", err)
			return
		}
		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			log.Printf("notify: malformed pusher frame dropped: %v", err)
			continue
		}
		p.handleFrame(f)
	}
}

func (p *PusherClient) handleFrame(f frame) {
	switch f.Event {
	case "pusher:connection_established":
		var est struct {
			SocketID string `json:"socket_id"`
		}
		if err := json.Unmarshal(decodeData(f.Data), &est); err != nil {
			log.Printf("notify: bad connection_established payload: %v", err)
			return
		}
		// servers may resend the establishment frame; only the first one counts
		p.establishOnce.Do(func() {
			p.mu.Lock()
			p.socketID = est.SocketID
			p.mu.Unlock()
			close(p.connected)
		})
	case "pusher:ping":
		if err := p.write(frame{Event: "pusher:pong", Data: json.RawMessage("{}")}); err != nil {
			log.Printf("notify: pusher pong failed: %v", err)
		}
	case "pusher_internal:subscription_succeeded":
		log.Printf("notify: subscribed to channel %s", f.Channel)
	case "pusher:error":
		log.Printf("notify: pusher error frame: %s", string(f.Data))
	default:
		if f.Channel == "" {
			return
		}
		p.mu.RLock()
		h, ok := p.handlers[f.Channel]
		p.mu.RUnlock()
		if !ok {
			log.Printf("notify: event %q on unknown channel %s dropped", f.Event, f.Channel)
			return
		}
		h(f.Event, decodeData(f.Data))
	}
}

// decodeData unwraps Pusher's double encoding: channel event data arrives as
// a JSON string whose contents are themselves JSON.
func decodeData(raw json.RawMessage) []byte {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []byte(s)
	}
	return raw
}

func (p *PusherClient) write(f frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(websocket.TextMessage, payload)
}

// Subscribe authorizes and joins a private channel. Connect must have
// completed first.
func (p *PusherClient) Subscribe(ctx context.Context, channel string, h EventHandler) (Handle, error) {
	p.mu.RLock()
	socketID := p.socketID
	p.mu.RUnlock()
	if socketID == "" {
		return nil, fmt.Errorf("pusher connection not established")
	}

	auth, err := p.authorize(ctx, socketID, channel)
	if err != nil {
		return nil, fmt.Errorf("authorize channel %s: %w", channel, err)
	}

	sub := struct {
		Auth    string `json:"auth"`
		Channel string `json:"channel"`
	}{Auth: auth, Channel: channel}
	data, err := json.Marshal(sub)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.handlers[channel] = h
	p.mu.Unlock()

	if err := p.write(frame{Event: "pusher:subscribe", Data: data}); err != nil {
		p.mu.Lock()
		delete(p.handlers, channel)
		p.mu.Unlock()
		return nil, fmt.Errorf("subscribe to %s: %w", channel, err)
	}
	return &pusherHandle{client: p, channel: channel}, nil
}

// Close tears down the websocket connection.
func (p *PusherClient) Close() error {
	return p.conn.Close()
}

type pusherHandle struct {
	client  *PusherClient
	channel string
}

func (h *pusherHandle) Close() error {
	h.client.mu.Lock()
	delete(h.client.handlers, h.channel)
	h.client.mu.Unlock()

	data, _ := json.Marshal(struct {
		Channel string `json:"channel"`
	}{Channel: h.channel})
	return h.client.write(frame{Event: "pusher:unsubscribe", Data: data})
}
