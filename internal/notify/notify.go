// Package notify delivers realtime deposit notifications. A Manager owns one
// provider subscription per organization and routes incoming events to the
// chat destination that registered them.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

const (
	channelPrefix = "private-org-"
	sendTimeout   = 10 * time.Second
)

// Messenger sends a text message to a chat destination. The chat transport
// adapter satisfies it.
type Messenger interface {
	Send(ctx context.Context, destination, text string) error
}

// EventHandler receives one event from a channel subscription.
type EventHandler func(event string, payload []byte)

// Handle is a live channel subscription.
type Handle interface {
	Close() error
}

// Provider establishes channel subscriptions. PusherClient and
// WebhookProvider satisfy it.
type Provider interface {
	Subscribe(ctx context.Context, channel string, h EventHandler) (Handle, error)
}

type subscription struct {
	mu          sync.Mutex
	destination string
	handle      Handle
}

// Manager maps organizations to subscriptions. Subscribe is idempotent per
// organization: a second call only refreshes the delivery destination, it
// never opens a second channel.
type Manager struct {
	provider Provider

	mu        sync.RWMutex
	subs      map[string]*subscription
	messenger Messenger
}

func NewManager(provider Provider) *Manager {
	return &Manager{
		provider: provider,
		subs:     make(map[string]*subscription),
	}
}

// SetMessenger installs the outbound transport. Events arriving before this
// is called are dropped with a log line.
func (m *Manager) SetMessenger(msgr Messenger) {
	m.mu.Lock()
	m.messenger = msgr
	m.mu.Unlock()
}

// Subscribe registers an organization for deposit events, delivering to the
// given destination. Re-subscribing an already-registered organization only
// updates the destination.
//
// The provider call runs outside the manager lock: it may block on network
// I/O and must not stall dispatch for other organizations.
func (m *Manager) Subscribe(ctx context.Context, organizationID, destination string) error {
	m.mu.Lock()
	if sub, ok := m.subs[organizationID]; ok {
		m.mu.Unlock()
		sub.mu.Lock()
		sub.destination = destination
		sub.mu.Unlock()
		return nil
	}
	sub := &subscription{destination: destination}
	m.subs[organizationID] = sub
	m.mu.Unlock()

	channel := channelPrefix + organizationID
	handle, err := m.provider.Subscribe(ctx, channel, func(event string, payload []byte) {
		m.dispatch(organizationID, event, payload)
	})
	if err != nil {
		m.mu.Lock()
		if m.subs[organizationID] == sub {
			delete(m.subs, organizationID)
		}
		m.mu.Unlock()
		return fmt.Errorf("subscribe to %s: %w", channel, err)
	}

	sub.mu.Lock()
	sub.handle = handle
	sub.mu.Unlock()

	// the org may have unsubscribed while the provider call was in flight
	m.mu.RLock()
	current := m.subs[organizationID]
	m.mu.RUnlock()
	if current != sub {
		handle.Close()
	}
	return nil
}

// Unsubscribe tears down an organization's subscription. Unsubscribing an
// organization that was never registered is a no-op.
func (m *Manager) Unsubscribe(organizationID string) error {
	m.mu.Lock()
	sub, ok := m.subs[organizationID]
	delete(m.subs, organizationID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	sub.mu.Lock()
	handle := sub.handle
	sub.mu.Unlock()
	if handle == nil {
		return nil
	}
	return handle.Close()
}

// dispatch routes one event to its organization's destination. Delivery is
// at most once: a send failure is logged and the event is dropped.
func (m *Manager) dispatch(organizationID, event string, payload []byte) {
	m.mu.RLock()
	sub, ok := m.subs[organizationID]
	msgr := m.messenger
	m.mu.RUnlock()

	if !ok {
		log.Printf("notify: event %q for unregistered org %s dropped", event, organizationID)
		return
	}
	if event != "deposit" {
		log.Printf("notify: unmapped event %q for org %s dropped", event, organizationID)
		return
	}
	if msgr == nil {
		log.Printf("notify: deposit event for org %s dropped, no messenger installed", organizationID)
		return
	}

	var dep DepositEvent
	if err := json.Unmarshal(payload, &dep); err != nil {
		log.Printf("notify: malformed deposit payload for org %s dropped: %v", organizationID, err)
		return
	}

	sub.mu.Lock()
	destination := sub.destination
	sub.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := msgr.Send(ctx, destination, dep.Format()); err != nil {
		log.Printf("notify: deposit delivery to %s failed: %v", destination, err)
	}
}

// DepositEvent is the payload pushed on an organization channel when funds
// arrive.
type DepositEvent struct {
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Network       string `json:"network"`
	TransactionID string `json:"transactionId,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
}

func (d DepositEvent) Format() string {
	var b strings.Builder
	b.WriteString("💰 **Deposit Received**\n\n")
	fmt.Fprintf(&b, "**Amount:** %s %s\n", d.Amount, d.Currency)
	if d.Network != "" {
		fmt.Fprintf(&b, "**Network:** %s\n", d.Network)
	}
	if d.TransactionID != "" {
		fmt.Fprintf(&b, "**Transaction ID:** %s\n", d.TransactionID)
	}
	if d.Timestamp != "" {
		fmt.Fprintf(&b, "**Time:** %s\n", d.Timestamp)
	}
	return strings.TrimRight(b.String(), "\n")
}
