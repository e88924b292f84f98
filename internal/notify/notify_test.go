package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	closed int
}

func (f *fakeHandle) Close() error {
	f.closed++
	return nil
}

type fakeProvider struct {
	channels []string
	handlers map[string]EventHandler
	handles  map[string]*fakeHandle
	err      error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		handlers: make(map[string]EventHandler),
		handles:  make(map[string]*fakeHandle),
	}
}

func (f *fakeProvider) Subscribe(ctx context.Context, channel string, h EventHandler) (Handle, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.channels = append(f.channels, channel)
	f.handlers[channel] = h
	handle := &fakeHandle{}
	f.handles[channel] = handle
	return handle, nil
}

func (f *fakeProvider) emit(channel, event string, payload []byte) {
	if h, ok := f.handlers[channel]; ok {
		h(event, payload)
	}
}

type fakeMessenger struct {
	dests []string
	texts []string
	err   error
}

func (f *fakeMessenger) Send(ctx context.Context, destination, text string) error {
	f.dests = append(f.dests, destination)
	f.texts = append(f.texts, text)
	return f.err
}

func TestSubscribeIsIdempotentPerOrganization(t *testing.T) {
	provider := newFakeProvider()
	msgr := &fakeMessenger{}
	m := NewManager(provider)
	m.SetMessenger(msgr)
	ctx := context.Background()

	require.NoError(t, m.Subscribe(ctx, "org-1", "chan-1"))
	require.NoError(t, m.Subscribe(ctx, "org-1", "chan-2"))

	// one channel subscription, delivery retargeted to the newer destination
	require.Equal(t, []string{"private-org-org-1"}, provider.channels)

	provider.emit("private-org-org-1", "deposit", []byte(`{"amount":"100","currency":"USDC","network":"solana"}`))
	require.Equal(t, []string{"chan-2"}, msgr.dests)
}

func TestDepositEventDelivered(t *testing.T) {
	provider := newFakeProvider()
	msgr := &fakeMessenger{}
	m := NewManager(provider)
	m.SetMessenger(msgr)

	require.NoError(t, m.Subscribe(context.Background(), "org-1", "chan-1"))
	provider.emit("private-org-org-1", "deposit",
		[]byte(`{"amount":"42.5","currency":"USDC","network":"ethereum","transactionId":"tx-9"}`))

	require.Len(t, msgr.texts, 1)
	require.Contains(t, msgr.texts[0], "42.5 USDC")
	require.Contains(t, msgr.texts[0], "ethereum")
	require.Contains(t, msgr.texts[0], "tx-9")
}

func TestUnmappedEventDropped(t *testing.T) {
	provider := newFakeProvider()
	msgr := &fakeMessenger{}
	m := NewManager(provider)
	m.SetMessenger(msgr)

	require.NoError(t, m.Subscribe(context.Background(), "org-1", "chan-1"))
	provider.emit("private-org-org-1", "withdrawal:completed", []byte(`{}`))

	require.Empty(t, msgr.texts)
}

func TestSendFailureIsSwallowed(t *testing.T) {
	provider := newFakeProvider()
	msgr := &fakeMessenger{err: errors.New("transport down")}
	m := NewManager(provider)
	m.SetMessenger(msgr)

	require.NoError(t, m.Subscribe(context.Background(), "org-1", "chan-1"))
	// must not panic or propagate
	provider.emit("private-org-org-1", "deposit", []byte(`{"amount":"1","currency":"USDC"}`))
	require.Len(t, msgr.dests, 1)
}

func TestMalformedPayloadDropped(t *testing.T) {
	provider := newFakeProvider()
	msgr := &fakeMessenger{}
	m := NewManager(provider)
	m.SetMessenger(msgr)

	require.NoError(t, m.Subscribe(context.Background(), "org-1", "chan-1"))
	provider.emit("private-org-org-1", "deposit", []byte(`not json`))
	require.Empty(t, msgr.texts)
}

func TestUnsubscribeClosesHandle(t *testing.T) {
	provider := newFakeProvider()
	m := NewManager(provider)

	require.NoError(t, m.Subscribe(context.Background(), "org-1", "chan-1"))
	require.NoError(t, m.Unsubscribe("org-1"))
	require.Equal(t, 1, provider.handles["private-org-org-1"].closed)

	// events after teardown are dropped
	msgr := &fakeMessenger{}
	m.SetMessenger(msgr)
	provider.emit("private-org-org-1", "deposit", []byte(`{"amount":"1","currency":"USDC"}`))
	require.Empty(t, msgr.texts)
}

func TestUnsubscribeUnknownOrgIsNoop(t *testing.T) {
	m := NewManager(newFakeProvider())
	require.NoError(t, m.Unsubscribe("never-registered"))
}

func TestSubscribeProviderFailure(t *testing.T) {
	provider := newFakeProvider()
	provider.err = errors.New("socket closed")
	m := NewManager(provider)

	err := m.Subscribe(context.Background(), "org-1", "chan-1")
	require.Error(t, err)

	// a failed subscribe leaves no registration behind
	provider.err = nil
	require.NoError(t, m.Subscribe(context.Background(), "org-1", "chan-1"))
	require.Equal(t, []string{"private-org-org-1"}, provider.channels)
}

// gatedProvider blocks inside Subscribe for one channel until released,
// simulating a provider stuck on network I/O.
type gatedProvider struct {
	inner   *fakeProvider
	gateOn  string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedProvider) Subscribe(ctx context.Context, channel string, h EventHandler) (Handle, error) {
	if channel == g.gateOn {
		close(g.entered)
		<-g.release
	}
	return g.inner.Subscribe(ctx, channel, h)
}

func TestSubscribeDoesNotBlockDispatchForOtherOrgs(t *testing.T) {
	inner := newFakeProvider()
	gated := &gatedProvider{
		inner:   inner,
		gateOn:  "private-org-org-2",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	msgr := &fakeMessenger{}
	m := NewManager(gated)
	m.SetMessenger(msgr)
	ctx := context.Background()

	require.NoError(t, m.Subscribe(ctx, "org-1", "chan-1"))

	subDone := make(chan struct{})
	go func() {
		defer close(subDone)
		m.Subscribe(ctx, "org-2", "chan-2")
	}()
	<-gated.entered

	// delivery for the already-registered org must proceed while org-2's
	// subscription is still stuck in the provider
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		inner.emit("private-org-org-1", "deposit", []byte(`{"amount":"1","currency":"USDC"}`))
	}()
	select {
	case <-dispatched:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("dispatch for an unrelated org blocked behind an in-flight subscribe")
	}

	close(gated.release)
	<-subDone
	require.Equal(t, []string{"chan-1"}, msgr.dests)
}

func TestUnsubscribeDuringInFlightSubscribeClosesHandle(t *testing.T) {
	inner := newFakeProvider()
	gated := &gatedProvider{
		inner:   inner,
		gateOn:  "private-org-org-1",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	m := NewManager(gated)

	subDone := make(chan struct{})
	go func() {
		defer close(subDone)
		m.Subscribe(context.Background(), "org-1", "chan-1")
	}()
	<-gated.entered

	require.NoError(t, m.Unsubscribe("org-1"))
	close(gated.release)
	<-subDone

	// the orphaned channel subscription must not leak
	require.Equal(t, 1, inner.handles["private-org-org-1"].closed)
}

func TestNoMessengerDropsEvent(t *testing.T) {
	provider := newFakeProvider()
	m := NewManager(provider)

	require.NoError(t, m.Subscribe(context.Background(), "org-1", "chan-1"))
	// must not panic without a messenger installed
	provider.emit("private-org-org-1", "deposit", []byte(`{"amount":"1","currency":"USDC"}`))
}

func TestWebhookProviderDeliver(t *testing.T) {
	w := NewWebhookProvider()

	var gotEvent string
	var gotPayload []byte
	handle, err := w.Subscribe(context.Background(), "private-org-org-1", func(event string, payload []byte) {
		gotEvent = event
		gotPayload = payload
	})
	require.NoError(t, err)

	require.NoError(t, w.Deliver("private-org-org-1", "deposit", []byte(`{"amount":"5"}`)))
	require.Equal(t, "deposit", gotEvent)
	require.JSONEq(t, `{"amount":"5"}`, string(gotPayload))

	require.ErrorIs(t, w.Deliver("private-org-other", "deposit", nil), ErrUnknownChannel)

	require.NoError(t, handle.Close())
	require.ErrorIs(t, w.Deliver("private-org-org-1", "deposit", nil), ErrUnknownChannel)
}
