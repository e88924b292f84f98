// Package bot runs the turn pipeline: each inbound event is wrapped in a
// Turn, passed through the middleware chain and handed to the flow machine,
// all inside the session store's per-user critical section.
package bot

import (
	"context"

	"github.com/copperx/payout-bot/internal/flow"
	"github.com/copperx/payout-bot/internal/session"
)

// Turn carries one inbound event and its session through the pipeline.
// Middleware may mutate the session, append replies and stop the chain.
type Turn struct {
	UserID      string
	Destination string
	Input       flow.Input
	Session     *session.Session
	Replies     []flow.Reply
}

// Reply appends an outbound message to the turn.
func (t *Turn) Reply(r flow.Reply) {
	t.Replies = append(t.Replies, r)
}

// Handler processes one turn.
type Handler func(ctx context.Context, t *Turn) error

// Middleware wraps a handler with a cross-cutting concern.
type Middleware func(Handler) Handler

// Chain wraps h so the first middleware in the list runs outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Bot ties the session store, the middleware chain and the flow machine
// together.
type Bot struct {
	store   session.Store
	machine *flow.Machine
	handler Handler
}

func New(store session.Store, machine *flow.Machine, mws ...Middleware) *Bot {
	b := &Bot{store: store, machine: machine}
	base := func(ctx context.Context, t *Turn) error {
		replies, err := machine.Handle(ctx, t.Session, t.Input)
		t.Replies = append(t.Replies, replies...)
		return err
	}
	b.handler = Chain(base, mws...)
	return b
}

// HandleInput processes one event for a user and returns the replies to send.
// The whole turn executes inside the store's per-user critical section, so two
// events from the same user can never interleave.
func (b *Bot) HandleInput(ctx context.Context, userID, destination string, in flow.Input) ([]flow.Reply, error) {
	var replies []flow.Reply
	err := b.store.Update(ctx, userID, func(s *session.Session) error {
		s.Destination = destination
		t := &Turn{
			UserID:      userID,
			Destination: destination,
			Input:       in,
			Session:     s,
		}
		err := b.handler(ctx, t)
		replies = t.Replies
		return err
	})
	return replies, err
}
