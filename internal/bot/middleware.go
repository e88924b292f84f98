package bot

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/copperx/payout-bot/internal/flow"
	"github.com/copperx/payout-bot/internal/session"
)

// Logging records each turn on receipt and on completion, with the step
// transition it caused and the time it took.
func Logging() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, t *Turn) error {
			before := t.Session.Step
			kind := "text"
			if t.Input.Action != "" {
				kind = "action:" + t.Input.Action
			}
			log.Printf("bot: user=%s input=%s step=%s", t.UserID, kind, before)
			start := time.Now()
			err := next(ctx, t)
			log.Printf("bot: user=%s input=%s step=%s->%s replies=%d took=%s err=%v",
				t.UserID, kind, before, t.Session.Step, len(t.Replies), time.Since(start), err)
			return err
		}
	}
}

// Recovery contains faults: a panic or an error escaping the handlers is
// logged and turned into a generic failure reply instead of taking the
// process down or leaking internals to the user.
func Recovery() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, t *Turn) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("bot: panic handling turn for user %s: %v", t.UserID, r)
					t.Reply(flow.Reply{Text: "❌ Something went wrong. Please try again."})
					err = nil
				}
			}()
			if herr := next(ctx, t); herr != nil {
				log.Printf("bot: turn failed for user %s: %v", t.UserID, herr)
				t.Reply(flow.Reply{Text: "❌ Something went wrong. Please try again."})
			}
			return nil
		}
	}
}

// SessionTimeout expires authenticated sessions that have been quiet for
// longer than ttl. Expiry is lazy: it is detected on the next interaction,
// which is dropped in favor of a re-login prompt.
func SessionTimeout(ttl time.Duration) Middleware {
	return sessionTimeout(ttl, time.Now)
}

func sessionTimeout(ttl time.Duration, now func() time.Time) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, t *Turn) error {
			n := now()
			if t.Session.Authenticated() && n.Sub(t.Session.LastActivityAt) > ttl {
				t.Session.ResetAuth()
				t.Session.LastActivityAt = n
				t.Reply(flow.Reply{Text: "⏰ Your session has expired. Please /login again."})
				return nil
			}
			t.Session.LastActivityAt = n
			return next(ctx, t)
		}
	}
}

// AuthGate blocks everything that needs a backend token until the user has
// logged in. Login, help and cancel stay reachable so the user can always get
// themselves into an authenticated state.
func AuthGate() Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, t *Turn) error {
			if t.Session.Authenticated() || gateAllows(t.Session, t.Input) {
				return next(ctx, t)
			}
			t.Reply(flow.Reply{Text: "🔐 You need to log in first. Use /login to authenticate with your Copperx account."})
			return nil
		}
	}
}

func gateAllows(s *session.Session, in flow.Input) bool {
	switch in.Action {
	case flow.ActionCancel, flow.ActionHelp, flow.ActionMainMenu:
		return true
	}
	if in.Action != "" {
		return false
	}
	text := strings.TrimSpace(in.Text)
	switch strings.ToLower(text) {
	case "/start", "/login", "/help", "/cancel":
		return true
	}
	// free text mid-login (email, OTP) must pass through
	return s.Step.Flow() == session.FlowAuth
}
