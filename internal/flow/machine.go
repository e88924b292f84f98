package flow

import (
	"context"
	"strconv"
	"strings"

	"github.com/copperx/payout-bot/internal/session"
)

const (
	currency        = "USDC"
	historyPageSize = 5
)

// Machine applies one input event to a session and produces the replies for
// that turn. The caller (the middleware pipeline) guarantees the session is
// held exclusively for the duration of the call.
type Machine struct {
	backend  Backend
	notifier Notifier
}

func NewMachine(backend Backend, notifier Notifier) *Machine {
	return &Machine{backend: backend, notifier: notifier}
}

// turn accumulates replies while handlers mutate the session.
type turn struct {
	s       *session.Session
	replies []Reply
}

func (t *turn) reply(text string) {
	t.replies = append(t.replies, Reply{Text: text})
}

func (t *turn) replyMenu(text string, menu *Menu) {
	t.replies = append(t.replies, Reply{Text: text, Menu: menu})
}

// endFlow leaves the current flow: the flow's scratch variant is dropped and
// the session returns to idle. Other flows' leftovers are untouched.
func (t *turn) endFlow() {
	t.s.Scratch.Clear(t.s.Step.Flow())
	t.s.Step = session.StepIdle
}

// Handle runs one turn. The returned error is reserved for unexpected faults;
// validation failures and backend errors are reported as replies.
func (m *Machine) Handle(ctx context.Context, s *session.Session, in Input) ([]Reply, error) {
	t := &turn{s: s}
	var err error
	if in.Action != "" {
		err = m.handleAction(ctx, t, in.Action)
	} else {
		err = m.handleText(ctx, t, strings.TrimSpace(in.Text))
	}
	return t.replies, err
}

// commands maps slash commands to their entry handlers. Commands are global:
// issuing one abandons any flow in progress in place.
var commands = map[string]func(*Machine, context.Context, *turn) error{
	"/start":        (*Machine).cmdStart,
	"/help":         (*Machine).cmdHelp,
	"/login":        (*Machine).cmdLogin,
	"/logout":       (*Machine).cmdLogout,
	"/balance":      (*Machine).cmdBalance,
	"/deposit":      (*Machine).cmdDeposit,
	"/send":         (*Machine).cmdSend,
	"/withdraw":     (*Machine).cmdWithdraw,
	"/transactions": (*Machine).cmdTransactions,
	"/settings":     (*Machine).cmdSettings,
}

// textSteps is the transition table for steps that consume free text. A step
// absent from this table advances only through menu actions.
var textSteps = map[session.Step]func(*Machine, context.Context, *turn, string) error{
	session.StepAuthEmail:             (*Machine).stepAuthEmail,
	session.StepAuthOTP:               (*Machine).stepAuthOTP,
	session.StepSendEmailAddress:      (*Machine).stepSendEmailAddress,
	session.StepSendEmailAmount:       (*Machine).stepSendEmailAmount,
	session.StepSendWalletAddress:     (*Machine).stepSendWalletAddress,
	session.StepSendWalletNetwork:     (*Machine).stepSendWalletNetwork,
	session.StepSendWalletAmount:      (*Machine).stepSendWalletAmount,
	session.StepWithdrawBankAmount:    (*Machine).stepWithdrawBankAmount,
	session.StepWithdrawWalletAddress: (*Machine).stepWithdrawWalletAddress,
	session.StepWithdrawWalletNetwork: (*Machine).stepWithdrawWalletNetwork,
	session.StepWithdrawWalletAmount:  (*Machine).stepWithdrawWalletAmount,
}

// entryActions maps menu selections that start or display something to their
// handlers. Like commands, they are global.
var entryActions = map[string]func(*Machine, context.Context, *turn) error{
	ActionMainMenu:         (*Machine).cmdStartMenu,
	ActionHelp:             (*Machine).cmdHelp,
	ActionBalance:          (*Machine).cmdBalance,
	ActionDeposit:          (*Machine).cmdDeposit,
	ActionSendMoney:        (*Machine).cmdSend,
	ActionSendEmail:        (*Machine).enterSendEmail,
	ActionSendWallet:       (*Machine).enterSendWallet,
	ActionWithdraw:         (*Machine).cmdWithdraw,
	ActionWithdrawBank:     (*Machine).enterWithdrawBank,
	ActionWithdrawWallet:   (*Machine).enterWithdrawWallet,
	ActionTransactions:     (*Machine).cmdTransactions,
	ActionSettings:         (*Machine).cmdSettings,
	ActionViewProfile:      (*Machine).viewProfile,
	ActionSetDefaultWallet: (*Machine).enterSelectDefaultWallet,
}

// confirmActions maps each confirmation action to the step it is valid in and
// the executor that performs the money movement. A confirm arriving in any
// other step reports a state error instead of re-submitting.
var confirmActions = map[string]struct {
	step    session.Step
	execute func(*Machine, context.Context, *turn) error
}{
	ActionConfirmEmailSend:  {session.StepConfirmEmailTransfer, (*Machine).executeEmailTransfer},
	ActionConfirmWalletSend: {session.StepConfirmWalletTransfer, (*Machine).executeWalletTransfer},
	ActionConfirmBankOut:    {session.StepConfirmBankWithdrawal, (*Machine).executeBankWithdrawal},
	ActionConfirmWalletOut:  {session.StepConfirmWalletWithdrawal, (*Machine).executeWalletWithdrawal},
}

func (m *Machine) handleText(ctx context.Context, t *turn, text string) error {
	if text == "/cancel" {
		return m.cancel(t)
	}
	if strings.HasPrefix(text, "/") {
		if cmd, ok := commands[strings.ToLower(text)]; ok {
			return cmd(m, ctx, t)
		}
		t.replyMenu("Unknown command. Use /help to see what I can do.", mainMenu())
		return nil
	}
	if handler, ok := textSteps[t.s.Step]; ok {
		return handler(m, ctx, t, text)
	}
	t.replyMenu("I wasn't expecting that. Pick an option below or use /help.", mainMenu())
	return nil
}

func (m *Machine) handleAction(ctx context.Context, t *turn, action string) error {
	if action == ActionCancel {
		return m.cancel(t)
	}
	if entry, ok := entryActions[action]; ok {
		return entry(m, ctx, t)
	}
	if confirm, ok := confirmActions[action]; ok {
		if t.s.Step != confirm.step {
			t.replyMenu("⚠️ This confirmation is no longer active. Please start the operation again.", backToMenu())
			return nil
		}
		return confirm.execute(m, ctx, t)
	}
	if walletID, ok := strings.CutPrefix(action, actionWalletPrefix); ok {
		return m.selectDefaultWallet(ctx, t, walletID)
	}
	if pageStr, ok := strings.CutPrefix(action, actionTxPagePrefix); ok {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			page = 1
		}
		return m.showTransactions(ctx, t, page)
	}
	t.replyMenu("That option is no longer available.", mainMenu())
	return nil
}

// cancel aborts whatever flow is in progress. It never touches the backend.
func (m *Machine) cancel(t *turn) error {
	if t.s.Step == session.StepIdle {
		t.replyMenu("Nothing to cancel. What would you like to do?", mainMenu())
		return nil
	}
	t.endFlow()
	t.replyMenu("❌ Operation cancelled.\n\nWhat would you like to do next?", mainMenu())
	return nil
}
