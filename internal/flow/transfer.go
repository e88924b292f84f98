package flow

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/copperx/payout-bot/internal/api"
	"github.com/copperx/payout-bot/internal/session"
)

func (m *Machine) cmdSend(ctx context.Context, t *turn) error {
	t.replyMenu("💸 **Send Money**\n\nHow would you like to send funds?", sendOptionsMenu())
	return nil
}

func (m *Machine) cmdWithdraw(ctx context.Context, t *turn) error {
	t.replyMenu("📤 **Withdraw Funds**\n\nWhere would you like to withdraw to?", withdrawOptionsMenu())
	return nil
}

// balancePreamble fetches the current balances to show before a flow starts.
// A fetch failure aborts the entry without touching the session step.
func (m *Machine) balancePreamble(ctx context.Context, t *turn) (string, bool) {
	balances, err := m.backend.Balances(ctx)
	if err != nil {
		log.Printf("flow: balance fetch on flow entry failed: %v", err)
		t.replyMenu("❌ Could not fetch your balances right now. Please try again later.", backToMenu())
		return "", false
	}
	return formatBalances(balances), true
}

func (m *Machine) enterSendEmail(ctx context.Context, t *turn) error {
	balances, ok := m.balancePreamble(ctx, t)
	if !ok {
		return nil
	}
	t.s.Step = session.StepSendEmailAddress
	t.s.Scratch.SendEmail = &session.SendEmailScratch{}
	t.replyMenu(
		balances+"\n\n📧 **Send to Email**\n\nEnter the recipient's email address:",
		cancelMenu(),
	)
	return nil
}

func (m *Machine) stepSendEmailAddress(ctx context.Context, t *turn, text string) error {
	if !validEmail(text) {
		t.replyMenu("❌ **Invalid Email Format**\n\nPlease enter a valid email address:", cancelMenu())
		return nil
	}
	scratch := t.s.Scratch.SendEmail
	if scratch == nil {
		return m.stateError(t)
	}
	scratch.Recipient = text
	t.s.Step = session.StepSendEmailAmount
	t.replyMenu(
		fmt.Sprintf("Enter the amount of %s to send to %s:", currency, text),
		cancelMenu(),
	)
	return nil
}

func (m *Machine) stepSendEmailAmount(ctx context.Context, t *turn, text string) error {
	if !validAmount(text) {
		t.replyMenu("❌ **Invalid Amount**\n\nPlease enter a positive number:", cancelMenu())
		return nil
	}
	scratch := t.s.Scratch.SendEmail
	if scratch == nil || scratch.Recipient == "" {
		return m.stateError(t)
	}
	scratch.Amount = text
	t.s.Step = session.StepConfirmEmailTransfer
	t.replyMenu(
		fmt.Sprintf(
			"📋 **Confirm Transfer**\n\n**To:** %s\n**Amount:** %s %s\n\nPlease confirm this transfer:",
			scratch.Recipient, text, currency,
		),
		confirmMenu(ActionConfirmEmailSend),
	)
	return nil
}

func (m *Machine) executeEmailTransfer(ctx context.Context, t *turn) error {
	scratch := t.s.Scratch.SendEmail
	if scratch == nil || scratch.Recipient == "" || scratch.Amount == "" {
		return m.stateError(t)
	}
	result, err := m.backend.SendToEmail(ctx, api.EmailTransferRequest{
		Email:    scratch.Recipient,
		Amount:   scratch.Amount,
		Currency: currency,
	})
	t.endFlow()
	if err != nil {
		log.Printf("flow: email transfer failed: %v", err)
		// never re-submit: the backend may have acted on the request
		t.replyMenu(
			"❌ **Transfer Failed**\n\n"+errorMessage(err)+"\n\nThe operation was not retried. Check your transaction history before trying again.",
			backToMenu(),
		)
		return nil
	}
	t.replyMenu(
		fmt.Sprintf(
			"✅ **Transfer Successful**\n\nSent %s %s to %s.\n\n**Transaction ID:** %s",
			scratch.Amount, currency, scratch.Recipient, result.ID,
		),
		mainMenu(),
	)
	return nil
}

func (m *Machine) enterSendWallet(ctx context.Context, t *turn) error {
	balances, ok := m.balancePreamble(ctx, t)
	if !ok {
		return nil
	}
	t.s.Step = session.StepSendWalletAddress
	t.s.Scratch.SendWallet = &session.SendWalletScratch{}
	t.replyMenu(
		balances+"\n\n🔑 **Send to Wallet**\n\nEnter the destination wallet address:",
		cancelMenu(),
	)
	return nil
}

func (m *Machine) stepSendWalletAddress(ctx context.Context, t *turn, text string) error {
	scratch := t.s.Scratch.SendWallet
	if scratch == nil {
		return m.stateError(t)
	}
	scratch.Address = text
	t.s.Step = session.StepSendWalletNetwork
	t.replyMenu("Select the network for this transfer:\n\n"+networkPrompt, cancelMenu())
	return nil
}

func (m *Machine) stepSendWalletNetwork(ctx context.Context, t *turn, text string) error {
	network, ok := parseNetwork(text)
	if !ok {
		t.replyMenu("❌ **Invalid Network**\n\n"+networkPrompt, cancelMenu())
		return nil
	}
	scratch := t.s.Scratch.SendWallet
	if scratch == nil || scratch.Address == "" {
		return m.stateError(t)
	}
	scratch.Network = network
	t.s.Step = session.StepSendWalletAmount
	t.replyMenu(fmt.Sprintf("Enter the amount of %s to send:", currency), cancelMenu())
	return nil
}

func (m *Machine) stepSendWalletAmount(ctx context.Context, t *turn, text string) error {
	if !validAmount(text) {
		t.replyMenu("❌ **Invalid Amount**\n\nPlease enter a positive number:", cancelMenu())
		return nil
	}
	scratch := t.s.Scratch.SendWallet
	if scratch == nil || scratch.Address == "" || scratch.Network == "" {
		return m.stateError(t)
	}
	scratch.Amount = text
	t.s.Step = session.StepConfirmWalletTransfer
	t.replyMenu(
		fmt.Sprintf(
			"📋 **Confirm Transfer**\n\n**To:** %s\n**Network:** %s\n**Amount:** %s %s\n\nPlease confirm this transfer:",
			truncateAddress(scratch.Address), scratch.Network, text, currency,
		),
		confirmMenu(ActionConfirmWalletSend),
	)
	return nil
}

func (m *Machine) executeWalletTransfer(ctx context.Context, t *turn) error {
	scratch := t.s.Scratch.SendWallet
	if scratch == nil || scratch.Address == "" || scratch.Network == "" || scratch.Amount == "" {
		return m.stateError(t)
	}
	result, err := m.backend.SendToWallet(ctx, api.WalletTransferRequest{
		ToAddress: scratch.Address,
		Amount:    scratch.Amount,
		Currency:  currency,
		Network:   scratch.Network,
	})
	t.endFlow()
	if err != nil {
		log.Printf("flow: wallet transfer failed: %v", err)
		t.replyMenu(
			"❌ **Transfer Failed**\n\n"+errorMessage(err)+"\n\nThe operation was not retried. Check your transaction history before trying again.",
			backToMenu(),
		)
		return nil
	}
	t.replyMenu(
		fmt.Sprintf(
			"✅ **Transfer Successful**\n\nSent %s %s to %s on %s.\n\n**Transaction ID:** %s",
			scratch.Amount, currency, truncateAddress(scratch.Address), scratch.Network, result.ID,
		),
		mainMenu(),
	)
	return nil
}

func (m *Machine) enterWithdrawBank(ctx context.Context, t *turn) error {
	balances, ok := m.balancePreamble(ctx, t)
	if !ok {
		return nil
	}
	t.s.Step = session.StepWithdrawBankAmount
	t.s.Scratch.WithdrawBank = &session.WithdrawBankScratch{}
	t.replyMenu(
		balances+fmt.Sprintf(
			"\n\n🏦 **Bank Withdrawal**\n\nFunds will be sent to the bank account on file with Copperx.\n\nEnter the amount of %s to withdraw:",
			currency,
		),
		cancelMenu(),
	)
	return nil
}

func (m *Machine) stepWithdrawBankAmount(ctx context.Context, t *turn, text string) error {
	if !validAmount(text) {
		t.replyMenu("❌ **Invalid Amount**\n\nPlease enter a positive number:", cancelMenu())
		return nil
	}
	scratch := t.s.Scratch.WithdrawBank
	if scratch == nil {
		return m.stateError(t)
	}
	scratch.Amount = text
	t.s.Step = session.StepConfirmBankWithdrawal
	t.replyMenu(
		fmt.Sprintf(
			"📋 **Confirm Withdrawal**\n\n**To:** Bank account on file\n**Amount:** %s %s\n\nPlease confirm this withdrawal:",
			text, currency,
		),
		confirmMenu(ActionConfirmBankOut),
	)
	return nil
}

func (m *Machine) executeBankWithdrawal(ctx context.Context, t *turn) error {
	scratch := t.s.Scratch.WithdrawBank
	if scratch == nil || scratch.Amount == "" {
		return m.stateError(t)
	}
	result, err := m.backend.WithdrawToBank(ctx, api.BankWithdrawalRequest{
		Amount:   scratch.Amount,
		Currency: currency,
	})
	t.endFlow()
	if err != nil {
		log.Printf("flow: bank withdrawal failed: %v", err)
		t.replyMenu(
			"❌ **Withdrawal Failed**\n\n"+errorMessage(err)+"\n\nThe operation was not retried. Check your transaction history before trying again.",
			backToMenu(),
		)
		return nil
	}
	t.replyMenu(
		fmt.Sprintf(
			"✅ **Withdrawal Submitted**\n\n%s %s is on its way to your bank account.\n\n**Transaction ID:** %s",
			scratch.Amount, currency, result.ID,
		),
		mainMenu(),
	)
	return nil
}

func (m *Machine) enterWithdrawWallet(ctx context.Context, t *turn) error {
	balances, ok := m.balancePreamble(ctx, t)
	if !ok {
		return nil
	}
	t.s.Step = session.StepWithdrawWalletAddress
	t.s.Scratch.WithdrawWallet = &session.WithdrawWalletScratch{}
	t.replyMenu(
		balances+"\n\n🔑 **External Wallet Withdrawal**\n\nEnter the destination wallet address:",
		cancelMenu(),
	)
	return nil
}

func (m *Machine) stepWithdrawWalletAddress(ctx context.Context, t *turn, text string) error {
	scratch := t.s.Scratch.WithdrawWallet
	if scratch == nil {
		return m.stateError(t)
	}
	scratch.Address = text
	t.s.Step = session.StepWithdrawWalletNetwork
	t.replyMenu("Select the network for this withdrawal:\n\n"+networkPrompt, cancelMenu())
	return nil
}

func (m *Machine) stepWithdrawWalletNetwork(ctx context.Context, t *turn, text string) error {
	network, ok := parseNetwork(text)
	if !ok {
		t.replyMenu("❌ **Invalid Network**\n\n"+networkPrompt, cancelMenu())
		return nil
	}
	scratch := t.s.Scratch.WithdrawWallet
	if scratch == nil || scratch.Address == "" {
		return m.stateError(t)
	}
	scratch.Network = network
	t.s.Step = session.StepWithdrawWalletAmount
	t.replyMenu(fmt.Sprintf("Enter the amount of %s to withdraw:", currency), cancelMenu())
	return nil
}

func (m *Machine) stepWithdrawWalletAmount(ctx context.Context, t *turn, text string) error {
	if !validAmount(text) {
		t.replyMenu("❌ **Invalid Amount**\n\nPlease enter a positive number:", cancelMenu())
		return nil
	}
	scratch := t.s.Scratch.WithdrawWallet
	if scratch == nil || scratch.Address == "" || scratch.Network == "" {
		return m.stateError(t)
	}
	scratch.Amount = text
	t.s.Step = session.StepConfirmWalletWithdrawal
	t.replyMenu(
		fmt.Sprintf(
			"📋 **Confirm Withdrawal**\n\n**To:** %s\n**Network:** %s\n**Amount:** %s %s\n\nPlease confirm this withdrawal:",
			truncateAddress(scratch.Address), scratch.Network, text, currency,
		),
		confirmMenu(ActionConfirmWalletOut),
	)
	return nil
}

func (m *Machine) executeWalletWithdrawal(ctx context.Context, t *turn) error {
	scratch := t.s.Scratch.WithdrawWallet
	if scratch == nil || scratch.Address == "" || scratch.Network == "" || scratch.Amount == "" {
		return m.stateError(t)
	}
	result, err := m.backend.SendToWallet(ctx, api.WalletTransferRequest{
		ToAddress: scratch.Address,
		Amount:    scratch.Amount,
		Currency:  currency,
		Network:   scratch.Network,
	})
	t.endFlow()
	if err != nil {
		log.Printf("flow: wallet withdrawal failed: %v", err)
		t.replyMenu(
			"❌ **Withdrawal Failed**\n\n"+errorMessage(err)+"\n\nThe operation was not retried. Check your transaction history before trying again.",
			backToMenu(),
		)
		return nil
	}
	t.replyMenu(
		fmt.Sprintf(
			"✅ **Withdrawal Submitted**\n\nSent %s %s to %s on %s.\n\n**Transaction ID:** %s",
			scratch.Amount, currency, truncateAddress(scratch.Address), scratch.Network, result.ID,
		),
		mainMenu(),
	)
	return nil
}

func (m *Machine) cmdTransactions(ctx context.Context, t *turn) error {
	return m.showTransactions(ctx, t, 1)
}

func (m *Machine) showTransactions(ctx context.Context, t *turn, page int) error {
	transfers, err := m.backend.TransferHistory(ctx, page, historyPageSize)
	if err != nil {
		log.Printf("flow: transfer history fetch failed: %v", err)
		t.replyMenu("❌ Could not fetch your transactions right now. Please try again later.", backToMenu())
		return nil
	}
	if len(transfers) == 0 && page > 1 {
		t.replyMenu("No more transactions.", historyMenu(page, false))
		return nil
	}
	hasMore := len(transfers) == historyPageSize
	t.replyMenu(formatTransactions(transfers), historyMenu(page, hasMore))
	return nil
}

// stateError recovers from a confirm or step arriving with no scratch behind
// it, e.g. after a session was restored from an older snapshot.
func (m *Machine) stateError(t *turn) error {
	t.endFlow()
	t.replyMenu("⚠️ Something went wrong with this operation. Please start it again.", mainMenu())
	return nil
}

// errorMessage extracts the backend's message when the error carries one.
func errorMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "The request could not be completed."
}
