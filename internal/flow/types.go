// Package flow implements the per-user conversational state machine: the
// closed set of steps, the transition tables and the handlers that drive
// multi-turn flows (login, send funds, withdrawals, settings) over a
// stateless request/response channel.
package flow

import (
	"context"

	"github.com/copperx/payout-bot/internal/api"
)

// Input is one inbound user event: either free text or a menu selection.
type Input struct {
	Text   string
	Action string
}

func TextInput(text string) Input     { return Input{Text: text} }
func ActionInput(action string) Input { return Input{Action: action} }

// Menu action identifiers. These are the button payloads round-tripped
// through the messaging transport.
const (
	ActionMainMenu          = "main_menu"
	ActionCancel            = "cancel"
	ActionHelp              = "help"
	ActionBalance           = "balance"
	ActionDeposit           = "deposit"
	ActionSendMoney         = "send_money"
	ActionSendEmail         = "send_email"
	ActionSendWallet        = "send_wallet"
	ActionWithdraw          = "withdraw"
	ActionWithdrawBank      = "withdraw_bank"
	ActionWithdrawWallet    = "withdraw_wallet"
	ActionTransactions      = "transactions"
	ActionSettings          = "settings"
	ActionViewProfile       = "view_profile"
	ActionSetDefaultWallet  = "set_default_wallet"
	ActionConfirmEmailSend  = "confirm_email_transfer"
	ActionConfirmWalletSend = "confirm_wallet_transfer"
	ActionConfirmBankOut    = "confirm_bank_withdrawal"
	ActionConfirmWalletOut  = "confirm_wallet_withdrawal"

	actionWalletPrefix = "wallet_"
	actionTxPagePrefix = "tx_page_"
)

// Button is one pressable menu entry.
type Button struct {
	Label  string
	Action string
}

// Menu is a grid of buttons attached to a reply.
type Menu struct {
	Rows [][]Button
}

// Reply is one outbound message produced by a turn.
type Reply struct {
	Text string
	Menu *Menu
}

// Backend is the surface of the Copperx API the state machine drives.
// *api.Client satisfies it; tests substitute a fake.
type Backend interface {
	RequestEmailOTP(ctx context.Context, email string) error
	AuthenticateEmailOTP(ctx context.Context, email, otp string) (*api.AuthResult, error)
	Profile(ctx context.Context) (*api.UserProfile, error)
	KYCStatuses(ctx context.Context) ([]api.KYCStatus, error)
	Wallets(ctx context.Context) ([]api.Wallet, error)
	Balances(ctx context.Context) ([]api.WalletBalances, error)
	DefaultWallet(ctx context.Context) (*api.Wallet, error)
	SetDefaultWallet(ctx context.Context, walletID string) error
	SendToEmail(ctx context.Context, req api.EmailTransferRequest) (*api.TransferResult, error)
	SendToWallet(ctx context.Context, req api.WalletTransferRequest) (*api.TransferResult, error)
	WithdrawToBank(ctx context.Context, req api.BankWithdrawalRequest) (*api.TransferResult, error)
	TransferHistory(ctx context.Context, page, limit int) ([]api.Transfer, error)
	Logout()
}

// Notifier is the bridge into the notification subscription layer. Login
// registers the user's organization, logout tears it down.
type Notifier interface {
	Subscribe(ctx context.Context, organizationID, destination string) error
	Unsubscribe(organizationID string) error
}
