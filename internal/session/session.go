package session

import "time"

// Step identifies where a user is inside a multi-turn flow. StepIdle means no
// flow is in progress.
type Step int

const (
	StepIdle Step = iota

	// auth flow
	StepAuthEmail
	StepAuthOTP

	// send-to-email flow
	StepSendEmailAddress
	StepSendEmailAmount
	StepConfirmEmailTransfer

	// send-to-wallet flow
	StepSendWalletAddress
	StepSendWalletNetwork
	StepSendWalletAmount
	StepConfirmWalletTransfer

	// bank-withdraw flow
	StepWithdrawBankAmount
	StepConfirmBankWithdrawal

	// wallet-withdraw flow
	StepWithdrawWalletAddress
	StepWithdrawWalletNetwork
	StepWithdrawWalletAmount
	StepConfirmWalletWithdrawal

	// wallet-selection flow
	StepSelectDefaultWallet
)

var stepNames = map[Step]string{
	StepIdle:                    "idle",
	StepAuthEmail:               "auth_email",
	StepAuthOTP:                 "auth_otp",
	StepSendEmailAddress:        "send_email_address",
	StepSendEmailAmount:         "send_email_amount",
	StepConfirmEmailTransfer:    "confirm_email_transfer",
	StepSendWalletAddress:       "send_wallet_address",
	StepSendWalletNetwork:       "send_wallet_network",
	StepSendWalletAmount:        "send_wallet_amount",
	StepConfirmWalletTransfer:   "confirm_wallet_transfer",
	StepWithdrawBankAmount:      "withdraw_bank_amount",
	StepConfirmBankWithdrawal:   "confirm_bank_withdrawal",
	StepWithdrawWalletAddress:   "withdraw_wallet_address",
	StepWithdrawWalletNetwork:   "withdraw_wallet_network",
	StepWithdrawWalletAmount:    "withdraw_wallet_amount",
	StepConfirmWalletWithdrawal: "confirm_wallet_withdrawal",
	StepSelectDefaultWallet:     "select_default_wallet",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// Flow groups steps that accomplish one user-visible outcome.
type Flow int

const (
	FlowNone Flow = iota
	FlowAuth
	FlowSendEmail
	FlowSendWallet
	FlowWithdrawBank
	FlowWithdrawWallet
	FlowSelectWallet
)

// Flow returns the flow a step belongs to.
func (s Step) Flow() Flow {
	switch s {
	case StepAuthEmail, StepAuthOTP:
		return FlowAuth
	case StepSendEmailAddress, StepSendEmailAmount, StepConfirmEmailTransfer:
		return FlowSendEmail
	case StepSendWalletAddress, StepSendWalletNetwork, StepSendWalletAmount, StepConfirmWalletTransfer:
		return FlowSendWallet
	case StepWithdrawBankAmount, StepConfirmBankWithdrawal:
		return FlowWithdrawBank
	case StepWithdrawWalletAddress, StepWithdrawWalletNetwork, StepWithdrawWalletAmount, StepConfirmWalletWithdrawal:
		return FlowWithdrawWallet
	case StepSelectDefaultWallet:
		return FlowSelectWallet
	default:
		return FlowNone
	}
}

// Scratch accumulates multi-turn input, one typed variant per flow. A flow
// reads and clears only its own variant, so leftovers from an abandoned flow
// are harmless to every other flow.
type Scratch struct {
	Auth           *AuthScratch           `json:"auth,omitempty"`
	SendEmail      *SendEmailScratch      `json:"send_email,omitempty"`
	SendWallet     *SendWalletScratch     `json:"send_wallet,omitempty"`
	WithdrawBank   *WithdrawBankScratch   `json:"withdraw_bank,omitempty"`
	WithdrawWallet *WithdrawWalletScratch `json:"withdraw_wallet,omitempty"`
}

type AuthScratch struct {
	Email string `json:"email"`
}

type SendEmailScratch struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount,omitempty"`
}

type SendWalletScratch struct {
	Address string `json:"address"`
	Network string `json:"network,omitempty"`
	Amount  string `json:"amount,omitempty"`
}

type WithdrawBankScratch struct {
	Amount string `json:"amount"`
}

type WithdrawWalletScratch struct {
	Address string `json:"address"`
	Network string `json:"network,omitempty"`
	Amount  string `json:"amount,omitempty"`
}

// Clear drops the scratch variant owned by the given flow.
func (sc *Scratch) Clear(f Flow) {
	switch f {
	case FlowAuth:
		sc.Auth = nil
	case FlowSendEmail:
		sc.SendEmail = nil
	case FlowSendWallet:
		sc.SendWallet = nil
	case FlowWithdrawBank:
		sc.WithdrawBank = nil
	case FlowWithdrawWallet:
		sc.WithdrawWallet = nil
	}
}

// Session is the per-user conversational state. It is mutated only by the
// middleware pipeline and the step state machine, always under the store's
// per-user serialization.
type Session struct {
	UserID         string    `json:"user_id"`
	Destination    string    `json:"destination"`
	AuthToken      string    `json:"auth_token,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	Email          string    `json:"email,omitempty"`
	Step           Step      `json:"step"`
	Scratch        Scratch   `json:"scratch"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Authenticated reports whether the session holds a backend access token.
func (s *Session) Authenticated() bool {
	return s.AuthToken != ""
}

// ResetAuth drops credentials and any in-progress flow, keeping the
// conversation identity so the user can log in again in place.
func (s *Session) ResetAuth() {
	s.AuthToken = ""
	s.OrganizationID = ""
	s.Email = ""
	s.Step = StepIdle
	s.Scratch = Scratch{}
}

func (s *Session) clone() *Session {
	c := *s
	if s.Scratch.Auth != nil {
		v := *s.Scratch.Auth
		c.Scratch.Auth = &v
	}
	if s.Scratch.SendEmail != nil {
		v := *s.Scratch.SendEmail
		c.Scratch.SendEmail = &v
	}
	if s.Scratch.SendWallet != nil {
		v := *s.Scratch.SendWallet
		c.Scratch.SendWallet = &v
	}
	if s.Scratch.WithdrawBank != nil {
		v := *s.Scratch.WithdrawBank
		c.Scratch.WithdrawBank = &v
	}
	if s.Scratch.WithdrawWallet != nil {
		v := *s.Scratch.WithdrawWallet
		c.Scratch.WithdrawWallet = &v
	}
	return &c
}
