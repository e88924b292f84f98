package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/copperx/payout-bot/internal/api"
	"github.com/copperx/payout-bot/internal/session"
)

type fakeBackend struct {
	otpRequests []string
	otpErr      error

	authCalls  int
	authErr    error
	authResult *api.AuthResult

	profile    *api.UserProfile
	profileErr error
	kycs       []api.KYCStatus

	balances    []api.WalletBalances
	balancesErr error

	wallets       []api.Wallet
	walletsErr    error
	defaultWallet *api.Wallet
	setDefaultIDs []string
	setDefaultErr error

	emailSends   []api.EmailTransferRequest
	emailSendErr error
	walletSends  []api.WalletTransferRequest
	walletErr    error
	bankOuts     []api.BankWithdrawalRequest
	bankErr      error

	history      []api.Transfer
	historyPages []int
	historyErr   error

	loggedOut bool
}

func (f *fakeBackend) RequestEmailOTP(ctx context.Context, email string) error {
	f.otpRequests = append(f.otpRequests, email)
	return f.otpErr
}

func (f *fakeBackend) AuthenticateEmailOTP(ctx context.Context, email, otp string) (*api.AuthResult, error) {
	f.authCalls++
	if f.authErr != nil {
		return nil, f.authErr
	}
	if f.authResult != nil {
		return f.authResult, nil
	}
	return &api.AuthResult{
		AccessToken: "access-token",
		User:        api.UserProfile{OrganizationID: "org-1"},
	}, nil
}

func (f *fakeBackend) Profile(ctx context.Context) (*api.UserProfile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if f.profile != nil {
		return f.profile, nil
	}
	return &api.UserProfile{FirstName: "Ada", OrganizationID: "org-1"}, nil
}

func (f *fakeBackend) KYCStatuses(ctx context.Context) ([]api.KYCStatus, error) {
	return f.kycs, nil
}

func (f *fakeBackend) Wallets(ctx context.Context) ([]api.Wallet, error) {
	return f.wallets, f.walletsErr
}

func (f *fakeBackend) Balances(ctx context.Context) ([]api.WalletBalances, error) {
	return f.balances, f.balancesErr
}

func (f *fakeBackend) DefaultWallet(ctx context.Context) (*api.Wallet, error) {
	return f.defaultWallet, nil
}

func (f *fakeBackend) SetDefaultWallet(ctx context.Context, walletID string) error {
	f.setDefaultIDs = append(f.setDefaultIDs, walletID)
	return f.setDefaultErr
}

func (f *fakeBackend) SendToEmail(ctx context.Context, req api.EmailTransferRequest) (*api.TransferResult, error) {
	f.emailSends = append(f.emailSends, req)
	if f.emailSendErr != nil {
		return nil, f.emailSendErr
	}
	return &api.TransferResult{ID: "tx-1", Status: "pending"}, nil
}

func (f *fakeBackend) SendToWallet(ctx context.Context, req api.WalletTransferRequest) (*api.TransferResult, error) {
	f.walletSends = append(f.walletSends, req)
	if f.walletErr != nil {
		return nil, f.walletErr
	}
	return &api.TransferResult{ID: "tx-2", Status: "pending"}, nil
}

func (f *fakeBackend) WithdrawToBank(ctx context.Context, req api.BankWithdrawalRequest) (*api.TransferResult, error) {
	f.bankOuts = append(f.bankOuts, req)
	if f.bankErr != nil {
		return nil, f.bankErr
	}
	return &api.TransferResult{ID: "tx-3", Status: "pending"}, nil
}

func (f *fakeBackend) TransferHistory(ctx context.Context, page, limit int) ([]api.Transfer, error) {
	f.historyPages = append(f.historyPages, page)
	return f.history, f.historyErr
}

func (f *fakeBackend) Logout() {
	f.loggedOut = true
}

type fakeNotifier struct {
	subOrgs  []string
	subDests []string
	subErr   error
	unsubs   []string
}

func (f *fakeNotifier) Subscribe(ctx context.Context, organizationID, destination string) error {
	f.subOrgs = append(f.subOrgs, organizationID)
	f.subDests = append(f.subDests, destination)
	return f.subErr
}

func (f *fakeNotifier) Unsubscribe(organizationID string) error {
	f.unsubs = append(f.unsubs, organizationID)
	return nil
}

func newTestMachine() (*Machine, *fakeBackend, *fakeNotifier) {
	backend := &fakeBackend{}
	notifier := &fakeNotifier{}
	return NewMachine(backend, notifier), backend, notifier
}

func newTestSession() *session.Session {
	return &session.Session{UserID: "user-1", Destination: "chan-1"}
}

func authedSession() *session.Session {
	s := newTestSession()
	s.AuthToken = "access-token"
	s.OrganizationID = "org-1"
	return s
}

func handle(t *testing.T, m *Machine, s *session.Session, in Input) []Reply {
	t.Helper()
	replies, err := m.Handle(context.Background(), s, in)
	require.NoError(t, err)
	require.NotEmpty(t, replies)
	return replies
}

func TestLoginFlow(t *testing.T) {
	m, backend, notifier := newTestMachine()
	s := newTestSession()

	handle(t, m, s, TextInput("/login"))
	require.Equal(t, session.StepAuthEmail, s.Step)

	handle(t, m, s, TextInput("ada@example.com"))
	require.Equal(t, session.StepAuthOTP, s.Step)
	require.Equal(t, []string{"ada@example.com"}, backend.otpRequests)

	replies := handle(t, m, s, TextInput("123456"))
	require.Equal(t, session.StepIdle, s.Step)
	require.Equal(t, "access-token", s.AuthToken)
	require.Equal(t, "org-1", s.OrganizationID)
	require.Equal(t, "ada@example.com", s.Email)
	require.Nil(t, s.Scratch.Auth)
	require.Contains(t, replies[0].Text, "Ada")

	require.Equal(t, []string{"org-1"}, notifier.subOrgs)
	require.Equal(t, []string{"chan-1"}, notifier.subDests)
}

func TestLoginInvalidEmailReprompts(t *testing.T) {
	m, backend, _ := newTestMachine()
	s := newTestSession()

	handle(t, m, s, TextInput("/login"))
	replies := handle(t, m, s, TextInput("not-an-email"))

	require.Equal(t, session.StepAuthEmail, s.Step)
	require.Empty(t, backend.otpRequests)
	require.Contains(t, replies[0].Text, "Invalid Email")
}

func TestLoginInvalidOTPFormatSkipsBackend(t *testing.T) {
	m, backend, _ := newTestMachine()
	s := newTestSession()

	handle(t, m, s, TextInput("/login"))
	handle(t, m, s, TextInput("ada@example.com"))
	handle(t, m, s, TextInput("12ab56"))

	require.Equal(t, session.StepAuthOTP, s.Step)
	require.Zero(t, backend.authCalls)
}

func TestLoginWrongOTPIsRetryable(t *testing.T) {
	m, backend, _ := newTestMachine()
	s := newTestSession()

	handle(t, m, s, TextInput("/login"))
	handle(t, m, s, TextInput("ada@example.com"))

	backend.authErr = &api.Error{Status: 401, Message: "invalid otp"}
	handle(t, m, s, TextInput("000000"))
	require.Equal(t, session.StepAuthOTP, s.Step)
	require.Empty(t, s.AuthToken)

	backend.authErr = nil
	handle(t, m, s, TextInput("123456"))
	require.Equal(t, session.StepIdle, s.Step)
	require.Equal(t, "access-token", s.AuthToken)
	require.Equal(t, 2, backend.authCalls)
}

func TestLoginSurvivesProfileAndSubscribeFailures(t *testing.T) {
	m, backend, notifier := newTestMachine()
	s := newTestSession()
	backend.profileErr = errors.New("profile down")
	notifier.subErr = errors.New("push down")

	handle(t, m, s, TextInput("/login"))
	handle(t, m, s, TextInput("ada@example.com"))
	handle(t, m, s, TextInput("123456"))

	require.Equal(t, "access-token", s.AuthToken)
	require.Equal(t, session.StepIdle, s.Step)
}

func TestKYCWarningAfterLogin(t *testing.T) {
	m, backend, _ := newTestMachine()
	s := newTestSession()
	backend.kycs = []api.KYCStatus{{Status: "pending"}}

	handle(t, m, s, TextInput("/login"))
	handle(t, m, s, TextInput("ada@example.com"))
	replies := handle(t, m, s, TextInput("123456"))

	require.Len(t, replies, 2)
	require.Contains(t, replies[1].Text, "KYC")
}

func TestSendEmailFlow(t *testing.T) {
	m, backend, _ := newTestMachine()
	s := authedSession()

	handle(t, m, s, ActionInput(ActionSendEmail))
	require.Equal(t, session.StepSendEmailAddress, s.Step)

	handle(t, m, s, TextInput("bob@example.com"))
	require.Equal(t, session.StepSendEmailAmount, s.Step)

	handle(t, m, s, TextInput("25.50"))
	require.Equal(t, session.StepConfirmEmailTransfer, s.Step)
	require.Equal(t, "bob@example.com", s.Scratch.SendEmail.Recipient)
	require.Equal(t, "25.50", s.Scratch.SendEmail.Amount)

	replies := handle(t, m, s, ActionInput(ActionConfirmEmailSend))
	require.Equal(t, session.StepIdle, s.Step)
	require.Nil(t, s.Scratch.SendEmail)
	require.Len(t, backend.emailSends, 1)
	require.Equal(t, "bob@example.com", backend.emailSends[0].Email)
	require.Equal(t, "25.50", backend.emailSends[0].Amount)
	require.Equal(t, "USDC", backend.emailSends[0].Currency)
	require.Contains(t, replies[0].Text, "tx-1")
}

func TestTransferFailureIsNotRetried(t *testing.T) {
	m, backend, _ := newTestMachine()
	s := authedSession()
	backend.emailSendErr = &api.Error{Status: 422, Message: "insufficient balance"}

	handle(t, m, s, ActionInput(ActionSendEmail))
	handle(t, m, s, TextInput("bob@example.com"))
	handle(t, m, s, TextInput("25"))

	replies := handle(t, m, s, ActionInput(ActionConfirmEmailSend))
	require.Equal(t, session.StepIdle, s.Step)
	require.Nil(t, s.Scratch.SendEmail)
	require.Len(t, backend.emailSends, 1)
	require.Contains(t, replies[0].Text, "insufficient balance")

	// a second press of the stale confirm must not re-submit
	replies = handle(t, m, s, ActionInput(ActionConfirmEmailSend))
	require.Len(t, backend.emailSends, 1)
	require.Contains(t, replies[0].Text, "no longer active")
}

func TestConfirmInWrongStepRejected(t *testing.T) {
	m, backend, _ := newTestMachine()
	s := authedSession()

	replies := handle(t, m, s, ActionInput(ActionConfirmBankOut))
	require.Len(t, backend.bankOuts, 0)
	require.Contains(t, replies[0].Text, "no longer active")
}

func TestBalanceFetchFailureKeepsFlowUnentered(t *testing.T) {
	m, backend, _ := newTestMachine()
	s := authedSession()
	backend.balancesErr = errors.New("backend down")

	handle(t, m, s, ActionInput(ActionSendEmail))
	require.Equal(t, session.StepIdle, s.Step)
	require.Nil(t, s.Scratch.SendEmail)
}

func TestSendWalletFlowParsesNetwork(t *testing.T) {
	m, backend, _ := newTestMachine()
	s := authedSession()

	handle(t, m, s, ActionInput(ActionSendWallet))
	handle(t, m, s, TextInput("0xabc123def456abc123def456abc123def456"))
	require.Equal(t, session.StepSendWalletNetwork, s.Step)

	replies := handle(t, m, s, TextInput("dogecoin"))
	require.Equal(t, session.StepSendWalletNetwork, s.Step)
	require.Contains(t, replies[0].Text, "Invalid Network")

	handle(t, m, s, TextInput("2"))
	require.Equal(t, "ethereum", s.Scratch.SendWallet.Network)

	handle(t, m, s, TextInput("10"))
	handle(t, m, s, ActionInput(ActionConfirmWalletSend))
	require.Len(t, backend.walletSends, 1)
	require.Equal(t, "ethereum", backend.walletSends[0].Network)
}

func TestAmountValidation(t *testing.T) {
	m, _, _ := newTestMachine()
	s := authedSession()

	handle(t, m, s, ActionInput(ActionWithdrawBank))
	require.Equal(t, session.StepWithdrawBankAmount, s.Step)

	for _, bad := range []string{"0", "-5", "abc", "1e3", ""} {
		replies := handle(t, m, s, TextInput(bad))
		require.Equal(t, session.StepWithdrawBankAmount, s.Step, "amount %q must be rejected", bad)
		require.Contains(t, replies[0].Text, "Invalid")
	}

	handle(t, m, s, TextInput("12.5"))
	require.Equal(t, session.StepConfirmBankWithdrawal, s.Step)
}

func TestCancelMidFlow(t *testing.T) {
	m, _, _ := newTestMachine()
	s := authedSession()

	handle(t, m, s, ActionInput(ActionSendEmail))
	handle(t, m, s, TextInput("bob@example.com"))

	replies := handle(t, m, s, TextInput("/cancel"))
	require.Equal(t, session.StepIdle, s.Step)
	require.Nil(t, s.Scratch.SendEmail)
	require.Contains(t, replies[0].Text, "cancelled")
}

func TestCancelWhenIdle(t *testing.T) {
	m, _, _ := newTestMachine()
	s := authedSession()

	replies := handle(t, m, s, ActionInput(ActionCancel))
	require.Contains(t, replies[0].Text, "Nothing to cancel")
}

func TestCommandAbandonsFlowInPlace(t *testing.T) {
	m, backend, _ := newTestMachine()
	s := authedSession()

	handle(t, m, s, ActionInput(ActionSendEmail))
	handle(t, m, s, TextInput("bob@example.com"))

	// starting another flow leaves the old scratch behind but retargets the step
	handle(t, m, s, ActionInput(ActionWithdrawBank))
	require.Equal(t, session.StepWithdrawBankAmount, s.Step)
	require.NotNil(t, s.Scratch.SendEmail)

	// the abandoned flow's confirm is unreachable now
	replies := handle(t, m, s, ActionInput(ActionConfirmEmailSend))
	require.Empty(t, backend.emailSends)
	require.Contains(t, replies[0].Text, "no longer active")
}

func TestLogout(t *testing.T) {
	m, backend, notifier := newTestMachine()
	s := authedSession()
	s.Email = "ada@example.com"

	handle(t, m, s, TextInput("/logout"))

	require.False(t, s.Authenticated())
	require.Empty(t, s.OrganizationID)
	require.True(t, backend.loggedOut)
	require.Equal(t, []string{"org-1"}, notifier.unsubs)
}

func TestTransactionsPagination(t *testing.T) {
	m, backend, _ := newTestMachine()
	s := authedSession()
	backend.history = []api.Transfer{
		{ID: "1", Type: "deposit", Amount: "10", Currency: "USDC", Status: "success", CreatedAt: "2026-01-01"},
		{ID: "2", Type: "withdrawal", Amount: "5", Currency: "USDC", Status: "success", CreatedAt: "2026-01-02"},
		{ID: "3", Type: "email_transfer", Amount: "2", Currency: "USDC", Status: "pending", CreatedAt: "2026-01-03"},
		{ID: "4", Type: "wallet_transfer", Amount: "1", Currency: "USDC", Status: "success", CreatedAt: "2026-01-04"},
		{ID: "5", Type: "deposit", Amount: "7", Currency: "USDC", Status: "success", CreatedAt: "2026-01-05"},
	}

	replies := handle(t, m, s, TextInput("/transactions"))
	require.Equal(t, []int{1}, backend.historyPages)

	// a full page offers a next-page button
	var next bool
	for _, row := range replies[0].Menu.Rows {
		for _, b := range row {
			if b.Action == txPageAction(2) {
				next = true
			}
		}
	}
	require.True(t, next, "full page should offer a next-page action")

	handle(t, m, s, ActionInput(txPageAction(2)))
	require.Equal(t, []int{1, 2}, backend.historyPages)
}

func TestSelectDefaultWallet(t *testing.T) {
	m, backend, _ := newTestMachine()
	s := authedSession()
	backend.wallets = []api.Wallet{
		{ID: "w-1", Network: "solana", Address: "sol-address-1234567890abcdef"},
		{ID: "w-2", Network: "ethereum", Address: "eth-address-1234567890abcdef", IsDefault: true},
	}

	handle(t, m, s, ActionInput(ActionSetDefaultWallet))
	require.Equal(t, session.StepSelectDefaultWallet, s.Step)

	handle(t, m, s, ActionInput(actionWalletPrefix+"w-1"))
	require.Equal(t, []string{"w-1"}, backend.setDefaultIDs)
	require.Equal(t, session.StepIdle, s.Step)
}

func TestWalletSelectionInWrongStepRejected(t *testing.T) {
	m, backend, _ := newTestMachine()
	s := authedSession()

	replies := handle(t, m, s, ActionInput(actionWalletPrefix+"w-1"))
	require.Empty(t, backend.setDefaultIDs)
	require.Contains(t, replies[0].Text, "no longer active")
}

func TestUnknownCommand(t *testing.T) {
	m, _, _ := newTestMachine()
	s := authedSession()

	replies := handle(t, m, s, TextInput("/frobnicate"))
	require.Contains(t, replies[0].Text, "Unknown command")
}

func TestIdleFreeTextFallsBackToMenu(t *testing.T) {
	m, _, _ := newTestMachine()
	s := authedSession()

	replies := handle(t, m, s, TextInput("hello there"))
	require.NotNil(t, replies[0].Menu)
}
