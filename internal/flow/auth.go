package flow

import (
	"context"
	"log"

	"github.com/copperx/payout-bot/internal/session"
)

func (m *Machine) cmdStart(ctx context.Context, t *turn) error {
	t.replyMenu(
		"👋 Welcome to the Copperx Payout Bot!\n\n"+
			"Manage your Copperx account, view balances, send funds and more, right from this chat.\n\n"+
			"🔐 To get started, use /login to authenticate with your Copperx account.\n"+
			"Use /help to see all available commands.",
		mainMenu(),
	)
	return nil
}

func (m *Machine) cmdStartMenu(ctx context.Context, t *turn) error {
	t.replyMenu("🏠 **Main Menu**\n\nPlease select an option from the menu below:", mainMenu())
	return nil
}

func (m *Machine) cmdHelp(ctx context.Context, t *turn) error {
	t.replyMenu(
		"📌 **Copperx Payout Bot Help**\n\n"+
			"**Available Commands:**\n"+
			"/start - Start the bot and get a welcome message\n"+
			"/login - Login to your Copperx account\n"+
			"/balance - Check your wallet balances\n"+
			"/send - Send funds to email or wallet\n"+
			"/withdraw - Withdraw funds to bank or external wallet\n"+
			"/deposit - Get deposit information\n"+
			"/transactions - View your recent transactions\n"+
			"/settings - Manage your settings\n"+
			"/cancel - Cancel the operation in progress\n"+
			"/logout - Logout from your account",
		mainMenu(),
	)
	return nil
}

func (m *Machine) cmdLogin(ctx context.Context, t *turn) error {
	t.s.Step = session.StepAuthEmail
	t.s.Scratch.Auth = &session.AuthScratch{}
	t.replyMenu(
		"🔐 **Login to Copperx**\n\nPlease enter the email address associated with your Copperx account:",
		cancelMenu(),
	)
	return nil
}

func (m *Machine) cmdLogout(ctx context.Context, t *turn) error {
	if t.s.OrganizationID != "" {
		if err := m.notifier.Unsubscribe(t.s.OrganizationID); err != nil {
			log.Printf("flow: unsubscribe on logout failed for org %s: %v", t.s.OrganizationID, err)
		}
	}
	t.s.ResetAuth()
	m.backend.Logout()
	t.replyMenu("👋 You have been successfully logged out.\n\nUse /login to authenticate again.", mainMenu())
	return nil
}

func (m *Machine) stepAuthEmail(ctx context.Context, t *turn, text string) error {
	if !validEmail(text) {
		t.replyMenu("❌ **Invalid Email Format**\n\nPlease enter a valid email address:", cancelMenu())
		return nil
	}

	if err := m.backend.RequestEmailOTP(ctx, text); err != nil {
		log.Printf("flow: otp request failed: %v", err)
		// retryable: the user may re-enter the email
		t.replyMenu(
			"❌ **Error Requesting OTP**\n\nWe couldn't send an OTP to this email. Please check the address and try again.",
			cancelMenu(),
		)
		return nil
	}

	t.s.Scratch.Auth = &session.AuthScratch{Email: text}
	t.s.Step = session.StepAuthOTP
	t.replyMenu(
		"📧 **Email OTP Sent**\n\nWe've sent a one-time password to "+text+".\n\nPlease enter the OTP you received:",
		cancelMenu(),
	)
	return nil
}

func (m *Machine) stepAuthOTP(ctx context.Context, t *turn, text string) error {
	if !validOTP(text) {
		t.replyMenu("❌ **Invalid OTP Format**\n\nPlease enter a valid 6-digit OTP:", cancelMenu())
		return nil
	}

	auth := t.s.Scratch.Auth
	if auth == nil || auth.Email == "" {
		t.endFlow()
		t.replyMenu("❌ Session error. Please restart the login process with /login.", mainMenu())
		return nil
	}

	result, err := m.backend.AuthenticateEmailOTP(ctx, auth.Email, text)
	if err != nil {
		log.Printf("flow: otp authentication failed: %v", err)
		// retryable: stay on the OTP step so a fresh code can be entered
		t.replyMenu(
			"❌ **Authentication Failed**\n\nThe OTP you entered is invalid or has expired. Please try again.",
			cancelMenu(),
		)
		return nil
	}

	t.s.AuthToken = result.AccessToken
	t.s.OrganizationID = result.User.OrganizationID
	t.s.Email = auth.Email
	t.endFlow()

	// best-effort: a profile fetch failure must not undo a completed login
	name := "User"
	if profile, err := m.backend.Profile(ctx); err != nil {
		log.Printf("flow: profile fetch after login failed: %v", err)
	} else if profile.FirstName != "" {
		name = profile.FirstName
	}

	if err := m.notifier.Subscribe(ctx, result.User.OrganizationID, t.s.Destination); err != nil {
		log.Printf("flow: deposit notification subscribe failed for org %s: %v", result.User.OrganizationID, err)
	}

	t.replyMenu(
		"✅ **Login Successful**\n\nWelcome back, "+name+"!\n\nYou're now logged in to your Copperx account.",
		mainMenu(),
	)

	if statuses, err := m.backend.KYCStatuses(ctx); err != nil {
		log.Printf("flow: kyc status check failed: %v", err)
	} else if len(statuses) > 0 && statuses[0].Status != "approved" {
		t.reply(
			"⚠️ **KYC Status: " + statuses[0].Status + "**\n\n" +
				"Your KYC verification is not complete. Some features may be limited.\n" +
				"Please complete your KYC verification on the Copperx platform.",
		)
	}
	return nil
}
