package flow

import (
	"context"
	"log"

	"github.com/copperx/payout-bot/internal/session"
)

func (m *Machine) cmdBalance(ctx context.Context, t *turn) error {
	balances, err := m.backend.Balances(ctx)
	if err != nil {
		log.Printf("flow: balance fetch failed: %v", err)
		t.replyMenu("❌ Could not fetch your balances right now. Please try again later.", backToMenu())
		return nil
	}
	t.replyMenu(formatBalances(balances), backToMenu())
	return nil
}

func (m *Machine) cmdDeposit(ctx context.Context, t *turn) error {
	wallet, err := m.backend.DefaultWallet(ctx)
	if err != nil {
		log.Printf("flow: default wallet fetch failed: %v", err)
		t.replyMenu("❌ Could not fetch your deposit address right now. Please try again later.", backToMenu())
		return nil
	}
	t.replyMenu(formatDepositInfo(wallet), backToMenu())
	return nil
}

func (m *Machine) cmdSettings(ctx context.Context, t *turn) error {
	t.replyMenu("⚙️ **Settings**\n\nWhat would you like to manage?", settingsMenu())
	return nil
}

func (m *Machine) viewProfile(ctx context.Context, t *turn) error {
	profile, err := m.backend.Profile(ctx)
	if err != nil {
		log.Printf("flow: profile fetch failed: %v", err)
		t.replyMenu("❌ Could not fetch your profile right now. Please try again later.", backToMenu())
		return nil
	}
	t.replyMenu(formatProfile(profile), backToMenu())
	return nil
}

func (m *Machine) enterSelectDefaultWallet(ctx context.Context, t *turn) error {
	wallets, err := m.backend.Wallets(ctx)
	if err != nil {
		log.Printf("flow: wallet list fetch failed: %v", err)
		t.replyMenu("❌ Could not fetch your wallets right now. Please try again later.", backToMenu())
		return nil
	}
	if len(wallets) == 0 {
		t.replyMenu("You don't have any wallets yet.", backToMenu())
		return nil
	}
	t.s.Step = session.StepSelectDefaultWallet
	t.replyMenu("🔄 **Set Default Wallet**\n\nSelect the wallet to use as your default:", walletsMenu(wallets))
	return nil
}

func (m *Machine) selectDefaultWallet(ctx context.Context, t *turn, walletID string) error {
	if t.s.Step != session.StepSelectDefaultWallet {
		t.replyMenu("⚠️ This selection is no longer active. Please start again from Settings.", backToMenu())
		return nil
	}
	if err := m.backend.SetDefaultWallet(ctx, walletID); err != nil {
		log.Printf("flow: set default wallet failed: %v", err)
		t.endFlow()
		t.replyMenu("❌ Could not update your default wallet. Please try again later.", backToMenu())
		return nil
	}
	t.endFlow()
	t.replyMenu("✅ **Default Wallet Updated**\n\nYour default wallet has been changed.", mainMenu())
	return nil
}
