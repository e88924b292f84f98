package flow

import (
	"fmt"

	"github.com/copperx/payout-bot/internal/api"
)

func mainMenu() *Menu {
	return &Menu{Rows: [][]Button{
		{{Label: "💰 Balance", Action: ActionBalance}, {Label: "💸 Send Money", Action: ActionSendMoney}},
		{{Label: "📤 Withdraw", Action: ActionWithdraw}, {Label: "📥 Deposit", Action: ActionDeposit}},
		{{Label: "📋 Transaction History", Action: ActionTransactions}},
		{{Label: "⚙️ Settings", Action: ActionSettings}, {Label: "ℹ️ Help", Action: ActionHelp}},
	}}
}

func cancelMenu() *Menu {
	return &Menu{Rows: [][]Button{
		{{Label: "❌ Cancel", Action: ActionCancel}},
	}}
}

func backToMenu() *Menu {
	return &Menu{Rows: [][]Button{
		{{Label: "🔙 Back to Menu", Action: ActionMainMenu}},
	}}
}

func confirmMenu(confirmAction string) *Menu {
	return &Menu{Rows: [][]Button{
		{{Label: "✅ Confirm", Action: confirmAction}, {Label: "❌ Cancel", Action: ActionCancel}},
	}}
}

func sendOptionsMenu() *Menu {
	return &Menu{Rows: [][]Button{
		{{Label: "📧 Send to Email", Action: ActionSendEmail}},
		{{Label: "🔑 Send to Wallet", Action: ActionSendWallet}},
		{{Label: "🔙 Back to Menu", Action: ActionMainMenu}},
	}}
}

func withdrawOptionsMenu() *Menu {
	return &Menu{Rows: [][]Button{
		{{Label: "🏦 To Bank Account", Action: ActionWithdrawBank}},
		{{Label: "🔑 To External Wallet", Action: ActionWithdrawWallet}},
		{{Label: "🔙 Back to Menu", Action: ActionMainMenu}},
	}}
}

func settingsMenu() *Menu {
	return &Menu{Rows: [][]Button{
		{{Label: "🔄 Set Default Wallet", Action: ActionSetDefaultWallet}},
		{{Label: "👤 View Profile", Action: ActionViewProfile}},
		{{Label: "🔙 Back to Menu", Action: ActionMainMenu}},
	}}
}

func historyMenu(page int, hasMore bool) *Menu {
	var nav []Button
	if page > 1 {
		nav = append(nav, Button{Label: "⬅️ Previous", Action: txPageAction(page - 1)})
	}
	if hasMore {
		nav = append(nav, Button{Label: "➡️ Next", Action: txPageAction(page + 1)})
	}
	menu := &Menu{}
	if len(nav) > 0 {
		menu.Rows = append(menu.Rows, nav)
	}
	menu.Rows = append(menu.Rows, []Button{{Label: "🔙 Back to Menu", Action: ActionMainMenu}})
	return menu
}

func txPageAction(page int) string {
	return fmt.Sprintf("%s%d", actionTxPagePrefix, page)
}

func walletsMenu(wallets []api.Wallet) *Menu {
	menu := &Menu{}
	for _, w := range wallets {
		label := fmt.Sprintf("%s: %s", w.Network, truncateAddress(w.Address))
		if w.IsDefault {
			label = "✅ " + label
		}
		menu.Rows = append(menu.Rows, []Button{{Label: label, Action: actionWalletPrefix + w.ID}})
	}
	menu.Rows = append(menu.Rows, []Button{{Label: "🔙 Back", Action: ActionMainMenu}})
	return menu
}
