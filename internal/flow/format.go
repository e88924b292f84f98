package flow

import (
	"fmt"
	"strings"

	"github.com/copperx/payout-bot/internal/api"
)

func truncateAddress(addr string) string {
	if len(addr) <= 20 {
		return addr
	}
	return addr[:10] + "..." + addr[len(addr)-10:]
}

func formatBalances(balances []api.WalletBalances) string {
	if len(balances) == 0 {
		return "You don't have any wallet balances yet."
	}

	var b strings.Builder
	b.WriteString("💰 **Your Wallet Balances**\n\n")
	for _, wb := range balances {
		fmt.Fprintf(&b, "**%s**", wb.Network)
		if wb.IsDefault {
			b.WriteString(" (default)")
		}
		b.WriteString("\n")
		for _, bal := range wb.Balances {
			fmt.Fprintf(&b, "• Available: %s %s\n", bal.Balance, bal.Symbol)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatDepositInfo(wallet *api.Wallet) string {
	return fmt.Sprintf(
		"📥 **Deposit Information**\n\n"+
			"To deposit funds, send %s to the address below on the **%s** network.\n\n"+
			"**%s Address:**\n`%s`\n\n"+
			"⚠️ Send only %s on the %s network to this address. Sending other tokens may result in loss of funds.",
		wallet.Currency, wallet.Network, wallet.Network, wallet.Address, wallet.Currency, wallet.Network,
	)
}

func formatProfile(p *api.UserProfile) string {
	return fmt.Sprintf(
		"👤 **User Profile**\n\n**Name:** %s %s\n**Email:** %s\n**Organization ID:** %s",
		p.FirstName, p.LastName, p.Email, p.OrganizationID,
	)
}

func formatTransactions(transfers []api.Transfer) string {
	if len(transfers) == 0 {
		return "You don't have any transactions yet."
	}

	var b strings.Builder
	b.WriteString("📋 **Recent Transactions**\n\n")
	for _, tx := range transfers {
		var description string
		switch tx.Type {
		case "deposit":
			description = "📥 Deposit"
		case "withdrawal":
			description = "📤 Withdrawal"
		case "email_transfer":
			recipient := tx.RecipientEmail
			if recipient == "" {
				recipient = "user"
			}
			description = "📧 Email Transfer to " + recipient
		case "wallet_transfer":
			to := "address"
			if tx.ToAddress != "" {
				to = truncateAddress(tx.ToAddress)
			}
			description = "🔑 Wallet Transfer to " + to
		default:
			description = "💸 " + tx.Type
		}
		fmt.Fprintf(&b, "**%s**\n• Amount: %s %s\n• Status: %s\n• Date: %s\n\n",
			description, tx.Amount, tx.Currency, tx.Status, tx.CreatedAt)
	}
	return strings.TrimRight(b.String(), "\n")
}
