package flow

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	otpRe   = regexp.MustCompile(`^\d{6}$`)
	// amounts are decimal strings; sign and exponents are rejected up front
	amountRe = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

func validEmail(s string) bool {
	return emailRe.MatchString(s)
}

func validOTP(s string) bool {
	return otpRe.MatchString(s)
}

// validAmount accepts a positive decimal string. Zero is not a transferable
// amount.
func validAmount(s string) bool {
	if !amountRe.MatchString(s) {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f > 0
}

// parseNetwork resolves a network choice entered as an index or a name.
func parseNetwork(input string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "solana":
		return "solana", true
	case "2", "ethereum":
		return "ethereum", true
	}
	return "", false
}

const networkPrompt = "1. Solana\n2. Ethereum\n\nReply with the number or name of the network:"
