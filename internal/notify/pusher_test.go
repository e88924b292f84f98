package notify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeDataUnwrapsDoubleEncoding(t *testing.T) {
	// channel event data arrives as a JSON string containing JSON
	raw := json.RawMessage(`"{\"amount\":\"10\",\"currency\":\"USDC\"}"`)
	require.JSONEq(t, `{"amount":"10","currency":"USDC"}`, string(decodeData(raw)))

	// already-plain objects pass through untouched
	plain := json.RawMessage(`{"amount":"10"}`)
	require.JSONEq(t, `{"amount":"10"}`, string(decodeData(plain)))
}

func TestFrameParsing(t *testing.T) {
	msg := []byte(`{"event":"deposit","channel":"private-org-org-1","data":"{\"amount\":\"10\"}"}`)
	var f frame
	require.NoError(t, json.Unmarshal(msg, &f))
	require.Equal(t, "deposit", f.Event)
	require.Equal(t, "private-org-org-1", f.Channel)

	var dep DepositEvent
	require.NoError(t, json.Unmarshal(decodeData(f.Data), &dep))
	require.Equal(t, "10", dep.Amount)
}

func TestDuplicateConnectionEstablishedIsHarmless(t *testing.T) {
	p := NewPusherClient("key", "ap1", nil)
	f := frame{
		Event: "pusher:connection_established",
		Data:  json.RawMessage(`"{\"socket_id\":\"123.456\"}"`),
	}

	p.handleFrame(f)
	select {
	case <-p.connected:
	default:
		t.Fatal("first establishment frame should mark the connection ready")
	}

	// a resent establishment frame must not panic or change the socket id
	f.Data = json.RawMessage(`"{\"socket_id\":\"999.999\"}"`)
	require.NotPanics(t, func() { p.handleFrame(f) })

	p.mu.RLock()
	defer p.mu.RUnlock()
	require.Equal(t, "123.456", p.socketID)
}

func TestConnectionEstablishedParsing(t *testing.T) {
	msg := []byte(`{"event":"pusher:connection_established","data":"{\"socket_id\":\"123.456\",\"activity_timeout\":120}"}`)
	var f frame
	require.NoError(t, json.Unmarshal(msg, &f))

	var est struct {
		SocketID string `json:"socket_id"`
	}
	require.NoError(t, json.Unmarshal(decodeData(f.Data), &est))
	require.Equal(t, "123.456", est.SocketID)
}

func TestDepositEventFormat(t *testing.T) {
	d := DepositEvent{Amount: "100", Currency: "USDC", Network: "solana", TransactionID: "tx-1"}
	text := d.Format()
	require.Contains(t, text, "Deposit Received")
	require.Contains(t, text, "100 USDC")
	require.Contains(t, text, "solana")
	require.Contains(t, text, "tx-1")

	// optional fields stay out of the message when absent
	minimal := DepositEvent{Amount: "1", Currency: "USDC"}
	require.NotContains(t, minimal.Format(), "Network")
	require.NotContains(t, minimal.Format(), "Transaction ID")
}
