package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spintrade/orion-broker/internal/core/domain"
	"github.com/stretchr/testify/require"
)

const (
	testKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
	testMatcher = "0x2222222222222222222222222222222222222222"
)

func runCLICommand(t *testing.T, stdin string, args ...string) (string, error) {
	app := newApp()
	out := &bytes.Buffer{}
	app.Writer = out
	app.Reader = strings.NewReader(stdin)

	err := app.Run(append([]string{"brokerctl"}, args...))
	return out.String(), err
}

func signTestTrade(t *testing.T) domain.SettlementMessage {
	out, err := runCLICommand(t, "",
		"sign", "--key", testKey, "--matcher", testMatcher,
		"--pair", "ETH-USDT", "--side", "buy",
		"--amount", "10", "--price", "2", "--timestamp", "1600000000000",
	)
	require.NoError(t, err)

	var msg domain.SettlementMessage
	require.NoError(t, json.Unmarshal([]byte(out), &msg))
	return msg
}

func TestAddress(t *testing.T) {
	out, err := runCLICommand(t, "", "address", "--key", testKey)
	require.NoError(t, err)

	var reply map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &reply))
	require.Equal(t, testAddress, reply["address"])
	require.NotEmpty(t, reply["publicKey"])

	_, err = runCLICommand(t, "", "address", "--key", "0xzz")
	require.Error(t, err)
}

func TestSign(t *testing.T) {
	msg := signTestTrade(t)

	require.True(t, msg.IsSigned())
	require.Equal(t, testAddress, msg.SenderAddress)
	require.Equal(t, testMatcher, msg.MatcherAddress)
	require.False(t, msg.BuySide)
	require.Equal(t, uint64(1000000000), msg.Amount)
	require.Equal(t, uint64(200000000), msg.Price)
	require.Equal(t, uint64(4000000), msg.MatcherFee)
	require.Equal(t, uint64(1600000000000), msg.Nonce)

	_, err := runCLICommand(t, "",
		"sign", "--key", testKey, "--matcher", testMatcher,
		"--pair", "ETHUSDT", "--side", "buy", "--amount", "10", "--price", "2",
	)
	require.ErrorIs(t, err, domain.ErrMalformedPair)

	_, err = runCLICommand(t, "", "sign", "--key", testKey)
	var usageErr *invalidUsageError
	require.ErrorAs(t, err, &usageErr)
}

func TestHash(t *testing.T) {
	msg := signTestTrade(t)
	buf, err := json.Marshal(msg)
	require.NoError(t, err)

	out, err := runCLICommand(t, string(buf), "hash")
	require.NoError(t, err)

	var reply hashReply
	require.NoError(t, json.Unmarshal([]byte(out), &reply))
	require.Equal(t, msg.ID, reply.ID)
	require.True(t, reply.IDMatch)
	require.Equal(t, testAddress, reply.Signer)
	require.True(t, reply.Sender)

	// A tampered message no longer matches its id nor its signer.
	msg.Amount++
	path := filepath.Join(t.TempDir(), "msg.json")
	buf, err = json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, buf, 0600))

	out, err = runCLICommand(t, "", "hash", "--file", path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &reply))
	require.False(t, reply.IDMatch)
	require.False(t, reply.Sender)
}

func TestSettle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trade" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		//nolint
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	args := []string{
		"settle", "--hub", srv.URL, "--order", "order-1",
		"--key", testKey, "--matcher", testMatcher,
		"--pair", "ETH-USDT", "--side", "sell",
		"--amount", "10", "--price", "2", "--timestamp", "1600000000000",
	}
	out, err := runCLICommand(t, "", args...)
	require.NoError(t, err)

	var reply struct {
		Message domain.SettlementMessage `json:"message"`
		Status  string                   `json:"status"`
		Ack     json.RawMessage          `json:"ack"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &reply))
	require.True(t, reply.Message.BuySide)
	require.Equal(t, string(domain.SettlementStatusAcknowledged), reply.Status)
	require.JSONEq(t, `{"status":"ok"}`, string(reply.Ack))

	srv.Close()
	_, err = runCLICommand(t, "", args...)
	require.Error(t, err)
}
